// Package httpapi implements the REST client and token manager
// (component A): auth lifecycle with proactive refresh and a bounded
// duplicate-token login retry, a concurrency-capped conditional-GET
// asset cache, and typed http-status errors.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/bragerone/bragerone-go/domain"
	"github.com/bragerone/bragerone-go/external"
)

// RequestIDHeader carries a per-request correlation id on every outbound
// call, so a request can be traced end to end through server-side logs.
const RequestIDHeader = "X-Request-Id"

// Client is the HTTP client and token manager described by component A.
// Auth operations serialize under authMu; request bodies do not — the
// caller-visible Request/GetBytes methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	email    string
	password string

	refreshLeeway time.Duration
	persister     external.TokenPersister

	authMu       sync.Mutex
	token        *domain.Token
	skipLoadOnce bool

	sem *semaphore.Weighted

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithPersister attaches a credential persister. Without one, the token
// only lives in memory for the process lifetime.
func WithPersister(p external.TokenPersister) Option {
	return func(c *Client) { c.persister = p }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the underlying *http.Client (transport,
// timeouts, TLS config).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a Client for baseURL, authenticating as email/password.
// maxConcurrency caps simultaneous in-flight requests (default 4 per
// §5 of the shared resource model if 0 is passed).
func New(baseURL, email, password string, refreshLeeway time.Duration, maxConcurrency int, opts ...Option) *Client {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	c := &Client{
		baseURL:       baseURL,
		email:         email,
		password:      password,
		refreshLeeway: refreshLeeway,
		httpClient:    &http.Client{Timeout: 8 * time.Second},
		logger:        slog.Default(),
		sem:           semaphore.NewWeighted(int64(maxConcurrency)),
		cache:         make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureAuth returns a valid token, logging in or refreshing as needed.
func (c *Client) EnsureAuth(ctx context.Context) (domain.Token, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.token == nil && !c.skipLoadOnce && c.persister != nil {
		loaded, err := c.persister.Load(ctx)
		if err != nil {
			c.logger.Warn("httpapi: token load failed", slog.String("error", err.Error()))
		} else if loaded != nil {
			c.token = loaded
		}
	}

	if c.token != nil && !c.token.IsExpired(time.Now(), c.refreshLeeway) {
		return *c.token, nil
	}

	tok, err := c.login(ctx)
	if err != nil {
		return domain.Token{}, err
	}
	c.token = &tok
	c.skipLoadOnce = false
	if c.persister != nil {
		if err := c.persister.Save(ctx, tok); err != nil {
			c.logger.Warn("httpapi: token save failed", slog.String("error", err.Error()))
		}
	}
	return tok, nil
}

// Revoke clears local token state (and any persisted copy) and makes a
// best-effort server-side revoke call, swallowing 401/403/404.
func (c *Client) Revoke(ctx context.Context) error {
	c.authMu.Lock()
	tok := c.token
	c.token = nil
	c.skipLoadOnce = true
	c.authMu.Unlock()

	if c.persister != nil {
		if err := c.persister.Clear(ctx); err != nil {
			c.logger.Warn("httpapi: token clear failed", slog.String("error", err.Error()))
		}
	}

	if tok == nil || tok.AccessToken == "" {
		return nil
	}

	_, _, err := c.doRequest(ctx, http.MethodPost, "/auth/revoke", nil, nil, tok.AccessToken)
	if err != nil {
		var apiErr *ApiError
		if asApiError(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				return nil
			}
		}
		c.logger.Warn("httpapi: revoke call failed", slog.String("error", err.Error()))
	}
	return nil
}

func asApiError(err error, target **ApiError) bool {
	ae, ok := err.(*ApiError)
	if ok {
		*target = ae
	}
	return ok
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	Objects      []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"objects"`
}

func (c *Client) login(ctx context.Context) (domain.Token, error) {
	if c.email == "" || c.password == "" {
		return domain.Token{}, ErrNoCredentials
	}

	body, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return domain.Token{}, fmt.Errorf("httpapi: marshal login body: %w", err)
	}

	bo := newLoginBackoff()
	result, err := backoff.Retry(ctx, func() (domain.Token, error) {
		status, respBody, _, err := c.rawRequest(ctx, http.MethodPost, "/auth/login", bytes.NewReader(body), nil, "")
		if err != nil {
			return domain.Token{}, err
		}
		if status >= 400 {
			if isDuplicateTokenError(status, respBody) {
				return domain.Token{}, fmt.Errorf("httpapi: duplicate token on login: %w", &ApiError{Status: status, Body: respBody})
			}
			return domain.Token{}, backoff.Permanent(&ApiError{Status: status, Body: respBody})
		}
		var lr loginResponse
		if err := json.Unmarshal(respBody, &lr); err != nil {
			return domain.Token{}, backoff.Permanent(fmt.Errorf("httpapi: parse login response: %w", err))
		}
		return toToken(lr), nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(loginMaxAttempts))

	if err != nil {
		return domain.Token{}, fmt.Errorf("httpapi: login: %w", err)
	}
	return result, nil
}

func toToken(lr loginResponse) domain.Token {
	objs := make([]domain.ObjectDescriptor, 0, len(lr.Objects))
	for _, o := range lr.Objects {
		objs = append(objs, domain.ObjectDescriptor{ID: o.ID, Type: o.Type, Name: o.Name})
	}
	tok := domain.Token{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
		TokenType:    lr.TokenType,
		UserID:       lr.UserID,
		Objects:      objs,
	}
	if lr.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	}
	return tok
}

// Request issues an HTTP call, attaching a bearer token when auth is
// true. On a 401 with auth=true, it attempts exactly one
// refresh-and-retry cycle before surfacing the error.
func (c *Client) Request(ctx context.Context, method, url string, body io.Reader, headers http.Header, auth bool) (int, []byte, http.Header, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer c.sem.Release(1)

	var bearer string
	if auth {
		tok, err := c.EnsureAuth(ctx)
		if err != nil {
			return 0, nil, nil, err
		}
		bearer = tok.AccessToken
	}

	status, respBody, respHeader, err := c.doRequest(ctx, method, url, body, headers, bearer)
	if err != nil {
		return 0, nil, nil, err
	}

	if status == http.StatusUnauthorized && auth {
		c.authMu.Lock()
		c.token = nil
		c.skipLoadOnce = true
		c.authMu.Unlock()

		tok, authErr := c.EnsureAuth(ctx)
		if authErr != nil {
			return 0, nil, nil, authErr
		}
		status, respBody, respHeader, err = c.doRequest(ctx, method, url, body, headers, tok.AccessToken)
		if err != nil {
			return 0, nil, nil, err
		}
	}

	if status >= 400 {
		return status, respBody, respHeader, &ApiError{Status: status, Body: respBody, Header: respHeader}
	}
	return status, respBody, respHeader, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader, headers http.Header, bearer string) (int, []byte, http.Header, error) {
	status, respBody, respHeader, err := c.rawRequest(ctx, method, url, body, headers, bearer)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return status, respBody, respHeader, nil
}

func (c *Client) rawRequest(ctx context.Context, method, url string, body io.Reader, headers http.Header, bearer string) (int, []byte, http.Header, error) {
	fullURL := c.baseURL + url
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("httpapi: request failed", slog.String("request_id", requestID), slog.String("method", method), slog.String("url", url), slog.String("error", err.Error()))
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	c.logger.Debug("httpapi: request completed",
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, respBody, resp.Header, nil
}
