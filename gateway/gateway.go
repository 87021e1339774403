// Package gateway implements the top-level façade (component H): it
// orchestrates the HTTP client, realtime channel, event bus, and
// parameter store through cold start, module binding, subscription,
// prime ingestion, steady-state event dispatch, and
// resubscribe-on-reconnect. Grounded on original_source's gateway.py
// (BragerOneGateway) for the start/stop sequence and api/client.py's
// modules_connect for the payload-variant negotiation it wraps.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bragerone/bragerone-go/bus"
	"github.com/bragerone/bragerone-go/httpapi"
	"github.com/bragerone/bragerone-go/internal/telemetry/metrics"
	"github.com/bragerone/bragerone-go/paramstore"
	"github.com/bragerone/bragerone-go/realtime"
)

const (
	modulesConnectPath = "/modules/connect"
	paramsPrimePath    = "/modules/parameters"
	activityPrimePath  = "/modules/activity/quantity"
)

// Options configures a Gateway.
type Options struct {
	Logger *slog.Logger
	// Metrics receives the prime-duration histogram when set. Nil
	// disables instrumentation.
	Metrics *metrics.Collectors
}

// Gateway is the component H façade: it owns the lifecycle transitions
// across the HTTP client, realtime channel, bus, and store, described by
// a reference to each (it does not own their data).
type Gateway struct {
	api     *httpapi.Client
	channel *realtime.Channel
	bus     *bus.Bus
	store   *paramstore.Store
	log     *slog.Logger
	metrics *metrics.Collectors

	mu      sync.Mutex
	modules []string
	groupID *int
	variant *connectVariant // remembered modules_connect variant, nil until one succeeds

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Gateway wired to the given components. It registers
// itself as the channel's event handler: change-shaped events (§4.B's
// three change-event aliases, plus snapshot) are ingested into the
// store the same way a prime payload is, since they share the
// devid→pool→chan shape, and published onto the bus; task-lifecycle
// events are logged only, since they carry no parameter delta.
func New(api *httpapi.Client, channel *realtime.Channel, b *bus.Bus, store *paramstore.Store, opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	g := &Gateway{api: api, channel: channel, bus: b, store: store, log: opts.Logger, metrics: opts.Metrics}
	channel.OnConnected(g.onReconnect)
	channel.OnEvent(g.handleEvent)
	return g
}

// handleEvent is the steady-state realtime dispatcher: Realtime Channel
// → Gateway → Event Bus → Parameter Store.
func (g *Gateway) handleEvent(name string, payload json.RawMessage) {
	if !isChangeShaped(name) {
		g.log.Debug("gateway: task event", slog.String("event", name), slog.String("payload", string(payload)))
		return
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		g.log.Warn("gateway: malformed change payload", slog.String("event", name), slog.String("error", err.Error()))
		return
	}

	updates, err := g.store.IngestPrime(decoded)
	if err != nil {
		g.log.Warn("gateway: ingest change event", slog.String("event", name), slog.String("error", err.Error()))
		return
	}
	for _, u := range updates {
		g.bus.Publish(u)
	}
}

func isChangeShaped(name string) bool {
	switch name {
	case "snapshot", "app:modules:parameters:change", "modules:parameters:change", "parameters:change":
		return true
	default:
		return false
	}
}

// Start runs the cold-start sequence: ensure auth, connect the realtime
// channel, bind modules server-side, emit subscription frames, and
// prime the store. modules must be non-empty.
func (g *Gateway) Start(ctx context.Context, modules []string, groupID *int) error {
	if len(modules) == 0 {
		return ErrNoModules
	}

	g.ctx, g.cancel = context.WithCancel(ctx)

	if _, err := g.api.EnsureAuth(ctx); err != nil {
		return fmt.Errorf("gateway: ensure auth: %w", err)
	}

	if err := g.channel.Connect(ctx); err != nil {
		return fmt.Errorf("gateway: connect realtime channel: %w", err)
	}

	g.mu.Lock()
	g.modules = append([]string(nil), modules...)
	g.groupID = groupID
	g.mu.Unlock()

	return g.bindSubscribeAndPrime(ctx)
}

// Stop cancels in-flight work and disconnects the realtime channel.
// The HTTP client has no explicit teardown beyond token revocation,
// which callers perform separately via the client's own Revoke.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	return g.channel.Close()
}

// onReconnect re-runs the bind/subscribe/prime sequence after every
// successful (re)connect, per the documented reconnect contract.
func (g *Gateway) onReconnect(ctx context.Context) {
	g.mu.Lock()
	modules := append([]string(nil), g.modules...)
	g.mu.Unlock()
	if len(modules) == 0 {
		return // Start's own first connect; Start binds after Connect returns
	}
	if err := g.bindSubscribeAndPrime(ctx); err != nil {
		g.log.Warn("gateway: resubscribe after reconnect failed", slog.String("error", err.Error()))
	}
}

// bindSubscribeAndPrime runs steps 3-5 of the start sequence: bind,
// subscribe, prime. Subscription frames are emitted before prime
// ingestion begins so the initial snapshot cannot race a live update.
func (g *Gateway) bindSubscribeAndPrime(ctx context.Context) error {
	g.mu.Lock()
	modules := append([]string(nil), g.modules...)
	groupID := g.groupID
	g.mu.Unlock()

	if err := g.bindModules(ctx, modules, groupID); err != nil {
		return err
	}

	if err := g.channel.Subscribe(modules, groupID); err != nil {
		return fmt.Errorf("gateway: subscribe: %w", err)
	}

	return g.prime(ctx, modules)
}

// connectVariant identifies one shape of the modules_connect payload:
// which key names the session id, whether group_id is attached, and
// which of the channel's two session ids is used.
type connectVariant struct {
	KeyName     string // "wsid" or "sid"
	WithGroupID bool
	SIDKind     string // "namespace" or "engine"
}

func (g *Gateway) candidateVariants(groupID *int) []connectVariant {
	groupOptions := []bool{false}
	if groupID != nil {
		groupOptions = append(groupOptions, true)
	}
	var variants []connectVariant
	for _, withGroup := range groupOptions {
		for _, key := range []string{"wsid", "sid"} {
			for _, sidKind := range []string{"namespace", "engine"} {
				variants = append(variants, connectVariant{KeyName: key, WithGroupID: withGroup, SIDKind: sidKind})
			}
		}
	}
	return variants
}

func (g *Gateway) buildConnectBody(v connectVariant, modules []string, groupID *int) ([]byte, error) {
	sid := g.channel.NamespaceSID()
	if v.SIDKind == "engine" {
		sid = g.channel.EngineSID()
	}
	body := map[string]any{v.KeyName: sid, "modules": modules}
	if v.WithGroupID && groupID != nil {
		// The REST modules_connect body stringifies group_id, unlike the
		// WS subscribe frames which carry it as a number.
		body["group_id"] = strconv.Itoa(*groupID)
	}
	return json.Marshal(body)
}

// bindModules negotiates the modules_connect payload variant: it
// retries the remembered variant from a prior successful bind first,
// falling back to the full candidate sequence (deduplicated by their
// encoded body) on failure or first use.
func (g *Gateway) bindModules(ctx context.Context, modules []string, groupID *int) error {
	g.mu.Lock()
	remembered := g.variant
	g.mu.Unlock()

	if remembered != nil {
		body, err := g.buildConnectBody(*remembered, modules, groupID)
		if err == nil && g.tryConnect(ctx, body) {
			return nil
		}
	}

	seen := make(map[string]bool)
	for _, v := range g.candidateVariants(groupID) {
		body, err := g.buildConnectBody(v, modules, groupID)
		if err != nil {
			continue
		}
		key := string(body)
		if seen[key] {
			continue
		}
		seen[key] = true

		if g.tryConnect(ctx, body) {
			g.mu.Lock()
			g.variant = &v
			g.mu.Unlock()
			return nil
		}
	}
	return ErrBindExhausted
}

func (g *Gateway) tryConnect(ctx context.Context, body []byte) bool {
	status, _, _, err := g.api.Request(ctx, http.MethodPost, modulesConnectPath, bytes.NewReader(body), nil, true)
	if err != nil {
		return false
	}
	return status == http.StatusOK || status == http.StatusNoContent
}

// prime fetches the parameters and activity-quantity prime payloads in
// parallel, ingesting the parameters payload into the store and
// publishing one ParamUpdate per channel onto the bus. The
// activity-quantity payload has no store representation; fetching it
// is a required side effect of priming on the server side only.
func (g *Gateway) prime(ctx context.Context, modules []string) error {
	if g.metrics != nil {
		start := time.Now()
		defer func() { g.metrics.PrimeDuration.Observe(time.Since(start).Seconds()) }()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	var paramsPayload map[string]any
	eg.Go(func() error {
		payload, err := g.primeFetch(egCtx, paramsPrimePath, modules)
		if err != nil {
			return fmt.Errorf("gateway: modules_parameters_prime: %w", err)
		}
		paramsPayload = payload
		return nil
	})
	eg.Go(func() error {
		if _, err := g.primeFetch(egCtx, activityPrimePath, modules); err != nil {
			return fmt.Errorf("gateway: modules_activity_quantity_prime: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	updates, err := g.store.IngestPrime(paramsPayload)
	if err != nil {
		return fmt.Errorf("gateway: ingest prime: %w", err)
	}
	for _, u := range updates {
		g.bus.Publish(u)
	}
	return nil
}

func (g *Gateway) primeFetch(ctx context.Context, path string, modules []string) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"modules": modules})
	if err != nil {
		return nil, err
	}
	_, respBody, _, err := g.api.Request(ctx, http.MethodPost, path, bytes.NewReader(body), nil, true)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if len(respBody) == 0 {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
