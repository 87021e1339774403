package httpapi

import (
	"context"
	"fmt"
	"net/http"
)

// GetBytes performs a conditional GET against url, sharing the same
// concurrency cap as Request. An in-memory cache keyed by url supplies
// If-None-Match / If-Modified-Since on subsequent calls; a 304 response
// returns the cached body without allocating a new one (falling back to
// an unconditional GET if no cache entry exists yet).
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer c.sem.Release(1)

	c.cacheMu.Lock()
	entry, hasEntry := c.cache[url]
	c.cacheMu.Unlock()

	headers := http.Header{}
	if hasEntry {
		if entry.etag != "" {
			headers.Set("If-None-Match", entry.etag)
		}
		if entry.lastModified != "" {
			headers.Set("If-Modified-Since", entry.lastModified)
		}
	}

	status, body, respHeader, err := c.doRequest(ctx, http.MethodGet, url, nil, headers, "")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotModified:
		if hasEntry {
			return entry.body, nil
		}
		// No cached body to fall back to: retry unconditionally.
		status, body, respHeader, err = c.doRequest(ctx, http.MethodGet, url, nil, nil, "")
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			return nil, &ApiError{Status: status, Body: body, Header: respHeader}
		}
		c.storeCacheEntry(url, respHeader, body)
		return body, nil

	case status >= 400:
		return nil, &ApiError{Status: status, Body: body, Header: respHeader}

	default:
		c.storeCacheEntry(url, respHeader, body)
		return body, nil
	}
}

func (c *Client) storeCacheEntry(url string, header http.Header, body []byte) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[url] = cacheEntry{
		etag:         header.Get("ETag"),
		lastModified: header.Get("Last-Modified"),
		body:         body,
	}
}
