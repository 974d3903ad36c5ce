package githubapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fyrsmithlabs/reposcope/internal/metrics"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// cachingTransport is an http.RoundTripper that caches successful GET
// responses for a fixed TTL. Repository metadata, trees and commit
// lists rarely change within an analysis session, and anonymous
// GitHub rate limits are tight, so repeated lookups are served from
// memory.
type cachingTransport struct {
	base http.RoundTripper
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]cachedResponse
}

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

func newCachingTransport(base http.RoundTripper, ttl time.Duration) *cachingTransport {
	return &cachingTransport{
		base:    base,
		ttl:     ttl,
		entries: make(map[string]cachedResponse),
	}
}

// cacheKey derives a stable key from the request URL, query included.
func cacheKey(req *http.Request) string {
	sum := sha256.Sum256([]byte(req.URL.String()))
	return hex.EncodeToString(sum[:])
}

func (t *cachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	key := cacheKey(req)

	t.mu.Lock()
	entry, ok := t.entries[key]
	if ok && timeNow().Before(entry.expires) {
		t.mu.Unlock()
		metrics.APICacheLookups.WithLabelValues("hit").Inc()
		return entry.response(req), nil
	}
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	metrics.APICacheLookups.WithLabelValues("miss").Inc()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Only successful responses are cached; errors must stay fresh so
	// retries and rate-limit recovery observe the real state.
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	entry = cachedResponse{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    body,
		expires: timeNow().Add(t.ttl),
	}

	t.mu.Lock()
	t.entries[key] = entry
	t.mu.Unlock()

	return entry.response(req), nil
}

// Clear drops all cached responses.
func (t *cachingTransport) Clear() {
	t.mu.Lock()
	t.entries = make(map[string]cachedResponse)
	t.mu.Unlock()
}

// Len returns the number of cached responses.
func (t *cachingTransport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// response materializes a fresh http.Response from the cached entry.
// Each caller gets its own body reader.
func (c cachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    c.status,
		Status:        http.StatusText(c.status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}
