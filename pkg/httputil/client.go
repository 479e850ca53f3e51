// Package httputil provides shared HTTP utilities with connection pooling
// and safe response handling for the ScamShield engine's remote calls
// (fraud registries, local model endpoints, embedding services).
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response bodies.
// Registry and model endpoints are external services; a misbehaving one must
// not be able to OOM the engine.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// Shared transport with optimized connection pooling.
// Safe for concurrent use; reusing TCP connections matters because registry
// lookups arrive in bursts when the platform emits overlapping text events.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier defines standard timeout categories for the engine's
// remote operations.
type TimeoutTier int

const (
	// TierRegistry for fraud-registry session and lookup calls (5s).
	// A lookup that cannot answer in a few seconds is treated as failed;
	// fusion proceeds without it.
	TierRegistry TimeoutTier = iota
	// TierStandard for ordinary API calls (30s)
	TierStandard
	// TierInference for local model and embedding calls that may be slow
	// on low-end devices (60s)
	TierInference
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierRegistry:  5 * time.Second,
	TierStandard:  30 * time.Second,
	TierInference: 60 * time.Second,
}

// Singleton clients per tier - initialized once, reused everywhere.
var (
	clientRegistry  *http.Client
	clientStandard  *http.Client
	clientInference *http.Client
	clientOnce      sync.Once
)

func initClients() {
	clientRegistry = &http.Client{
		Timeout:   timeoutDurations[TierRegistry],
		Transport: sharedTransport,
	}
	clientStandard = &http.Client{
		Timeout:   timeoutDurations[TierStandard],
		Transport: sharedTransport,
	}
	clientInference = &http.Client{
		Timeout:   timeoutDurations[TierInference],
		Transport: sharedTransport,
	}
}

// Client returns a shared HTTP client for the given timeout tier.
// The clients share one connection pool; use these instead of constructing
// http.Client instances per request.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(initClients)
	switch tier {
	case TierRegistry:
		return clientRegistry
	case TierStandard:
		return clientStandard
	case TierInference:
		return clientInference
	default:
		return clientStandard
	}
}

// RegistryClient returns a client with 5s timeout (fraud-registry calls).
func RegistryClient() *http.Client {
	return Client(TierRegistry)
}

// StandardClient returns a client with 30s timeout (ordinary API calls).
func StandardClient() *http.Client {
	return Client(TierStandard)
}

// InferenceClient returns a client with 60s timeout (model/embedding calls).
func InferenceClient() *http.Client {
	return Client(TierInference)
}

// NewClient returns a client with a custom timeout on the shared transport,
// for callers whose deadline is configuration-driven rather than tiered.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = timeoutDurations[TierStandard]
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadErrorBody reads the response body for error messages with a smaller
// limit (1MB); error messages shouldn't be large.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose properly drains and closes an HTTP response body.
// This ensures connection reuse in the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
