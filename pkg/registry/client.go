package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mobiguard/scamshield/pkg/httputil"
)

// Sentinel errors of the reputation layer. A failed lookup is always one of
// these, never a fabricated safe verdict: "no evidence" and "couldn't
// check" must stay distinguishable.
var (
	ErrInvalidInput  = errors.New("registry lookup key is empty after normalization")
	ErrRemoteTimeout = errors.New("registry call timed out")
	ErrRemoteFailure = errors.New("registry call failed")
)

// Verdict is one registry's answer about one identifier.
type Verdict struct {
	Key         string    `json:"key"`
	FraudListed bool      `json:"fraud_listed"`
	ReportCount int       `json:"report_count"`
	Source      string    `json:"source"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Client looks up identifiers against one remote fraud registry. The phone
// and account registries are two instances of this type with different base
// URLs. Safe for concurrent use; cache and session carry their own locks.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	cache   VerdictCache
	session *SessionManager
}

// sessionResponse is the POST /session payload.
type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// lookupResponse is the GET /lookup payload.
type lookupResponse struct {
	FraudListed bool `json:"fraud_listed"`
	ReportCount int  `json:"report_count"`
}

// NewClient creates a registry client. name labels the registry in logs and
// verdicts ("phone", "account"); timeout bounds each remote call; sessionTTL
// bounds how long an initialized session is trusted without a refresh.
func NewClient(name, baseURL string, cache VerdictCache, timeout, sessionTTL time.Duration) *Client {
	httpClient := httputil.RegistryClient()
	if timeout > 0 {
		httpClient = httputil.NewClient(timeout)
	}
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   cache,
	}
	c.session = NewSessionManager(sessionTTL, c.initSession)
	return c
}

// initSession performs the lightweight session call that must precede the
// first real lookup.
func (c *Client) initSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := httputil.ReadErrorBody(resp.Body)
		return "", fmt.Errorf("%w: session init status %d: %s", ErrRemoteFailure, resp.StatusCode, string(body))
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: malformed session response: %v", ErrRemoteFailure, err)
	}
	return sr.SessionID, nil
}

// NormalizeKey strips everything but digits from an identifier.
func NormalizeKey(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup checks one identifier. Flow: normalize, consult cache, ensure
// session, call remote, populate cache. Any remote failure invalidates the
// session and surfaces as a typed error.
func (c *Client) Lookup(ctx context.Context, rawKey string) (Verdict, error) {
	key := NormalizeKey(rawKey)
	if key == "" {
		return Verdict{}, ErrInvalidInput
	}

	if v, ok := c.cache.Get(ctx, key); ok {
		return v, nil
	}

	token, err := c.session.Ensure(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("%s registry: %w", c.name, err)
	}

	verdict, err := c.remoteLookup(ctx, token, key)
	if err != nil {
		c.session.Invalidate()
		return Verdict{}, fmt.Errorf("%s registry: %w", c.name, err)
	}

	c.cache.Set(ctx, key, verdict)
	return verdict, nil
}

func (c *Client) remoteLookup(ctx context.Context, token, key string) (Verdict, error) {
	endpoint := c.baseURL + "/lookup?key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("X-Session-ID", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := httputil.ReadErrorBody(resp.Body)
		return Verdict{}, fmt.Errorf("%w: lookup status %d: %s", ErrRemoteFailure, resp.StatusCode, string(body))
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Verdict{}, fmt.Errorf("%w: malformed lookup response: %v", ErrRemoteFailure, err)
	}

	return Verdict{
		Key:         key,
		FraudListed: lr.FraudListed,
		ReportCount: lr.ReportCount,
		Source:      c.name,
		CheckedAt:   time.Now(),
	}, nil
}

// classifyTransportError maps transport errors onto the sentinel taxonomy.
// Timeouts get their own sentinel; everything else is a generic failure.
func classifyTransportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRemoteFailure, err)
}

// Name returns the registry label.
func (c *Client) Name() string { return c.name }
