package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mobiguard/scamshield/pkg/httputil"
)

// Sentinel errors for the model escalation layer. Callers branch on these
// with errors.Is; wrapped variants carry the backend detail.
var (
	ErrModelNotReady      = errors.New("model backend not ready")
	ErrModelQuotaExceeded = errors.New("model daily quota exceeded")
	ErrModelBusy          = errors.New("model concurrency limit reached")
	ErrModelParseFailure  = errors.New("model response could not be parsed")
)

// ModelVerdict is the structured judgment of the secondary model. The
// fusion controller treats it as one more partial signal, never as final.
type ModelVerdict struct {
	IsScam     bool     `json:"is_scam"`
	Confidence float64  `json:"confidence"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Reasons    []string `json:"reasons"`
	Excerpts   []string `json:"excerpts"`
	LatencyMs  float64  `json:"latency_ms"`
}

// ModelAdapter is the contract every secondary model backend satisfies.
// Analyze is expected to honor ctx cancellation; IsAvailable must be cheap
// enough to call on every request.
type ModelAdapter interface {
	Initialize() error
	Analyze(ctx context.Context, text string) (*ModelVerdict, error)
	IsAvailable() bool
	Close() error
}

// === LOCAL LLM BACKEND ===

// LocalLLMAdapter talks to an OpenAI-compatible chat completion endpoint
// (Ollama, llama.cpp server, vLLM) and asks for a strict-JSON scam verdict.
type LocalLLMAdapter struct {
	client  *http.Client
	baseURL string
	model   string
	ready   bool
}

// chat completion wire types, the OpenAI-compatible subset we need
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const scamSystemPrompt = `You are a fraud analyst for a Korean mobile security product. Analyze the INPUT, which is text captured from a user's screen (SMS, chat, or web page), and decide whether it is part of a scam.

Consider: voice phishing scripts, smishing, investment fraud (리딩방, guaranteed returns), used-goods trade fraud (선입금 pressure), government or bank impersonation, loan scams, and credential harvesting.

Judge the WHOLE conversation context. Legitimate banking notifications and ordinary money talk between acquaintances are NOT scams.

Respond with JSON only, no prose:
{"is_scam": true|false, "confidence": 0.0-1.0, "category": "investment|trade_fraud|phishing|impersonation|loan|unknown|safe", "message": "<one-sentence warning for the user, in Korean>", "reasons": ["<brief analyst note>", ...], "excerpts": ["<short quote from the input that drove the judgment>", ...]}`

// NewLocalLLMAdapter creates an adapter for the given endpoint. The model
// must already be pulled on the serving side; Initialize only probes
// reachability.
func NewLocalLLMAdapter(baseURL, model string, timeout time.Duration) *LocalLLMAdapter {
	if model == "" {
		model = "qwen2.5:3b"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &LocalLLMAdapter{
		client:  httputil.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

// Initialize probes the endpoint's model listing. A failure leaves the
// adapter unavailable rather than returning a hard error to the caller.
func (a *LocalLLMAdapter) Initialize() error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("llm endpoint unreachable: %w", err)
	}
	httputil.DrainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm endpoint returned status %d", resp.StatusCode)
	}
	a.ready = true
	return nil
}

// IsAvailable reports whether Initialize succeeded.
func (a *LocalLLMAdapter) IsAvailable() bool {
	return a.ready
}

// Analyze sends the text for judgment and parses the structured verdict.
func (a *LocalLLMAdapter) Analyze(ctx context.Context, text string) (*ModelVerdict, error) {
	if !a.ready {
		return nil, ErrModelNotReady
	}

	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: scamSystemPrompt},
			{Role: "user", Content: "INPUT: " + text},
		},
		Temperature: 0.1,
	}

	start := time.Now()
	content, err := a.callChat(ctx, reqBody)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, err
	}

	var verdict ModelVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelParseFailure, err)
	}
	verdict.Confidence = clamp01(verdict.Confidence)
	verdict.LatencyMs = latency
	return &verdict, nil
}

// Close is a no-op; the adapter holds no persistent connection state beyond
// the shared transport.
func (a *LocalLLMAdapter) Close() error {
	a.ready = false
	return nil
}

func (a *LocalLLMAdapter) callChat(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	// Bound the response read. The endpoint is local but still outside our
	// process; a misconfigured server must not be able to OOM us.
	const maxResponseSize = 2 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm API error %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

// extractJSON strips markdown fences and surrounding prose that chat models
// wrap around their JSON payload.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

// === QUOTA WRAPPER ===

// QuotaAdapter wraps any backend with the daily call budget and the
// inference concurrency bound. Refusals are typed so the fusion controller
// can fall back to rule-only verdicts without treating them as failures.
type QuotaAdapter struct {
	backend ModelAdapter
	quota   *QuotaCounter
	slots   *httputil.Semaphore
}

// NewQuotaAdapter wraps backend. dailyLimit <= 0 disables the budget;
// maxConcurrency <= 0 falls back to the semaphore default.
func NewQuotaAdapter(backend ModelAdapter, dailyLimit, maxConcurrency int) *QuotaAdapter {
	return &QuotaAdapter{
		backend: backend,
		quota:   NewQuotaCounter(dailyLimit),
		slots:   httputil.NewSemaphore(maxConcurrency),
	}
}

func (q *QuotaAdapter) Initialize() error { return q.backend.Initialize() }
func (q *QuotaAdapter) IsAvailable() bool { return q.backend.IsAvailable() }
func (q *QuotaAdapter) Close() error      { return q.backend.Close() }

// Analyze admits the call through quota then concurrency, in that order. A
// call refused for concurrency gives its quota unit back.
func (q *QuotaAdapter) Analyze(ctx context.Context, text string) (*ModelVerdict, error) {
	if !q.backend.IsAvailable() {
		return nil, ErrModelNotReady
	}
	if !q.quota.TryAcquire() {
		return nil, ErrModelQuotaExceeded
	}
	if !q.slots.TryAcquire() {
		q.quota.Release()
		return nil, ErrModelBusy
	}
	defer q.slots.Release()

	return q.backend.Analyze(ctx, text)
}

// QuotaUsed reports today's consumed budget.
func (q *QuotaAdapter) QuotaUsed() int64 { return q.quota.Used() }

// QuotaLimit reports the configured daily budget.
func (q *QuotaAdapter) QuotaLimit() int64 { return q.quota.Limit() }
