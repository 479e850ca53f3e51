package detect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeChatServer returns an OpenAI-compatible endpoint whose chat completion
// answers with the given content.
func fakeChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return httptest.NewServer(mux)
}

func TestLocalLLMAdapterAnalyze(t *testing.T) {
	srv := fakeChatServer(t, `{"is_scam": true, "confidence": 0.87, "category": "impersonation",
		"message": "검찰을 사칭한 보이스피싱으로 의심됩니다.",
		"reasons": ["impersonates a prosecutor"], "excerpts": ["검찰청입니다"]}`)
	defer srv.Close()

	a := NewLocalLLMAdapter(srv.URL, "test-model", 5*time.Second)
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !a.IsAvailable() {
		t.Fatal("adapter not available after successful init")
	}

	verdict, err := a.Analyze(context.Background(), "검찰청입니다. 계좌가 범죄에 연루되었습니다.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !verdict.IsScam {
		t.Error("IsScam = false, want true")
	}
	if verdict.Confidence != 0.87 {
		t.Errorf("Confidence = %v, want 0.87", verdict.Confidence)
	}
	if verdict.Category != "impersonation" {
		t.Errorf("Category = %q, want impersonation", verdict.Category)
	}
	if verdict.Message == "" {
		t.Error("Message empty, want the Korean advisory")
	}
}

func TestLocalLLMAdapterStripsMarkdownFences(t *testing.T) {
	srv := fakeChatServer(t, "Here is my analysis:\n```json\n{\"is_scam\": false, \"confidence\": 0.2, \"category\": \"safe\"}\n```")
	defer srv.Close()

	a := NewLocalLLMAdapter(srv.URL, "test-model", 5*time.Second)
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	verdict, err := a.Analyze(context.Background(), "점심 먹자")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if verdict.IsScam {
		t.Error("IsScam = true, want false")
	}
}

func TestLocalLLMAdapterParseFailure(t *testing.T) {
	srv := fakeChatServer(t, "I cannot answer in JSON, sorry.")
	defer srv.Close()

	a := NewLocalLLMAdapter(srv.URL, "test-model", 5*time.Second)
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := a.Analyze(context.Background(), "whatever")
	if !errors.Is(err, ErrModelParseFailure) {
		t.Errorf("err = %v, want ErrModelParseFailure", err)
	}
}

func TestLocalLLMAdapterNotReady(t *testing.T) {
	a := NewLocalLLMAdapter("http://127.0.0.1:1", "test-model", time.Second)

	_, err := a.Analyze(context.Background(), "text")
	if !errors.Is(err, ErrModelNotReady) {
		t.Errorf("err = %v, want ErrModelNotReady before Initialize", err)
	}
}

func TestLocalLLMAdapterInitFailure(t *testing.T) {
	a := NewLocalLLMAdapter("http://127.0.0.1:1", "test-model", time.Second)

	if err := a.Initialize(); err == nil {
		t.Error("Initialize succeeded against an unreachable endpoint")
	}
	if a.IsAvailable() {
		t.Error("adapter available after failed init")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{`prefix {"a": 1} suffix`, `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.input); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// stubAdapter lets quota tests control backend behavior precisely.
type stubAdapter struct {
	available bool
	verdict   *ModelVerdict
	err       error
	calls     int
}

func (s *stubAdapter) Initialize() error { return nil }
func (s *stubAdapter) IsAvailable() bool { return s.available }
func (s *stubAdapter) Close() error      { return nil }
func (s *stubAdapter) Analyze(ctx context.Context, text string) (*ModelVerdict, error) {
	s.calls++
	return s.verdict, s.err
}

func TestQuotaAdapterEnforcesDailyLimit(t *testing.T) {
	backend := &stubAdapter{available: true, verdict: &ModelVerdict{Confidence: 0.5}}
	q := NewQuotaAdapter(backend, 2, 4)

	for i := range 2 {
		if _, err := q.Analyze(context.Background(), "text"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	_, err := q.Analyze(context.Background(), "text")
	if !errors.Is(err, ErrModelQuotaExceeded) {
		t.Errorf("err = %v, want ErrModelQuotaExceeded", err)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 (refusal must precede inference)", backend.calls)
	}
}

func TestQuotaAdapterUnavailableBackend(t *testing.T) {
	backend := &stubAdapter{available: false}
	q := NewQuotaAdapter(backend, 10, 4)

	_, err := q.Analyze(context.Background(), "text")
	if !errors.Is(err, ErrModelNotReady) {
		t.Errorf("err = %v, want ErrModelNotReady", err)
	}
	if q.QuotaUsed() != 0 {
		t.Errorf("quota consumed %d on an unavailable backend, want 0", q.QuotaUsed())
	}
}
