package detect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mobiguard/scamshield/pkg/config"
	"github.com/mobiguard/scamshield/pkg/registry"
	"github.com/mobiguard/scamshield/pkg/telemetry"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *telemetry.Counters) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	counters := telemetry.NewCounters()
	engine := NewEngine(cfg, newTestScorer(), counters, opts...)
	return engine, counters
}

func TestAnalyzeEarlyReturnSkipsModel(t *testing.T) {
	backend := &stubAdapter{available: true, verdict: &ModelVerdict{IsScam: true, Confidence: 0.9}}
	engine, counters := newTestEngine(t, WithModel(backend))

	v := engine.Analyze(context.Background(),
		"급전 필요합니다. 계좌번호 알려주세요. 인증번호도 보내주세요.")

	if !v.IsScam {
		t.Error("IsScam = false for a textbook scam message")
	}
	if v.Confidence <= 0.7 {
		t.Errorf("Confidence = %v, want > 0.7", v.Confidence)
	}
	if v.Method != MethodLexical {
		t.Errorf("Method = %s, want lexical (no URL contributed)", v.Method)
	}
	if backend.calls != 0 {
		t.Errorf("model called %d times on a conclusive rule verdict, want 0", backend.calls)
	}
	if counters.EarlyReturns.Load() != 1 {
		t.Errorf("EarlyReturns = %d, want 1", counters.EarlyReturns.Load())
	}
}

func TestAnalyzeBenignText(t *testing.T) {
	engine, _ := newTestEngine(t)

	v := engine.Analyze(context.Background(), "내일 점심에 회사 앞에서 만나요. 날씨가 좋네요.")

	if v.IsScam {
		t.Error("IsScam = true for benign text")
	}
	if v.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", v.Confidence)
	}
	if v.AdvisoryMessage != "" {
		t.Errorf("AdvisoryMessage = %q, want empty for safe verdict", v.AdvisoryMessage)
	}
	if v.Category != CategorySafe {
		t.Errorf("Category = %s, want safe", v.Category)
	}
}

func TestAnalyzeHybridMethodWithURL(t *testing.T) {
	engine, _ := newTestEngine(t)

	v := engine.Analyze(context.Background(),
		"긴급! 인증번호 확인 필요 http://kbstar.com.evil.tk/login")

	if !v.IsScam {
		t.Error("IsScam = false, want true")
	}
	if v.Method != MethodHybrid {
		t.Errorf("Method = %s, want hybrid when a suspicious URL contributed", v.Method)
	}
}

func TestAnalyzeModelEscalationInAmbiguousBand(t *testing.T) {
	backend := &stubAdapter{available: true, verdict: &ModelVerdict{
		IsScam:     true,
		Confidence: 0.9,
		Category:   "trade_fraud",
		Message:    "선입금을 요구하는 중고거래 사기로 의심됩니다.",
		Reasons:    []string{"advance payment pressure in a trade context"},
	}}
	engine, counters := newTestEngine(t, WithModel(backend))

	// 송금 (0.25) + corroborated account shape (0.15) = 0.40: ambiguous.
	v := engine.Analyze(context.Background(), "송금 부탁해요 110-123-456789")

	if backend.calls != 1 {
		t.Fatalf("model called %d times, want 1", backend.calls)
	}
	if v.Method != MethodModel {
		t.Errorf("Method = %s, want model", v.Method)
	}
	// Weighted average: 0.40*0.4 + 0.9*0.6 = 0.70
	if v.Confidence < 0.69 || v.Confidence > 0.71 {
		t.Errorf("Confidence = %v, want ~0.70", v.Confidence)
	}
	if !v.IsScam {
		t.Error("IsScam = false, want true")
	}
	if v.Category != CategoryTradeFraud {
		t.Errorf("Category = %s, want trade_fraud from the model", v.Category)
	}
	if v.AdvisoryMessage != backend.verdict.Message {
		t.Errorf("AdvisoryMessage = %q, want the model's message", v.AdvisoryMessage)
	}
	if counters.ModelEscalations.Load() != 1 {
		t.Errorf("ModelEscalations = %d, want 1", counters.ModelEscalations.Load())
	}
}

func TestAnalyzeModelExplicitScamOverridesBorderline(t *testing.T) {
	// Model asserts scam but with low numeric confidence: the weighted
	// average stays under the threshold, the explicit judgment still wins.
	backend := &stubAdapter{available: true, verdict: &ModelVerdict{
		IsScam:     true,
		Confidence: 0.4,
	}}
	engine, _ := newTestEngine(t, WithModel(backend))

	v := engine.Analyze(context.Background(), "송금 부탁해요 110-123-456789")

	// 0.40*0.4 + 0.4*0.6 = 0.40 <= 0.5, yet the model flagged scam.
	if v.Confidence > 0.5 {
		t.Fatalf("Confidence = %v, expected the borderline average below threshold", v.Confidence)
	}
	if !v.IsScam {
		t.Error("IsScam = false, want true via explicit model assertion")
	}
}

func TestAnalyzeModelFailureDegradesToRules(t *testing.T) {
	backend := &stubAdapter{available: true, err: errors.New("backend exploded")}
	engine, counters := newTestEngine(t, WithModel(backend))

	v := engine.Analyze(context.Background(), "송금 부탁해요 110-123-456789")

	if v.Method == MethodModel {
		t.Error("Method = model although the model failed")
	}
	if v.IsScam {
		t.Errorf("IsScam = true at rule confidence %v, want false", v.Confidence)
	}
	if counters.ModelDeclines.Load() != 1 {
		t.Errorf("ModelDeclines = %d, want 1", counters.ModelDeclines.Load())
	}
}

func TestAnalyzeQuotaRefusalCounted(t *testing.T) {
	backend := &stubAdapter{available: true, verdict: &ModelVerdict{Confidence: 0.5}}
	quota := NewQuotaAdapter(backend, 1, 4)
	engine, counters := newTestEngine(t, WithModel(quota))

	engine.Analyze(context.Background(), "송금 부탁해요 110-123-456789")
	engine.Analyze(context.Background(), "송금 부탁해요 110-123-456789")

	if counters.QuotaRefusals.Load() != 1 {
		t.Errorf("QuotaRefusals = %d, want 1", counters.QuotaRefusals.Load())
	}
}

// fakeRegistryServer simulates the fraud registry's session+lookup API.
func fakeRegistryServer(t *testing.T, listed map[string]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-1"})
	})
	mux.HandleFunc("GET /lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session-ID") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		count, ok := listed[r.URL.Query().Get("key")]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fraud_listed": ok,
			"report_count": count,
		})
	})
	return httptest.NewServer(mux)
}

func TestAnalyzeRegistryHitRaisesConfidence(t *testing.T) {
	srv := fakeRegistryServer(t, map[string]int{"01012345678": 7})
	defer srv.Close()

	client := registry.NewClient("phone", srv.URL,
		registry.NewMemoryCache(16, time.Minute), time.Second, time.Minute)
	engine, counters := newTestEngine(t, WithPhoneRegistry(client))

	v := engine.Analyze(context.Background(), "급전 필요하면 010-1234-5678 로 연락주세요")

	if v.Method != MethodExternalRegistry {
		t.Fatalf("Method = %s, want external_registry", v.Method)
	}
	if v.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want >= 0.9 on a fraud-listed hit", v.Confidence)
	}
	if !v.IsScam {
		t.Error("IsScam = false on a fraud-listed identifier")
	}
	if counters.RegistryHits.Load() != 1 {
		t.Errorf("RegistryHits = %d, want 1", counters.RegistryHits.Load())
	}
}

func TestAnalyzeRegistryFailureDoesNotAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := registry.NewClient("phone", srv.URL,
		registry.NewMemoryCache(16, time.Minute), time.Second, time.Minute)
	engine, counters := newTestEngine(t, WithPhoneRegistry(client))

	v := engine.Analyze(context.Background(), "급전 필요하면 010-1234-5678 로 연락주세요")

	if v == nil {
		t.Fatal("Analyze returned nil on registry failure")
	}
	if v.Method == MethodExternalRegistry {
		t.Error("Method = external_registry although every lookup failed")
	}
	if counters.RegistryFailures.Load() == 0 {
		t.Error("RegistryFailures not counted")
	}
}

func TestAnalyzeVerdictInvariant(t *testing.T) {
	engine, _ := newTestEngine(t)

	// Without a model attached, isScam must equal confidence > threshold
	// for any input, and confidence must stay in [0,1].
	samples := []string{
		"",
		"급전 필요합니다",
		"계좌번호 알려주세요 인증번호도요",
		"점심 뭐 먹을까",
		"http://bit.ly/x 당첨되셨습니다 지금 바로 환급",
		"대포통장 돈세탁 선입금 리딩방 구속영장",
		"010-1234-5678",
		"500만원 송금 바람 110-123-456789",
	}
	for _, text := range samples {
		v := engine.Analyze(context.Background(), text)
		if v.Confidence < 0 || v.Confidence > 1 {
			t.Errorf("Analyze(%q).Confidence = %v out of [0,1]", text, v.Confidence)
		}
		if v.IsScam != (v.Confidence > 0.5) {
			t.Errorf("Analyze(%q): IsScam=%v but Confidence=%v", text, v.IsScam, v.Confidence)
		}
	}
}

func TestBuildModelInput(t *testing.T) {
	partial := &PartialResult{DetectedSignals: []string{"송금", "phone_shape"}}
	urlRes := &UrlResult{SuspiciousURLs: []string{"https://bit.ly/x"}}

	prompt := BuildModelInput("원문 텍스트", partial, urlRes)

	for _, want := range []string{"원문 텍스트", "송금", "phone_shape", "https://bit.ly/x"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
