package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mobiguard/scamshield/pkg/config"
	"github.com/mobiguard/scamshield/pkg/registry"
	"github.com/mobiguard/scamshield/pkg/signals"
	"github.com/mobiguard/scamshield/pkg/telemetry"
)

// Engine is the fusion controller. It runs the fast local stages, then
// escalates through the reputation registries and the secondary model only
// while the evidence stays inconclusive. Every enrichment stage is
// optional; a nil component simply abstains.
//
// Request flow: lexical+URL (concurrent) -> early return -> semantic and
// combination bonuses -> registry lookups -> model escalation -> finalize.
type Engine struct {
	cfg      *config.Config
	lexical  *LexicalScorer
	urls     *UrlRiskAnalyzer
	phoneReg *registry.Client // nil when no phone registry configured
	acctReg  *registry.Client // nil when no account registry configured
	model    ModelAdapter     // nil when no backend detected
	semantic *SemanticMatcher // nil when no embedder configured
	counters *telemetry.Counters
}

// EngineOption customizes optional engine components.
type EngineOption func(*Engine)

// WithPhoneRegistry attaches the phone reputation client.
func WithPhoneRegistry(c *registry.Client) EngineOption {
	return func(e *Engine) { e.phoneReg = c }
}

// WithAccountRegistry attaches the account reputation client.
func WithAccountRegistry(c *registry.Client) EngineOption {
	return func(e *Engine) { e.acctReg = c }
}

// WithModel attaches the secondary model adapter.
func WithModel(m ModelAdapter) EngineOption {
	return func(e *Engine) { e.model = m }
}

// WithSemanticMatcher attaches the embedding similarity stage.
func WithSemanticMatcher(sm *SemanticMatcher) EngineOption {
	return func(e *Engine) { e.semantic = sm }
}

// NewEngine creates a fusion engine over the always-available local stages
// plus whatever optional components the options attach.
func NewEngine(cfg *config.Config, lexical *LexicalScorer, counters *telemetry.Counters, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:      cfg,
		lexical:  lexical,
		urls:     NewUrlRiskAnalyzer(),
		counters: counters,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the full fusion pipeline over one captured text.
func (e *Engine) Analyze(ctx context.Context, text string) *Verdict {
	e.counters.Analyses.Add(1)

	// === STAGE 1: LEXICAL + URL (concurrent, pure) ===
	var (
		partial PartialResult
		urlRes  UrlResult
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		partial = e.lexical.Score(text)
	}()
	go func() {
		defer wg.Done()
		urlRes = e.urls.Analyze(text)
	}()
	wg.Wait()

	urlContributed := len(urlRes.SuspiciousURLs) > 0
	confidence := partial.Confidence
	if urlContributed {
		confidence = max(partial.Confidence, urlRes.RiskScore) + urlRes.RiskScore*e.cfg.URLRiskFactor
	}
	confidence = clamp01(confidence)

	reasons := append([]string{}, partial.Reasons...)
	reasons = append(reasons, urlRes.Reasons...)
	detected := append([]string{}, partial.DetectedSignals...)
	detected = append(detected, urlRes.SuspiciousURLs...)

	method := MethodLexical
	if urlContributed {
		method = MethodHybrid
	}

	// === STAGE 2: EARLY RETURN ===
	// The two local stages are treated as conclusive above the threshold;
	// no remote call can make the verdict more actionable.
	if confidence > e.cfg.EarlyReturnThreshold {
		e.counters.EarlyReturns.Add(1)
		return e.finalize(confidence, false, method, &partial, reasons, detected, nil)
	}

	// === STAGE 3: BONUSES ===
	if e.semantic != nil && e.semantic.IsReady() {
		if match, err := e.semantic.Match(ctx, text); err == nil && match.IsMatch {
			e.counters.SemanticMatches.Add(1)
			confidence = clamp01(confidence + e.cfg.SemanticBonus)
			reasons = append(reasons, fmt.Sprintf(
				"resembles a known %s scam script (similarity %.2f)", match.Category, match.Score))
			if sc := signalCategoryFor(match.Category); sc != "" {
				partial.Categories[sc] = true
			}
		}
	}

	if confidence > e.cfg.BonusThreshold && urlContributed &&
		partial.HasCategory(signals.CategoryUrgency) && partial.HasCategory(signals.CategoryMoneyMovement) {
		confidence = clamp01(confidence + e.cfg.URLComboBonus)
		reasons = append(reasons, "combination: urgency + money movement + suspicious URL")
	}

	// === STAGE 4: REGISTRY LOOKUPS ===
	// Only when a lookup key was extracted and the run is not already
	// conclusive. A fraud-listed hit is near-definitive; a failed lookup is
	// logged and fusion proceeds on the signals that succeeded.
	if hit, reason := e.consultRegistries(ctx, &partial); hit {
		confidence = max(confidence, 0.9)
		method = MethodExternalRegistry
		reasons = append(reasons, reason)
		return e.finalize(confidence, false, method, &partial, reasons, detected, nil)
	}

	// === STAGE 5: MODEL ESCALATION ===
	// Only inside the ambiguous band: below it the text is clearly safe,
	// above it the rules already decided. The model sees the raw text plus
	// a summary of the rule evidence.
	var modelVerdict *ModelVerdict
	if e.model != nil && confidence >= e.cfg.ModelBandLow && confidence < e.cfg.ModelBandHigh {
		modelVerdict = e.escalate(ctx, text, &partial, &urlRes)
	}

	modelFlagged := false
	if modelVerdict != nil {
		method = MethodModel
		confidence = clamp01(confidence*e.cfg.RuleWeight + modelVerdict.Confidence*e.cfg.ModelWeight)
		modelFlagged = modelVerdict.IsScam
		reasons = append(reasons, modelVerdict.Reasons...)
	}

	return e.finalize(confidence, modelFlagged, method, &partial, reasons, detected, modelVerdict)
}

// consultRegistries looks up every extracted phone and account key against
// its registry. Returns on the first fraud-listed hit.
func (e *Engine) consultRegistries(ctx context.Context, partial *PartialResult) (bool, string) {
	type job struct {
		client *registry.Client
		keys   []string
	}
	jobs := []job{
		{e.phoneReg, partial.PhoneNumbers},
		{e.acctReg, partial.AccountNumbers},
	}

	for _, j := range jobs {
		if j.client == nil {
			continue
		}
		for _, key := range j.keys {
			e.counters.RegistryLookups.Add(1)
			verdict, err := j.client.Lookup(ctx, key)
			if err != nil {
				e.counters.RegistryFailures.Add(1)
				if !errors.Is(err, registry.ErrInvalidInput) {
					log.Printf("[fusion] registry lookup failed: %v", err)
				}
				continue
			}
			if verdict.FraudListed {
				e.counters.RegistryHits.Add(1)
				return true, fmt.Sprintf(
					"%s registry lists this identifier as fraud-reported (%d report(s))",
					verdict.Source, verdict.ReportCount)
			}
		}
	}
	return false, ""
}

// escalate invokes the secondary model. Every refusal and failure degrades
// to nil: the rule-based result stands on its own.
func (e *Engine) escalate(ctx context.Context, text string, partial *PartialResult, urlRes *UrlResult) *ModelVerdict {
	e.counters.ModelEscalations.Add(1)

	verdict, err := e.model.Analyze(ctx, BuildModelInput(text, partial, urlRes))
	if err != nil {
		e.counters.ModelDeclines.Add(1)
		switch {
		case errors.Is(err, ErrModelQuotaExceeded):
			e.counters.QuotaRefusals.Add(1)
		case errors.Is(err, ErrModelNotReady), errors.Is(err, ErrModelBusy):
			// expected degradation, not worth logging per request
		default:
			log.Printf("[fusion] model escalation failed: %v", err)
		}
		return nil
	}
	return verdict
}

// finalize builds the immutable Verdict: clamp, threshold, category,
// advisory, de-duplication. The returned object always satisfies
// isScam == confidence > threshold || model explicitly flagged.
func (e *Engine) finalize(confidence float64, modelFlagged bool, method Method,
	partial *PartialResult, reasons, detected []string, modelVerdict *ModelVerdict) *Verdict {

	confidence = clamp01(confidence)
	isScam := confidence > e.cfg.ScamThreshold || modelFlagged

	category := CategorySafe
	if isScam {
		category = InferCategory(partial, reasons)
		if modelVerdict != nil && modelVerdict.Category != "" &&
			modelVerdict.Category != string(CategoryUnknown) {
			category = ScamCategory(modelVerdict.Category)
		}
	}

	advisory := ""
	var excerpts []string
	if isScam {
		if modelVerdict != nil && modelVerdict.Message != "" {
			advisory = modelVerdict.Message
			excerpts = modelVerdict.Excerpts
		} else {
			advisory = AdvisoryMessage(category)
		}
		e.counters.ScamVerdicts.Add(1)
	}

	return &Verdict{
		IsScam:          isScam,
		Confidence:      confidence,
		Reasons:         dedupeStrings(reasons),
		DetectedSignals: dedupeStrings(detected),
		Method:          method,
		Category:        category,
		AdvisoryMessage: advisory,
		CitedExcerpts:   excerpts,
	}
}

// BuildModelInput summarizes the rule evidence into the model's input
// block. Pure string building; the adapter never sees engine internals.
func BuildModelInput(text string, partial *PartialResult, urlRes *UrlResult) string {
	var b strings.Builder
	b.WriteString(text)

	var evidence []string
	if partial != nil && len(partial.DetectedSignals) > 0 {
		evidence = append(evidence, "matched signals: "+strings.Join(partial.DetectedSignals, ", "))
	}
	if urlRes != nil && len(urlRes.SuspiciousURLs) > 0 {
		evidence = append(evidence, "suspicious URLs: "+strings.Join(urlRes.SuspiciousURLs, ", "))
	}
	if len(evidence) > 0 {
		b.WriteString("\n\n[rule-based evidence: ")
		b.WriteString(strings.Join(evidence, "; "))
		b.WriteString("]")
	}
	return b.String()
}
