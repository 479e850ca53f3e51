// Package detect implements the scam signal fusion engine: the lexical
// scorer, the URL risk analyzer, the secondary-model escalation layer, and
// the fusion controller that combines every partial signal into one final
// Verdict.
package detect

import (
	"github.com/mobiguard/scamshield/pkg/signals"
)

// Method records which stage produced the final confidence.
type Method string

const (
	MethodLexical          Method = "lexical"           // Rule-based text scoring only
	MethodHybrid           Method = "hybrid"            // Lexical + URL risk combined
	MethodExternalRegistry Method = "external_registry" // A fraud registry confirmed the key
	MethodModel            Method = "model"             // Secondary model participated
)

// ScamCategory classifies the kind of scam the evidence points at.
type ScamCategory string

const (
	CategoryUnknown       ScamCategory = "unknown"
	CategoryInvestment    ScamCategory = "investment"
	CategoryTradeFraud    ScamCategory = "trade_fraud"
	CategoryPhishing      ScamCategory = "phishing"
	CategoryImpersonation ScamCategory = "impersonation"
	CategoryLoan          ScamCategory = "loan"
	CategorySafe          ScamCategory = "safe"
)

// Verdict is the final analysis result returned to callers. It crosses the
// component boundary by value; nothing inside the engine retains it.
//
// Invariant: Confidence is clamped to [0,1] and IsScam is true iff
// Confidence exceeds the scam threshold OR a model explicitly flagged scam.
// Intermediate fusion states may violate this; the returned object never
// does.
type Verdict struct {
	IsScam          bool         `json:"is_scam"`
	Confidence      float64      `json:"confidence"`
	Reasons         []string     `json:"reasons"`
	DetectedSignals []string     `json:"detected_signals"`
	Method          Method       `json:"method"`
	Category        ScamCategory `json:"scam_category"`
	AdvisoryMessage string       `json:"advisory_message,omitempty"`
	CitedExcerpts   []string     `json:"cited_excerpts,omitempty"`
}

// PartialResult is the lexical scorer's contribution. The scorer never
// decides finality; the fusion controller does.
type PartialResult struct {
	Confidence      float64
	Reasons         []string
	DetectedSignals []string

	// Categories are the structured semantic tags of everything that
	// matched. Category inference prefers these over re-parsing the
	// human-readable reason strings.
	Categories map[signals.Category]bool

	// Extracted lookup candidates for the reputation registries.
	PhoneNumbers   []string
	AccountNumbers []string
}

// HasCategory reports whether any matched signal carried the category.
func (p *PartialResult) HasCategory(c signals.Category) bool {
	return p.Categories[c]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dedupeStrings returns the input with duplicates removed, preserving the
// first occurrence's position.
func dedupeStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
