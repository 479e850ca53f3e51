package detect

import (
	"fmt"
	"strings"

	"github.com/mobiguard/scamshield/pkg/signals"
)

// LexicalScorer is the first-line, always-available detection stage: a pure
// weighted keyword and shape matcher over a single text. No I/O, no shared
// mutable state; the signal registry is immutable after construction, so
// Score is safe to call from any number of goroutines.
type LexicalScorer struct {
	registry   *signals.Registry
	comboBonus float64
}

// NewLexicalScorer creates a scorer over the given signal registry.
// comboBonus is added (capped by the final clamp) when urgency,
// money-movement and credential language all co-occur - that trio is a
// strong scam signature even when the individual hits are modest.
func NewLexicalScorer(registry *signals.Registry, comboBonus float64) *LexicalScorer {
	return &LexicalScorer{
		registry:   registry,
		comboBonus: comboBonus,
	}
}

// Score evaluates one text and returns a partial result. The output is
// never final: the fusion controller decides what a confidence means.
func (s *LexicalScorer) Score(text string) PartialResult {
	normalized := Normalize(text)

	result := PartialResult{
		Categories: make(map[signals.Category]bool),
	}
	weights := s.registry.Weights()
	totalKeywordHits := 0

	// === KEYWORD TIERS ===
	// Distinct hits per tier; each hit contributes the tier weight.
	for _, tier := range []signals.Tier{signals.TierCritical, signals.TierHigh, signals.TierMedium} {
		var examples []string
		hits := 0
		for _, kw := range s.registry.KeywordsByTier(tier) {
			if strings.Contains(normalized, kw.Text) {
				hits++
				result.Categories[kw.Category] = true
				result.DetectedSignals = append(result.DetectedSignals, kw.Text)
				if len(examples) < 3 {
					examples = append(examples, kw.Text)
				}
			}
		}
		if hits == 0 {
			continue
		}
		totalKeywordHits += hits
		result.Confidence += float64(hits) * weights.ForTier(tier)
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"%s-tier keywords: %d hit(s) (e.g. %s)",
			tier, hits, strings.Join(examples, ", ")))
	}

	// === STRUCTURAL PATTERNS ===
	// A shape on its own is UI noise - a phone number in a dialer, an
	// amount in a banking app. Corroboration rule: a corroboration-requiring
	// pattern's weight counts only when two or more structural patterns
	// matched, or when at least one keyword matched alongside it.
	var matched []*signals.StructuralPattern
	for _, sp := range s.registry.Structural() {
		if sp.Regex.MatchString(normalized) {
			matched = append(matched, sp)
			result.DetectedSignals = append(result.DetectedSignals, sp.Name)
			switch sp.Name {
			case "phone_shape":
				result.PhoneNumbers = extractDigitKeys(sp, normalized)
			case "account_shape":
				result.AccountNumbers = extractDigitKeys(sp, normalized)
			}
		}
	}

	var counted []string
	for _, sp := range matched {
		corroborated := len(matched) >= 2 || totalKeywordHits >= 1
		if sp.RequiresCorroboration && !corroborated {
			continue
		}
		result.Confidence += sp.Weight
		result.Categories[sp.Category] = true
		counted = append(counted, sp.Name)
	}
	if len(counted) > 0 {
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"structural patterns: %s", strings.Join(counted, ", ")))
	}

	// === COMBINATION BONUS ===
	if result.Categories[signals.CategoryUrgency] &&
		result.Categories[signals.CategoryMoneyMovement] &&
		result.Categories[signals.CategoryCredential] {
		result.Confidence += s.comboBonus
		result.Reasons = append(result.Reasons,
			"combination: urgency + money movement + credential request")
	}

	result.Confidence = clamp01(result.Confidence)
	result.DetectedSignals = dedupeStrings(result.DetectedSignals)
	return result
}

// extractDigitKeys returns the digit-only form of every match of a
// structural pattern, de-duplicated. These become registry lookup keys.
func extractDigitKeys(sp *signals.StructuralPattern, text string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, m := range sp.Regex.FindAllString(text, -1) {
		var b strings.Builder
		for _, r := range m {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		key := b.String()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
