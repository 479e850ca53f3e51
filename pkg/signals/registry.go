// Package signals provides the weighted signal tables used by the lexical
// scorer. All regular expressions are compiled once when the registry is
// built and shared across analysis requests.
//
// Design principles:
// - COMPILE ONCE: structural patterns compiled at construction, not per-request
// - DRY: single source of truth for scam keywords and shapes
// - CATEGORIZED: every signal carries a semantic category so the final
//   verdict's scam category comes from structured tags, not from re-parsing
//   generated reason text
// - TUNABLE: tier weights are injected, tables replaceable from YAML
package signals

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier is the severity tier of a keyword signal. Tiers are monotonic:
// Critical > High > Medium. A single Medium hit must never alone cross the
// scam threshold; the default weights guarantee that.
type Tier int

const (
	TierCritical Tier = iota
	TierHigh
	TierMedium
)

// String returns the lowercase tier name used in reasons and YAML files.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "unknown"
	}
}

// Category is the semantic category a signal belongs to. The fusion layer
// maps categories onto the final verdict's scam category.
type Category string

const (
	CategoryUrgency       Category = "urgency"
	CategoryMoneyMovement Category = "money_movement"
	CategoryCredential    Category = "credential"
	CategoryInvestment    Category = "investment"
	CategoryImpersonation Category = "impersonation"
	CategoryLoan          Category = "loan"
	CategoryTradeFraud    Category = "trade_fraud"
	CategoryContact       Category = "contact"
	CategoryStructural    Category = "structural"
)

// Keyword is a weighted substring signal. Matching is case-insensitive
// substring containment over the normalized text.
type Keyword struct {
	Text     string   `yaml:"text"`
	Tier     Tier     `yaml:"-"`
	Category Category `yaml:"category"`
}

// StructuralPattern is a compiled shape signal (account number, phone
// number, national ID, money amount, embedded suspicious URL).
//
// RequiresCorroboration marks patterns whose isolated occurrence is
// legitimate UI noise: a bare phone-number shape appears constantly in
// dialers, keyboards and auto-fill. Such a pattern's weight only counts
// when at least one other structural pattern or keyword also matched.
type StructuralPattern struct {
	Name                  string
	Regex                 *regexp.Regexp
	Weight                float64
	RequiresCorroboration bool
	Category              Category
}

// Weights holds the per-tier confidence contribution of one keyword hit.
type Weights struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultWeights are the documented tier weights (spec'd constants, tunable
// through pkg/config).
func DefaultWeights() Weights {
	return Weights{Critical: 0.4, High: 0.25, Medium: 0.15}
}

// ForTier returns the weight of a single keyword hit at the given tier.
func (w Weights) ForTier(t Tier) float64 {
	switch t {
	case TierCritical:
		return w.Critical
	case TierHigh:
		return w.High
	default:
		return w.Medium
	}
}

// Registry holds the immutable signal tables for one engine instance.
// Built once at startup; safe for concurrent reads without locking.
type Registry struct {
	weights    Weights
	byTier     map[Tier][]Keyword
	structural []*StructuralPattern
}

// NewRegistry builds a registry from the built-in tables.
func NewRegistry(weights Weights) *Registry {
	r := &Registry{
		weights: weights,
		byTier:  make(map[Tier][]Keyword),
	}
	r.registerDefaultKeywords()
	r.registerDefaultStructural()
	return r
}

// NewRegistryFromFile builds a registry from a YAML signal file, falling
// back tier-by-tier to the built-in tables for anything the file omits.
func NewRegistryFromFile(path string, weights Weights) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signal config: %w", err)
	}

	var file signalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse signal config: %w", err)
	}

	r := &Registry{
		weights: weights,
		byTier:  make(map[Tier][]Keyword),
	}

	if len(file.Keywords.Critical) == 0 {
		r.registerCriticalKeywords()
	} else {
		for _, k := range file.Keywords.Critical {
			r.addKeyword(k.Text, TierCritical, Category(k.Category))
		}
	}
	if len(file.Keywords.High) == 0 {
		r.registerHighKeywords()
	} else {
		for _, k := range file.Keywords.High {
			r.addKeyword(k.Text, TierHigh, Category(k.Category))
		}
	}
	if len(file.Keywords.Medium) == 0 {
		r.registerMediumKeywords()
	} else {
		for _, k := range file.Keywords.Medium {
			r.addKeyword(k.Text, TierMedium, Category(k.Category))
		}
	}

	if len(file.Structural) == 0 {
		r.registerDefaultStructural()
	} else {
		for _, s := range file.Structural {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return nil, fmt.Errorf("signal %q: %w", s.Name, err)
			}
			r.structural = append(r.structural, &StructuralPattern{
				Name:                  s.Name,
				Regex:                 re,
				Weight:                s.Weight,
				RequiresCorroboration: s.RequiresCorroboration,
				Category:              Category(s.Category),
			})
		}
	}

	return r, nil
}

// signalFile is the YAML shape of an external signal table.
type signalFile struct {
	Keywords struct {
		Critical []keywordEntry `yaml:"critical"`
		High     []keywordEntry `yaml:"high"`
		Medium   []keywordEntry `yaml:"medium"`
	} `yaml:"keywords"`
	Structural []structuralEntry `yaml:"structural"`
}

type keywordEntry struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

type structuralEntry struct {
	Name                  string  `yaml:"name"`
	Pattern               string  `yaml:"pattern"`
	Weight                float64 `yaml:"weight"`
	RequiresCorroboration bool    `yaml:"requires_corroboration"`
	Category              string  `yaml:"category"`
}

func (r *Registry) addKeyword(text string, tier Tier, cat Category) {
	r.byTier[tier] = append(r.byTier[tier], Keyword{
		Text:     strings.ToLower(text),
		Tier:     tier,
		Category: cat,
	})
}

func (r *Registry) registerStructural(name, pattern string, weight float64, corroborate bool, cat Category) {
	r.structural = append(r.structural, &StructuralPattern{
		Name:                  name,
		Regex:                 regexp.MustCompile(pattern),
		Weight:                weight,
		RequiresCorroboration: corroborate,
		Category:              cat,
	})
}

// Weights returns the tier weights this registry was built with.
func (r *Registry) Weights() Weights {
	return r.weights
}

// KeywordsByTier returns the keyword set of one tier.
// Returns an empty slice if the tier has no keywords (never nil).
func (r *Registry) KeywordsByTier(t Tier) []Keyword {
	if kws, ok := r.byTier[t]; ok {
		return kws
	}
	return []Keyword{}
}

// Structural returns all structural patterns.
func (r *Registry) Structural() []*StructuralPattern {
	return r.structural
}

// TotalKeywords returns the total count of registered keywords.
func (r *Registry) TotalKeywords() int {
	return len(r.byTier[TierCritical]) + len(r.byTier[TierHigh]) + len(r.byTier[TierMedium])
}
