// Package telemetry provides in-process counters for the fusion engine.
// No external sink: the counters exist so the gateway's /stats endpoint and
// tests can observe how often each pipeline stage runs or abstains.
package telemetry

import "sync/atomic"

// Counters tracks engine activity. All fields are updated atomically and
// safe for concurrent use.
type Counters struct {
	Analyses           atomic.Int64 // Total analysis requests
	ScamVerdicts       atomic.Int64 // Verdicts with isScam=true
	EarlyReturns       atomic.Int64 // Requests resolved by the fast rule path alone
	RegistryLookups    atomic.Int64 // Remote registry lookups attempted
	RegistryHits       atomic.Int64 // Lookups that found a fraud-listed key
	RegistryFailures   atomic.Int64 // Lookups that failed or timed out
	CacheHits          atomic.Int64 // Reputation cache hits
	CacheMisses        atomic.Int64 // Reputation cache misses (incl. expired)
	ModelEscalations   atomic.Int64 // Secondary model invocations
	ModelDeclines      atomic.Int64 // Model failures/parse errors treated as abstention
	QuotaRefusals      atomic.Int64 // Model calls refused by the daily quota
	SemanticMatches    atomic.Int64 // Semantic similarity signals that fired
	AlertsPersisted    atomic.Int64 // Alert records written to the store
	AlertWriteFailures atomic.Int64 // Alert store write failures (non-fatal)
}

// Snapshot is a point-in-time copy of the counters, JSON-ready for /stats.
type Snapshot struct {
	Analyses         int64 `json:"analyses"`
	ScamVerdicts     int64 `json:"scam_verdicts"`
	EarlyReturns     int64 `json:"early_returns"`
	RegistryLookups  int64 `json:"registry_lookups"`
	RegistryHits     int64 `json:"registry_hits"`
	RegistryFailures int64 `json:"registry_failures"`
	CacheHits        int64 `json:"cache_hits"`
	CacheMisses      int64 `json:"cache_misses"`
	ModelEscalations int64 `json:"model_escalations"`
	ModelDeclines    int64 `json:"model_declines"`
	QuotaRefusals    int64 `json:"quota_refusals"`
	SemanticMatches  int64 `json:"semantic_matches"`
	AlertsPersisted  int64 `json:"alerts_persisted"`
	AlertWriteFails  int64 `json:"alert_write_failures"`
}

// NewCounters returns a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// Snapshot returns a consistent-enough copy for monitoring. Individual
// loads are atomic; cross-counter consistency is not required.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Analyses:         c.Analyses.Load(),
		ScamVerdicts:     c.ScamVerdicts.Load(),
		EarlyReturns:     c.EarlyReturns.Load(),
		RegistryLookups:  c.RegistryLookups.Load(),
		RegistryHits:     c.RegistryHits.Load(),
		RegistryFailures: c.RegistryFailures.Load(),
		CacheHits:        c.CacheHits.Load(),
		CacheMisses:      c.CacheMisses.Load(),
		ModelEscalations: c.ModelEscalations.Load(),
		ModelDeclines:    c.ModelDeclines.Load(),
		QuotaRefusals:    c.QuotaRefusals.Load(),
		SemanticMatches:  c.SemanticMatches.Load(),
		AlertsPersisted:  c.AlertsPersisted.Load(),
		AlertWriteFails:  c.AlertWriteFailures.Load(),
	}
}
