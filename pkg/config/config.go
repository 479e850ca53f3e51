// Package config holds all tunable settings for the ScamShield engine.
//
// Every numeric threshold in the fusion pipeline (scam cutoff, early-return
// bound, tier weights, combination bonuses) was tuned empirically against
// real scam corpora. They are deliberately exposed here as configuration
// rather than buried as literals so deployments can re-tune without a
// rebuild, and so tests can verify the documented defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelBackend selects the secondary (escalation) model implementation.
type ModelBackend string

const (
	BackendNone     ModelBackend = "none"     // Rules only, no model escalation
	BackendLocalLLM ModelBackend = "localllm" // OpenAI-compatible local endpoint (e.g. Ollama)
	BackendHugot    ModelBackend = "hugot"    // Local ONNX text-classification model via Hugot
	BackendAuto     ModelBackend = "auto"     // Probe hugot first, then local LLM, else none
)

// CacheBackend selects the reputation-cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory" // In-process TTL+LRU cache (default)
	CacheRedis  CacheBackend = "redis"  // Shared Redis cache for multi-instance deployments
)

// Config holds global settings for the ScamShield engine and gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Detection Thresholds (0.0 - 1.0) ===
	ScamThreshold        float64 // Confidence above this = scam (default: 0.5)
	EarlyReturnThreshold float64 // Rule confidence above this skips registry+model (default: 0.7)
	BonusThreshold       float64 // Confidence above this applies the urgency+money+URL bonus (default: 0.4)
	ModelBandLow         float64 // Lower bound of the ambiguous band that escalates to the model (default: 0.3)
	ModelBandHigh        float64 // Upper bound of the ambiguous band (default: 0.7)

	// === Signal Weights ===
	CriticalWeight float64 // Per-hit weight for critical-tier keywords (default: 0.4)
	HighWeight     float64 // Per-hit weight for high-tier keywords (default: 0.25)
	MediumWeight   float64 // Per-hit weight for medium-tier keywords (default: 0.15)
	ComboBonus     float64 // Bonus when urgency+money+credential co-occur (default: 0.2)
	URLComboBonus  float64 // Bonus when urgency+money+suspicious URL co-occur (default: 0.15)
	URLRiskFactor  float64 // Fraction of URL risk added on top of the max() combine (default: 0.3)
	RuleWeight     float64 // Rule share in the rule/model weighted average (default: 0.4)
	ModelWeight    float64 // Model share in the rule/model weighted average (default: 0.6)

	// === Signal Tables ===
	SignalConfigPath string // Optional YAML file overriding the built-in signal tables

	// === Reputation Registries ===
	PhoneRegistryURL   string        // Base URL of the phone fraud registry ("" disables)
	AccountRegistryURL string        // Base URL of the account fraud registry ("" disables)
	RegistryTimeout    time.Duration // Per remote call (default: 5s)
	SessionTTL         time.Duration // Registry session lifetime (default: 30m)
	CacheBackend       CacheBackend  // "memory" or "redis"
	CacheTTL           time.Duration // Reputation cache entry lifetime (default: 1h)
	CacheMaxEntries    int           // LRU bound for the in-process cache (default: 512)
	RedisAddr          string        // Redis address when CacheBackend=redis

	// === Secondary Model ===
	ModelBackend        ModelBackend  // Which escalation backend to use (default: auto)
	ModelBaseURL        string        // OpenAI-compatible endpoint for localllm backend
	ModelName           string        // Model identifier for the localllm backend
	ModelPath           string        // ONNX model directory for the hugot backend
	ModelTimeout        time.Duration // Per inference call (default: 20s)
	ModelDailyQuota     int           // Max model calls per day (default: 100)
	ModelMaxConcurrency int           // Concurrent inference bound (default: 4)

	// === Semantic Similarity (optional enrichment) ===
	EnableSemantic    bool    // Enable chromem-based scam-example similarity
	EmbeddingBaseURL  string  // Ollama-compatible embedding endpoint
	EmbeddingModel    string  // Embedding model name
	SemanticThreshold float32 // Similarity considered a match (default: 0.72)
	SemanticBonus     float64 // Confidence added on a semantic match (default: 0.15)

	// === Alert Persistence ===
	PostgresDSN      string  // Postgres DSN for the alert store ("" disables)
	DisplayThreshold float64 // Min confidence for persisting/displaying an alert (default: 0.5)

	// === Gateway ===
	ListenAddr string // HTTP listen address (default: ":8780")
}

// NewDefaultConfig creates a Config with the documented defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ScamThreshold:        GetEnvFloat("SCAMSHIELD_SCAM_THRESHOLD", 0.5),
		EarlyReturnThreshold: GetEnvFloat("SCAMSHIELD_EARLY_RETURN_THRESHOLD", 0.7),
		BonusThreshold:       GetEnvFloat("SCAMSHIELD_BONUS_THRESHOLD", 0.4),
		ModelBandLow:         GetEnvFloat("SCAMSHIELD_MODEL_BAND_LOW", 0.3),
		ModelBandHigh:        GetEnvFloat("SCAMSHIELD_MODEL_BAND_HIGH", 0.7),

		CriticalWeight: GetEnvFloat("SCAMSHIELD_CRITICAL_WEIGHT", 0.4),
		HighWeight:     GetEnvFloat("SCAMSHIELD_HIGH_WEIGHT", 0.25),
		MediumWeight:   GetEnvFloat("SCAMSHIELD_MEDIUM_WEIGHT", 0.15),
		ComboBonus:     GetEnvFloat("SCAMSHIELD_COMBO_BONUS", 0.2),
		URLComboBonus:  GetEnvFloat("SCAMSHIELD_URL_COMBO_BONUS", 0.15),
		URLRiskFactor:  GetEnvFloat("SCAMSHIELD_URL_RISK_FACTOR", 0.3),
		RuleWeight:     GetEnvFloat("SCAMSHIELD_RULE_WEIGHT", 0.4),
		ModelWeight:    GetEnvFloat("SCAMSHIELD_MODEL_WEIGHT", 0.6),

		SignalConfigPath: GetEnv("SCAMSHIELD_SIGNAL_CONFIG", ""),

		PhoneRegistryURL:   GetEnv("SCAMSHIELD_PHONE_REGISTRY_URL", ""),
		AccountRegistryURL: GetEnv("SCAMSHIELD_ACCOUNT_REGISTRY_URL", ""),
		RegistryTimeout:    GetEnvDuration("SCAMSHIELD_REGISTRY_TIMEOUT", 5*time.Second),
		SessionTTL:         GetEnvDuration("SCAMSHIELD_SESSION_TTL", 30*time.Minute),
		CacheBackend:       CacheBackend(GetEnv("SCAMSHIELD_CACHE_BACKEND", string(CacheMemory))),
		CacheTTL:           GetEnvDuration("SCAMSHIELD_CACHE_TTL", time.Hour),
		CacheMaxEntries:    clampInt(GetEnvInt("SCAMSHIELD_CACHE_MAX_ENTRIES", 512), 1, 1<<20),
		RedisAddr:          GetEnv("SCAMSHIELD_REDIS_ADDR", "localhost:6379"),

		ModelBackend:        detectModelBackend(),
		ModelBaseURL:        GetEnv("SCAMSHIELD_MODEL_BASE_URL", "http://localhost:11434/v1"),
		ModelName:           GetEnv("SCAMSHIELD_MODEL_NAME", "qwen2.5:3b"),
		ModelPath:           GetEnv("SCAMSHIELD_MODEL_PATH", "./models/scam-classifier"),
		ModelTimeout:        GetEnvDuration("SCAMSHIELD_MODEL_TIMEOUT", 20*time.Second),
		ModelDailyQuota:     clampInt(GetEnvInt("SCAMSHIELD_MODEL_DAILY_QUOTA", 100), 0, 1<<20),
		ModelMaxConcurrency: clampInt(GetEnvInt("SCAMSHIELD_MODEL_MAX_CONCURRENCY", 4), 1, 256),

		EnableSemantic:    GetEnvBool("SCAMSHIELD_ENABLE_SEMANTIC", false),
		EmbeddingBaseURL:  GetEnv("SCAMSHIELD_EMBEDDING_BASE_URL", "http://localhost:11434"),
		EmbeddingModel:    GetEnv("SCAMSHIELD_EMBEDDING_MODEL", "nomic-embed-text"),
		SemanticThreshold: float32(GetEnvFloat("SCAMSHIELD_SEMANTIC_THRESHOLD", 0.72)),
		SemanticBonus:     GetEnvFloat("SCAMSHIELD_SEMANTIC_BONUS", 0.15),

		PostgresDSN:      GetEnv("SCAMSHIELD_POSTGRES_DSN", ""),
		DisplayThreshold: GetEnvFloat("SCAMSHIELD_DISPLAY_THRESHOLD", 0.5),

		ListenAddr: GetEnv("SCAMSHIELD_LISTEN_ADDR", ":8780"),
	}
}

// NewLocalConfig creates a Config for fully-local operation: no registries,
// no Redis, no Postgres. Rules plus whatever local model artifacts are
// present. This is the on-device profile.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.PhoneRegistryURL = ""
	cfg.AccountRegistryURL = ""
	cfg.CacheBackend = CacheMemory
	cfg.PostgresDSN = ""
	return cfg
}

func detectModelBackend() ModelBackend {
	if b := os.Getenv("SCAMSHIELD_MODEL_BACKEND"); b != "" {
		return ModelBackend(strings.ToLower(b))
	}
	return BackendAuto
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing
// These are exported for use by other packages (e.g., pkg/detect)

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable
// (Go duration syntax, e.g. "30s", "1h") or a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
