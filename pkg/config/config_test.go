package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.ScamThreshold != 0.5 {
		t.Errorf("ScamThreshold = %v, want 0.5", cfg.ScamThreshold)
	}
	if cfg.EarlyReturnThreshold != 0.7 {
		t.Errorf("EarlyReturnThreshold = %v, want 0.7", cfg.EarlyReturnThreshold)
	}
	if cfg.ModelBandLow != 0.3 || cfg.ModelBandHigh != 0.7 {
		t.Errorf("model band = [%v, %v), want [0.3, 0.7)", cfg.ModelBandLow, cfg.ModelBandHigh)
	}
	if cfg.CriticalWeight != 0.4 || cfg.HighWeight != 0.25 || cfg.MediumWeight != 0.15 {
		t.Errorf("tier weights = %v/%v/%v, want 0.4/0.25/0.15",
			cfg.CriticalWeight, cfg.HighWeight, cfg.MediumWeight)
	}
	if cfg.RuleWeight+cfg.ModelWeight != 1.0 {
		t.Errorf("rule+model weights = %v, want 1.0", cfg.RuleWeight+cfg.ModelWeight)
	}
	if cfg.RegistryTimeout != 5*time.Second {
		t.Errorf("RegistryTimeout = %v, want 5s", cfg.RegistryTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("CacheBackend = %v, want memory", cfg.CacheBackend)
	}
	if cfg.CacheMaxEntries != 512 {
		t.Errorf("CacheMaxEntries = %d, want 512", cfg.CacheMaxEntries)
	}
	if cfg.ModelBackend != BackendAuto {
		t.Errorf("ModelBackend = %v, want auto", cfg.ModelBackend)
	}
	if cfg.ModelDailyQuota != 100 {
		t.Errorf("ModelDailyQuota = %d, want 100", cfg.ModelDailyQuota)
	}
	if cfg.ListenAddr != ":8780" {
		t.Errorf("ListenAddr = %q, want :8780", cfg.ListenAddr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCAMSHIELD_SCAM_THRESHOLD", "0.6")
	t.Setenv("SCAMSHIELD_MODEL_BACKEND", "LocalLLM")
	t.Setenv("SCAMSHIELD_CACHE_BACKEND", "redis")
	t.Setenv("SCAMSHIELD_REGISTRY_TIMEOUT", "2s")
	t.Setenv("SCAMSHIELD_MODEL_DAILY_QUOTA", "10")

	cfg := NewDefaultConfig()

	if cfg.ScamThreshold != 0.6 {
		t.Errorf("ScamThreshold = %v, want 0.6 from env", cfg.ScamThreshold)
	}
	if cfg.ModelBackend != BackendLocalLLM {
		t.Errorf("ModelBackend = %v, want localllm (case-folded)", cfg.ModelBackend)
	}
	if cfg.CacheBackend != CacheRedis {
		t.Errorf("CacheBackend = %v, want redis", cfg.CacheBackend)
	}
	if cfg.RegistryTimeout != 2*time.Second {
		t.Errorf("RegistryTimeout = %v, want 2s", cfg.RegistryTimeout)
	}
	if cfg.ModelDailyQuota != 10 {
		t.Errorf("ModelDailyQuota = %d, want 10", cfg.ModelDailyQuota)
	}
}

func TestEnvClamping(t *testing.T) {
	t.Setenv("SCAMSHIELD_MODEL_MAX_CONCURRENCY", "0")
	t.Setenv("SCAMSHIELD_CACHE_MAX_ENTRIES", "-5")

	cfg := NewDefaultConfig()

	if cfg.ModelMaxConcurrency != 1 {
		t.Errorf("ModelMaxConcurrency = %d, want clamp to 1", cfg.ModelMaxConcurrency)
	}
	if cfg.CacheMaxEntries != 1 {
		t.Errorf("CacheMaxEntries = %d, want clamp to 1", cfg.CacheMaxEntries)
	}
}

func TestLocalConfigDisablesRemoteSurfaces(t *testing.T) {
	t.Setenv("SCAMSHIELD_PHONE_REGISTRY_URL", "http://example.com")
	t.Setenv("SCAMSHIELD_POSTGRES_DSN", "postgres://x")
	t.Setenv("SCAMSHIELD_CACHE_BACKEND", "redis")

	cfg := NewLocalConfig()

	if cfg.PhoneRegistryURL != "" || cfg.AccountRegistryURL != "" {
		t.Error("local profile kept registry URLs")
	}
	if cfg.PostgresDSN != "" {
		t.Error("local profile kept the Postgres DSN")
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("CacheBackend = %v, want memory in local profile", cfg.CacheBackend)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SCAMSHIELD_TEST_STR", "hello")
	t.Setenv("SCAMSHIELD_TEST_BOOL", "true")
	t.Setenv("SCAMSHIELD_TEST_FLOAT", "0.25")
	t.Setenv("SCAMSHIELD_TEST_INT", "42")
	t.Setenv("SCAMSHIELD_TEST_DUR", "90s")
	t.Setenv("SCAMSHIELD_TEST_BAD", "not-a-number")

	if got := GetEnv("SCAMSHIELD_TEST_STR", "d"); got != "hello" {
		t.Errorf("GetEnv = %q, want hello", got)
	}
	if got := GetEnv("SCAMSHIELD_TEST_UNSET", "d"); got != "d" {
		t.Errorf("GetEnv unset = %q, want default", got)
	}
	if got := GetEnvBool("SCAMSHIELD_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false, want true")
	}
	if got := GetEnvFloat("SCAMSHIELD_TEST_FLOAT", 0); got != 0.25 {
		t.Errorf("GetEnvFloat = %v, want 0.25", got)
	}
	if got := GetEnvInt("SCAMSHIELD_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d, want 42", got)
	}
	if got := GetEnvDuration("SCAMSHIELD_TEST_DUR", 0); got != 90*time.Second {
		t.Errorf("GetEnvDuration = %v, want 90s", got)
	}
	if got := GetEnvInt("SCAMSHIELD_TEST_BAD", 7); got != 7 {
		t.Errorf("GetEnvInt on unparsable = %d, want default 7", got)
	}
	if got := GetEnvFloat("SCAMSHIELD_TEST_BAD", 1.5); got != 1.5 {
		t.Errorf("GetEnvFloat on unparsable = %v, want default 1.5", got)
	}
}
