package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/mobiguard/scamshield/pkg/alerts"
	"github.com/mobiguard/scamshield/pkg/config"
	"github.com/mobiguard/scamshield/pkg/detect"
	"github.com/mobiguard/scamshield/pkg/registry"
	"github.com/mobiguard/scamshield/pkg/signals"
	"github.com/mobiguard/scamshield/pkg/telemetry"
)

const Version = "0.1.0"

// Analyzer bundles the engine with its optional collaborators.
// Every component beyond the lexical scorer degrades gracefully when its
// backend is missing.
type Analyzer struct {
	engine   *detect.Engine
	store    *alerts.Store // nil without Postgres
	counters *telemetry.Counters
	model    *detect.QuotaAdapter // nil without a model backend
	cfg      *config.Config
}

// NewAnalyzer wires every configured component, logging what came up.
func NewAnalyzer(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	counters := telemetry.NewCounters()

	reg, err := loadSignalRegistry(cfg)
	if err != nil {
		log.Fatalf("signal registry: %v", err)
	}
	lexical := detect.NewLexicalScorer(reg, cfg.ComboBonus)
	log.Printf("✓ Lexical scorer ready (%d keywords, %d structural patterns)",
		reg.TotalKeywords(), len(reg.Structural()))

	var opts []detect.EngineOption
	a := &Analyzer{counters: counters, cfg: cfg}

	// Reputation registries - optional
	if cfg.PhoneRegistryURL != "" {
		opts = append(opts, detect.WithPhoneRegistry(registry.NewClient(
			"phone", cfg.PhoneRegistryURL, newVerdictCache(cfg, counters, "phone"),
			cfg.RegistryTimeout, cfg.SessionTTL)))
		log.Println("✓ Phone reputation registry enabled")
	} else {
		log.Println("○ Phone reputation registry disabled (no URL configured)")
	}
	if cfg.AccountRegistryURL != "" {
		opts = append(opts, detect.WithAccountRegistry(registry.NewClient(
			"account", cfg.AccountRegistryURL, newVerdictCache(cfg, counters, "account"),
			cfg.RegistryTimeout, cfg.SessionTTL)))
		log.Println("✓ Account reputation registry enabled")
	} else {
		log.Println("○ Account reputation registry disabled (no URL configured)")
	}

	// Secondary model - optional
	if backend := detectModelBackend(cfg); backend != nil {
		a.model = detect.NewQuotaAdapter(backend, cfg.ModelDailyQuota, cfg.ModelMaxConcurrency)
		opts = append(opts, detect.WithModel(a.model))
	} else {
		log.Println("○ Secondary model disabled (no backend available)")
	}

	// Semantic similarity - optional
	if cfg.EnableSemantic {
		sm, err := detect.NewSemanticMatcher(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.SemanticThreshold)
		if err != nil {
			log.Printf("○ Semantic matching disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := sm.LoadSeeds(ctx); err != nil {
				log.Printf("○ Semantic matching disabled (seed load failed: %v)", err)
			} else {
				opts = append(opts, detect.WithSemanticMatcher(sm))
				log.Printf("✓ Semantic matching enabled (%d seeds)", sm.SeedCount())
			}
			cancel()
		}
	} else {
		log.Println("○ Semantic matching disabled")
	}

	// Alert persistence - optional
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := alerts.NewStore(ctx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			log.Printf("○ Alert persistence disabled (postgres: %v)", err)
		} else {
			a.store = store
			log.Println("✓ Alert persistence enabled (postgres)")
		}
	} else {
		log.Println("○ Alert persistence disabled (no DSN configured)")
	}

	a.engine = detect.NewEngine(cfg, lexical, counters, opts...)
	return a
}

func loadSignalRegistry(cfg *config.Config) (*signals.Registry, error) {
	weights := signals.Weights{
		Critical: cfg.CriticalWeight,
		High:     cfg.HighWeight,
		Medium:   cfg.MediumWeight,
	}
	if cfg.SignalConfigPath != "" {
		reg, err := signals.NewRegistryFromFile(cfg.SignalConfigPath, weights)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.SignalConfigPath, err)
		}
		return reg, nil
	}
	return signals.NewRegistry(weights), nil
}

func newVerdictCache(cfg *config.Config, counters *telemetry.Counters, registryName string) registry.VerdictCache {
	var cache registry.VerdictCache
	if cfg.CacheBackend == config.CacheRedis {
		redisCache, err := registry.NewRedisCache(cfg.RedisAddr, registryName, cfg.CacheTTL)
		if err == nil {
			log.Printf("✓ %s reputation cache on redis (%s)", registryName, cfg.RedisAddr)
			cache = redisCache
		} else {
			log.Printf("○ Redis cache unavailable (%v), using in-process cache", err)
		}
	}
	if cache == nil {
		cache = registry.NewMemoryCache(cfg.CacheMaxEntries, cfg.CacheTTL)
	}
	return &countingCache{inner: cache, counters: counters}
}

// countingCache surfaces reputation-cache effectiveness on /stats.
type countingCache struct {
	inner    registry.VerdictCache
	counters *telemetry.Counters
}

func (c *countingCache) Get(ctx context.Context, key string) (registry.Verdict, bool) {
	v, ok := c.inner.Get(ctx, key)
	if ok {
		c.counters.CacheHits.Add(1)
	} else {
		c.counters.CacheMisses.Add(1)
	}
	return v, ok
}

func (c *countingCache) Set(ctx context.Context, key string, v registry.Verdict) {
	c.inner.Set(ctx, key, v)
}

// detectModelBackend picks the configured model backend, or probes for one
// when set to auto.
func detectModelBackend(cfg *config.Config) detect.ModelAdapter {
	tryHugot := func() detect.ModelAdapter {
		h := detect.NewHugotAdapter(cfg.ModelPath, cfg.ModelTimeout)
		if err := h.Initialize(); err != nil {
			log.Printf("○ On-device classifier unavailable: %v", err)
			return nil
		}
		log.Printf("✓ Secondary model enabled (on-device classifier, quota %d/day)", cfg.ModelDailyQuota)
		return h
	}
	tryLLM := func() detect.ModelAdapter {
		l := detect.NewLocalLLMAdapter(cfg.ModelBaseURL, cfg.ModelName, cfg.ModelTimeout)
		if err := l.Initialize(); err != nil {
			log.Printf("○ Local LLM unavailable: %v", err)
			return nil
		}
		log.Printf("✓ Secondary model enabled (local LLM %s, quota %d/day)", cfg.ModelName, cfg.ModelDailyQuota)
		return l
	}

	switch cfg.ModelBackend {
	case config.BackendNone:
		return nil
	case config.BackendHugot:
		return tryHugot()
	case config.BackendLocalLLM:
		return tryLLM()
	default: // auto: prefer the fully local classifier, fall back to the LLM
		if backend := tryHugot(); backend != nil {
			return backend
		}
		return tryLLM()
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cfg := config.NewDefaultConfig()
		if len(os.Args) > 2 {
			cfg.ListenAddr = ":" + strings.TrimPrefix(os.Args[2], ":")
		}
		runHTTPServer(cfg)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: scamshield analyze <text>")
			os.Exit(1)
		}
		runCLIAnalyze(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("ScamShield v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("ScamShield v%s - scam signal fusion engine\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  scamshield serve [port]       Start HTTP server (default: 8780)")
	fmt.Println("  scamshield analyze <text>     Analyze text from the command line")
	fmt.Println("  scamshield version            Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  SCAMSHIELD_PHONE_REGISTRY_URL    Phone fraud registry endpoint")
	fmt.Println("  SCAMSHIELD_ACCOUNT_REGISTRY_URL  Account fraud registry endpoint")
	fmt.Println("  SCAMSHIELD_MODEL_BACKEND         none | localllm | hugot | auto")
	fmt.Println("  SCAMSHIELD_POSTGRES_DSN          Postgres DSN for alert history")
	fmt.Println("  SCAMSHIELD_REDIS_ADDR            Redis address for shared caching")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

type analyzeRequest struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
}

func runHTTPServer(cfg *config.Config) {
	analyzer := NewAnalyzer(cfg)

	app := fiber.New(fiber.Config{
		AppName: "ScamShield",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/analyze", func(c fiber.Ctx) error {
		var req analyzeRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if strings.TrimSpace(req.Text) == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}

		verdict := analyzer.engine.Analyze(c.Context(), req.Text)
		analyzer.persistAlert(c.Context(), req, verdict)

		return c.JSON(fiber.Map{
			"source_id": req.SourceID,
			"verdict":   verdict,
		})
	})

	app.Get("/stats", func(c fiber.Ctx) error {
		resp := fiber.Map{"counters": analyzer.counters.Snapshot()}
		if analyzer.model != nil {
			resp["model_quota"] = fiber.Map{
				"used":  analyzer.model.QuotaUsed(),
				"limit": analyzer.model.QuotaLimit(),
			}
		}
		return c.JSON(resp)
	})

	app.Get("/alerts", func(c fiber.Ctx) error {
		if analyzer.store == nil {
			return c.Status(404).JSON(fiber.Map{"error": "alert persistence not configured"})
		}
		list, err := analyzer.store.List(c.Context(), fiber.Query[int](c, "limit"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"alerts": list})
	})

	app.Delete("/alerts/:id", func(c fiber.Ctx) error {
		if analyzer.store == nil {
			return c.Status(404).JSON(fiber.Map{"error": "alert persistence not configured"})
		}
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid alert id"})
		}
		if err := analyzer.store.Delete(c.Context(), id); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"deleted": id})
	})

	log.Printf("ScamShield HTTP server starting on %s", cfg.ListenAddr)
	log.Printf("Endpoints:")
	log.Printf("  GET    /health      - Health check")
	log.Printf("  POST   /analyze     - Analyze captured text")
	log.Printf("  GET    /stats       - Telemetry counters")
	log.Printf("  GET    /alerts      - Alert history")
	log.Printf("  DELETE /alerts/:id  - Remove an alert")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

// persistAlert writes a history record for displayable scam verdicts.
// Write failures are counted, never surfaced to the analyze caller.
func (a *Analyzer) persistAlert(ctx context.Context, req analyzeRequest, v *detect.Verdict) {
	if a.store == nil || !v.IsScam || v.Confidence < a.cfg.DisplayThreshold {
		return
	}
	_, err := a.store.Insert(ctx, alerts.Alert{
		SourceID:   req.SourceID,
		Excerpt:    alerts.Truncate(req.Text),
		IsScam:     v.IsScam,
		Confidence: v.Confidence,
		Category:   string(v.Category),
		Method:     string(v.Method),
		Message:    v.AdvisoryMessage,
	})
	if err != nil {
		a.counters.AlertWriteFailures.Add(1)
		log.Printf("[alerts] write failed: %v", err)
		return
	}
	a.counters.AlertsPersisted.Add(1)
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIAnalyze(text string) {
	cfg := config.NewDefaultConfig()
	analyzer := NewAnalyzer(cfg)

	verdict := analyzer.engine.Analyze(context.Background(), text)

	output, _ := json.MarshalIndent(verdict, "", "  ")
	fmt.Println(string(output))
}
