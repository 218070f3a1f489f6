// Package app wires configuration into the running services shared by the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"medj/internal/anonymize"
	"medj/internal/auth"
	"medj/internal/config"
	"medj/internal/db"
	"medj/internal/documents"
	"medj/internal/indicators"
	"medj/internal/llm"
	"medj/internal/ocr"
	"medj/internal/storage"
)

var log = logrus.WithField("component", "app")

// App holds the long-lived services of one process.
type App struct {
	Config        config.Config
	DB            *pgxpool.Pool
	Redis         *redis.Client
	Indicators    *indicators.Store
	IndicatorRepo indicators.Repository
	Documents     *documents.Service
	Users         auth.UserRepository
	Tokens        *auth.Tokens
}

// New connects to every configured backend. Without DATABASE_URL it runs on
// in-memory repositories, which is only useful for local experiments.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg, Tokens: auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL.Std())}

	// ───────────────────────── DB ─────────────────────────
	var docRepo documents.Repository
	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = pool
		a.Users = auth.NewPostgresUserRepository(pool)
		a.IndicatorRepo = indicators.NewPostgresRepository(pool)
		docRepo = documents.NewPostgresRepository(pool)
	} else {
		log.Warn("⚠️ DATABASE_URL not set, using in-memory repositories")
		a.Users = auth.NewInMemoryUserRepository()
		a.IndicatorRepo = indicators.NewInMemoryRepository()
		docRepo = documents.NewInMemoryRepository()
	}

	// ───────────────────────── REDIS ─────────────────────────
	rdb, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rdb

	// ───────────────────────── INDICATORS ─────────────────────────
	if cfg.Indicators.SeedDefaults {
		if err := seedIndicators(ctx, a.IndicatorRepo); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Indicators = indicators.NewStore(a.IndicatorRepo, cfg.Indicators.FuzzyThreshold)
	if rdb != nil {
		a.Indicators.WithRedis(rdb)
	}
	if err := a.Indicators.Reload(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load indicators: %w", err)
	}

	// ───────────────────────── PIPELINE ─────────────────────────
	orchestrator, err := NewOrchestrator(cfg.OCR)
	if err != nil {
		a.Close()
		return nil, err
	}
	client, err := NewLLMClient(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	pipeline := documents.NewPipeline(orchestrator, anonymize.Default(), client, a.Indicators).
		WithLLMTimeout(cfg.LLM.Timeout.Std())

	// ───────────────────────── STORAGE ─────────────────────────
	store, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Documents = documents.NewService(docRepo, store, pipeline)
	return a, nil
}

// Close releases the connections New opened.
func (a *App) Close() {
	if a.Indicators != nil {
		a.Indicators.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// seedIndicators imports the embedded dictionary when the repository is
// empty.
func seedIndicators(ctx context.Context, repo indicators.Repository) error {
	existing, err := repo.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load indicators: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	stats, err := indicators.Import(ctx, repo, indicators.Defaults(), false)
	if err != nil {
		return fmt.Errorf("seed indicators: %w", err)
	}
	log.WithField("created", stats.Created).Info("🌱 seeded default indicators")
	return nil
}

// --------------------------------------------------
// Backends
// --------------------------------------------------

// NewRedis connects when url is set; it returns nil, nil otherwise.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.WithField("addr", opts.Addr).Info("✅ Connected to Redis")
	return rdb, nil
}

// NewStorage returns the R2 bucket when configured, process memory
// otherwise.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (documents.Storage, error) {
	r2 := storage.R2Config{
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Bucket:        cfg.Bucket,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	if !r2.Configured() {
		log.Warn("⚠️ R2 not configured, keeping uploads in memory")
		return storage.NewMemoryStorage(), nil
	}
	client, err := storage.NewR2Client(ctx, r2)
	if err != nil {
		return nil, fmt.Errorf("R2 init failed: %w", err)
	}
	return client, nil
}

// NewOrchestrator builds the provider chain: PDF text layer, vision model,
// OCR service, local tesseract. Unconfigured providers are left out.
func NewOrchestrator(cfg config.OCRConfig) (*ocr.Orchestrator, error) {
	providers := []ocr.Provider{ocr.NewPDFTextProvider()}

	if cfg.VisionProvider != "" {
		vision, err := ocr.NewVisionProvider(ocr.VisionConfig{
			Provider: cfg.VisionProvider,
			Model:    cfg.VisionModel,
			APIKey:   cfg.VisionAPIKey,
			BaseURL:  cfg.VisionBaseURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, vision)
	}
	if cfg.ServiceURL != "" {
		providers = append(providers, ocr.NewServiceProvider(cfg.ServiceURL, cfg.ServiceToken, cfg.Timeout.Std()))
	}
	if cfg.Tesseract {
		providers = append(providers, ocr.NewTesseractProvider(cfg.Languages))
	}

	o := ocr.NewOrchestrator(cfg.Timeout.Std(), providers...)
	log.WithField("providers", strings.Join(o.Providers(), ",")).Info("📄 OCR providers ready")
	return o, nil
}

// NewLLMClient returns the enrichment client, or nil when no provider is
// configured.
func NewLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		log.Info("LLM enrichment disabled, using local extraction only")
		return nil, nil
	case "gemini":
		return llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout.Std(),
		}), nil
	case "openai", "ollama":
		client, err := llm.NewLangChainClient(llm.LangChainConfig{
			Provider:  cfg.Provider,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
