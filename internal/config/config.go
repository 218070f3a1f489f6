// Package config loads service settings from .env, an optional YAML file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the variable holding the YAML file path.
const EnvConfigFile = "MEDJ_CONFIG"

// Duration is a time.Duration read from strings such as "90s" or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Env       string   `yaml:"env"`
	Port      string   `yaml:"port"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
	Origins   []string `yaml:"cors_origins"`

	DatabaseURL string   `yaml:"database_url"`
	RedisURL    string   `yaml:"redis_url"`
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTTTL      Duration `yaml:"jwt_ttl"`

	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Indicators IndicatorsConfig `yaml:"indicators"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// OCRConfig lists the providers in the order they are tried: PDF text layer,
// vision model, OCR service, local tesseract. Empty settings disable a
// provider.
type OCRConfig struct {
	Timeout      Duration `yaml:"timeout"`
	Languages    string   `yaml:"languages"`
	Tesseract    bool     `yaml:"tesseract"`
	ServiceURL   string   `yaml:"service_url"`
	ServiceToken string   `yaml:"service_token"`

	VisionProvider string `yaml:"vision_provider"`
	VisionModel    string `yaml:"vision_model"`
	VisionAPIKey   string `yaml:"vision_api_key"`
	VisionBaseURL  string `yaml:"vision_base_url"`
}

// LLMConfig selects the enrichment model. Provider is "gemini", "openai",
// "ollama" or empty for local extraction only.
type LLMConfig struct {
	Provider  string   `yaml:"provider"`
	Model     string   `yaml:"model"`
	APIKey    string   `yaml:"api_key"`
	BaseURL   string   `yaml:"base_url"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

type IndicatorsConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	Refresh        string  `yaml:"refresh"`
	SeedDefaults   bool    `yaml:"seed_defaults"`
}

type WorkerConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Env:       "development",
		Port:      "8000",
		LogLevel:  "info",
		LogFormat: "text",
		Origins:   []string{"http://localhost:3000", "http://localhost:5173"},
		JWTTTL:    Duration(24 * time.Hour),
		OCR: OCRConfig{
			Timeout:   Duration(60 * time.Second),
			Languages: "bul+eng",
			Tesseract: true,
		},
		LLM: LLMConfig{
			MaxTokens: 3000,
			Timeout:   Duration(90 * time.Second),
		},
		Indicators: IndicatorsConfig{
			FuzzyThreshold: 0.86,
			Refresh:        "@every 10m",
			SeedDefaults:   true,
		},
		Worker: WorkerConfig{
			Enabled:  true,
			Interval: Duration(2 * time.Second),
		},
	}
}

// Load reads .env (outside production), then the YAML file named by
// MEDJ_CONFIG, then environment variables.
func Load() (Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err == nil {
			logrus.Debug("loaded .env")
		}
	}

	cfg := Defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// --------------------------------------------------
// Environment overrides
// --------------------------------------------------

func applyEnv(cfg *Config) error {
	str(&cfg.Env, "APP_ENV")
	str(&cfg.Port, "PORT")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Origins = splitList(v)
	}

	str(&cfg.DatabaseURL, "DATABASE_URL")
	str(&cfg.RedisURL, "REDIS_URL")
	str(&cfg.JWTSecret, "JWT_SECRET")

	str(&cfg.Storage.Endpoint, "R2_ENDPOINT")
	str(&cfg.Storage.AccessKey, "R2_ACCESS_KEY")
	str(&cfg.Storage.SecretKey, "R2_SECRET_KEY")
	str(&cfg.Storage.Bucket, "R2_BUCKET_NAME")
	str(&cfg.Storage.PublicBaseURL, "R2_PUBLIC_BASE_URL")

	str(&cfg.OCR.Languages, "OCR_LANGUAGES")
	str(&cfg.OCR.ServiceURL, "OCR_SERVICE_URL")
	str(&cfg.OCR.ServiceToken, "OCR_SERVICE_TOKEN")
	str(&cfg.OCR.VisionProvider, "VISION_PROVIDER")
	str(&cfg.OCR.VisionModel, "VISION_MODEL")
	str(&cfg.OCR.VisionAPIKey, "VISION_API_KEY")
	str(&cfg.OCR.VisionBaseURL, "VISION_BASE_URL")

	str(&cfg.LLM.Provider, "LLM_PROVIDER")
	str(&cfg.LLM.Model, "LLM_MODEL")
	str(&cfg.LLM.APIKey, "LLM_API_KEY")
	str(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	// the Gemini variables of the original deployment still work
	if cfg.LLM.Provider == "" && os.Getenv("GEMINI_API_KEY") != "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Provider == "gemini" {
		str(&cfg.LLM.APIKey, "GEMINI_API_KEY")
		str(&cfg.LLM.Model, "GEMINI_MODEL")
	}

	str(&cfg.Indicators.Refresh, "INDICATORS_REFRESH")

	var errs []error
	errs = append(errs,
		duration(&cfg.JWTTTL, "JWT_TTL"),
		duration(&cfg.OCR.Timeout, "OCR_TIMEOUT"),
		duration(&cfg.LLM.Timeout, "LLM_TIMEOUT"),
		duration(&cfg.Worker.Interval, "WORKER_INTERVAL"),
		boolean(&cfg.OCR.Tesseract, "OCR_TESSERACT"),
		boolean(&cfg.Indicators.SeedDefaults, "INDICATORS_SEED_DEFAULTS"),
		boolean(&cfg.Worker.Enabled, "WORKER_ENABLED"),
		integer(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS"),
		float(&cfg.Indicators.FuzzyThreshold, "INDICATORS_FUZZY_THRESHOLD"),
	)
	return errors.Join(errs...)
}

func str(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func duration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func boolean(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func integer(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func float(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --------------------------------------------------
// Validation
// --------------------------------------------------

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}
	if c.Indicators.FuzzyThreshold <= 0 || c.Indicators.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be in (0, 1], got %v", c.Indicators.FuzzyThreshold)
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
