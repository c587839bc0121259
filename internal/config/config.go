// Package config provides unified configuration loading for cadindex.
// Supports YAML files, environment variables, and programmatic defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drafthaus/cadindex/internal/domain"
)

// Config holds all configuration for cadindex. It is constructed once at
// process start and passed by reference; there are no package-level
// singletons.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Converter     ConverterConfig     `yaml:"converter"`
	OCR           OCRConfig           `yaml:"ocr"`
	AI            AIConfig            `yaml:"ai"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Classify      ClassifyConfig      `yaml:"classify"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// ConverterConfig holds external DWG converter settings.
type ConverterConfig struct {
	// Path to the converter executable. Empty means auto-detect on PATH
	// and in well-known install locations.
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	Enabled bool          `yaml:"enabled"`
}

// OCRConfig holds OCR settings.
type OCRConfig struct {
	Enabled        bool   `yaml:"enabled"`
	TesseractPath  string `yaml:"tesseract_path"` // empty means auto-detect
	DPI            int    `yaml:"dpi"`
	MaxPages       int    `yaml:"max_pages"`
	ScoreThreshold int    `yaml:"score_threshold"`
}

// AIConfig holds text-generation capability settings.
type AIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// CacheConfig holds description cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ClassifyConfig holds drawing classifier settings.
type ClassifyConfig struct {
	// VectorThreshold is the first-page vector primitive count at or
	// above which a PDF is classified as a drawing without AI.
	VectorThreshold int                  `yaml:"vector_threshold"`
	InclusionBias   domain.InclusionBias `yaml:"inclusion_bias"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8087,
			RequestTimeout:   60 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Converter: ConverterConfig{
			Timeout: 90 * time.Second,
			Enabled: true,
		},
		OCR: OCRConfig{
			Enabled:        true,
			DPI:            500,
			MaxPages:       5,
			ScoreThreshold: 20,
		},
		AI: AIConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "x-ai/grok-3-mini",
			Timeout:     30 * time.Second,
			Temperature: 0.3,
			MaxTokens:   600,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "google/gemini-embedding-001",
			Dimension: 768,
			Timeout:   30 * time.Second,
		},
		Store: StoreConfig{
			SQLitePath: "cadindex.db",
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Classify: ClassifyConfig{
			VectorThreshold: 1800,
			InclusionBias:   domain.BiasPermissive,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Classify.InclusionBias != domain.BiasPermissive && c.Classify.InclusionBias != domain.BiasStrict {
		return fmt.Errorf("invalid inclusion bias: %s", c.Classify.InclusionBias)
	}
	if c.OCR.MaxPages < 1 {
		return fmt.Errorf("ocr max_pages must be at least 1")
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CADINDEX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CADINDEX_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		if cfg.AI.APIKey == "" {
			cfg.AI.APIKey = v
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("DWG_CONVERTER_PATH"); v != "" {
		cfg.Converter.Path = v
	}
	if v := os.Getenv("TESSERACT_PATH"); v != "" {
		cfg.OCR.TesseractPath = v
	}
	if v := os.Getenv("ENABLE_OCR"); v != "" {
		cfg.OCR.Enabled = parseBool(v, cfg.OCR.Enabled)
	}
	if v := os.Getenv("ENABLE_DWG_CONVERSION"); v != "" {
		cfg.Converter.Enabled = parseBool(v, cfg.Converter.Enabled)
	}
	if v := os.Getenv("CADINDEX_DB"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = trimScheme(v, "redis://")
	}
	if v := os.Getenv("INCLUSION_BIAS"); v != "" {
		cfg.Classify.InclusionBias = domain.InclusionBias(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func parseBool(v string, def bool) bool {
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func trimScheme(v, scheme string) string {
	if len(v) >= len(scheme) && v[:len(scheme)] == scheme {
		return v[len(scheme):]
	}
	return v
}
