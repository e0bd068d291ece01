// Package config provides configuration management for the fetch
// coordinator service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fetch coordinator service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Coordinator contains cache, retry, and fan-out settings.
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	// Sources contains per-source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// Port is the HTTP server port (default: 8080).
	Port int `mapstructure:"port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the prefix for all metric names.
	Namespace string `mapstructure:"namespace"`
}

// CoordinatorConfig holds coordinator cache and retry settings.
type CoordinatorConfig struct {
	// CacheSize bounds the number of cached responses.
	CacheSize int `mapstructure:"cache_size"`
	// DefaultTTL is the cached-response lifetime for sources without a
	// per-source override.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// TTLBySource overrides the cache TTL per source (keyed by source name).
	TTLBySource map[string]time.Duration `mapstructure:"ttl_by_source"`
	// RequestTimeout bounds a single request including retries.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Retry is the backoff schedule for retryable failures.
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig holds the retry schedule for retryable source failures.
type RetryConfig struct {
	// MaxAttempts is the total number of tries per request, including the
	// first.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelay seeds the exponential backoff schedule.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps a single backoff wait.
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// SourcesConfig holds configuration for all source APIs.
type SourcesConfig struct {
	// PubMed contains PubMed E-utilities settings.
	PubMed SourceConfig `mapstructure:"pubmed"`
	// ArXiv contains arXiv API settings.
	ArXiv SourceConfig `mapstructure:"arxiv"`
	// MedGen contains MedGen E-utilities settings.
	MedGen SourceConfig `mapstructure:"medgen"`
	// ClinVar contains ClinVar E-utilities settings.
	ClinVar SourceConfig `mapstructure:"clinvar"`
	// CrossRef contains CrossRef REST API settings.
	CrossRef CrossRefConfig `mapstructure:"crossref"`
}

// SourceConfig holds configuration for a single source API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from an environment variable, e.g.
	// SCIFETCH_SOURCES_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second. Zero uses the
	// source adapter's default.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size. Zero uses the adapter
	// default.
	BurstSize int `mapstructure:"burst_size"`
	// MaxResults is the maximum results per search page.
	MaxResults int `mapstructure:"max_results"`
}

// CrossRefConfig extends SourceConfig with the polite-pool contact email.
type CrossRefConfig struct {
	SourceConfig `mapstructure:",squash"`
	// Email is the contact address sent as mailto for polite-pool access.
	Email string `mapstructure:"email"`
}

// Address returns the HTTP server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCIFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scifetch")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment
// variables. NCBI issues one key per account, so the E-utilities sources
// (PubMed, MedGen, ClinVar) each read their own variable and fall back to
// the shared SCIFETCH_SOURCES_NCBI_API_KEY.
func loadSecrets(cfg *Config) {
	shared := os.Getenv("SCIFETCH_SOURCES_NCBI_API_KEY")

	cfg.Sources.PubMed.APIKey = envOr("SCIFETCH_SOURCES_PUBMED_API_KEY", shared)
	cfg.Sources.MedGen.APIKey = envOr("SCIFETCH_SOURCES_MEDGEN_API_KEY", shared)
	cfg.Sources.ClinVar.APIKey = envOr("SCIFETCH_SOURCES_CLINVAR_API_KEY", shared)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "scifetch")

	// Coordinator defaults
	v.SetDefault("coordinator.cache_size", 1000)
	v.SetDefault("coordinator.default_ttl", "1h")
	v.SetDefault("coordinator.request_timeout", "30s")
	v.SetDefault("coordinator.retry.max_attempts", 3)
	v.SetDefault("coordinator.retry.base_delay", "500ms")
	v.SetDefault("coordinator.retry.max_delay", "8s")

	// Source defaults. A rate_limit of 0 defers to the adapter default
	// (e.g. PubMed moves from 3 to 10 req/sec when an API key is present).
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.rate_limit", 0.0)
	v.SetDefault("sources.pubmed.max_results", 20)

	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.arxiv.rate_limit", 0.0)
	v.SetDefault("sources.arxiv.max_results", 20)

	v.SetDefault("sources.medgen.enabled", true)
	v.SetDefault("sources.medgen.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.medgen.timeout", "30s")
	v.SetDefault("sources.medgen.rate_limit", 0.0)
	v.SetDefault("sources.medgen.max_results", 20)

	v.SetDefault("sources.clinvar.enabled", true)
	v.SetDefault("sources.clinvar.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.clinvar.timeout", "30s")
	v.SetDefault("sources.clinvar.rate_limit", 0.0)
	v.SetDefault("sources.clinvar.max_results", 20)

	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.crossref.rate_limit", 0.0)
	v.SetDefault("sources.crossref.max_results", 20)
	v.SetDefault("sources.crossref.email", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Coordinator.CacheSize <= 0 {
		return fmt.Errorf("coordinator cache_size must be positive")
	}
	if c.Coordinator.DefaultTTL <= 0 {
		return fmt.Errorf("coordinator default_ttl must be positive")
	}
	if c.Coordinator.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	if c.Coordinator.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry base_delay must be positive")
	}
	if c.Coordinator.Retry.MaxDelay < c.Coordinator.Retry.BaseDelay {
		return fmt.Errorf("retry max_delay (%s) must be >= base_delay (%s)",
			c.Coordinator.Retry.MaxDelay, c.Coordinator.Retry.BaseDelay)
	}

	for name, src := range map[string]SourceConfig{
		"pubmed":   c.Sources.PubMed,
		"arxiv":    c.Sources.ArXiv,
		"medgen":   c.Sources.MedGen,
		"clinvar":  c.Sources.ClinVar,
		"crossref": c.Sources.CrossRef.SourceConfig,
	} {
		if src.RateLimit < 0 {
			return fmt.Errorf("source %s: rate_limit must be non-negative", name)
		}
		if src.MaxResults < 0 {
			return fmt.Errorf("source %s: max_results must be non-negative", name)
		}
		if src.Enabled && src.BaseURL == "" {
			return fmt.Errorf("source %s: base_url is required when enabled", name)
		}
	}

	return nil
}
