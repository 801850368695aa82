package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for feedback-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional response cache backend)
	Redis RedisConfig `yaml:"redis"`

	// External analysis provider
	Provider ProviderConfig `yaml:"provider"`

	// Analysis gateway behavior (caching, retries, circuit breaker)
	Gateway GatewayConfig `yaml:"gateway"`

	// Background analysis workers and the staleness sweep
	Workers WorkersConfig `yaml:"workers"`

	// Topic resolution
	Topics TopicsConfig `yaml:"topics"`

	// Executive summary generation
	Summaries SummariesConfig `yaml:"summaries"`

	// Token pricing fallback used when a model is absent from the pricing table
	Pricing PricingConfig `yaml:"pricing"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"feedback"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"feedback_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis connection configuration. When Host is empty the
// gateway falls back to the in-process response cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProviderConfig selects and configures the external analysis provider.
type ProviderConfig struct {
	// Kind is one of "openai", "anthropic" or "mock".
	Kind     string `yaml:"kind" env:"PROVIDER_KIND" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"PROVIDER_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"PROVIDER_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"PROVIDER_API_KEY"` // Secret - not in YAML

	// RequestTimeout bounds a single provider call, before retries.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"PROVIDER_REQUEST_TIMEOUT" env-default:"60s"`
}

// GatewayConfig tunes the analysis gateway.
type GatewayConfig struct {
	// CacheTTL is how long cached provider responses stay valid.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"GATEWAY_CACHE_TTL" env-default:"24h"`

	// MaxRetries is the number of retries after the initial attempt for
	// transient provider failures.
	MaxRetries int `yaml:"max_retries" env:"GATEWAY_MAX_RETRIES" env-default:"3"`

	// BackoffBase is the initial retry delay; it doubles on each attempt.
	BackoffBase time.Duration `yaml:"backoff_base" env:"GATEWAY_BACKOFF_BASE" env-default:"2s"`

	// BreakerThreshold is the consecutive-failure count that trips the
	// circuit breaker; BreakerResetAfter is how long it stays open.
	BreakerThreshold  int           `yaml:"breaker_threshold" env:"GATEWAY_BREAKER_THRESHOLD" env-default:"5"`
	BreakerResetAfter time.Duration `yaml:"breaker_reset_after" env:"GATEWAY_BREAKER_RESET_AFTER" env-default:"30s"`

	// Max output tokens per call shape.
	AnalysisMaxTokens int `yaml:"analysis_max_tokens" env:"GATEWAY_ANALYSIS_MAX_TOKENS" env-default:"500"`
	TopicMaxTokens    int `yaml:"topic_max_tokens" env:"GATEWAY_TOPIC_MAX_TOKENS" env-default:"60"`
	SummaryMaxTokens  int `yaml:"summary_max_tokens" env:"GATEWAY_SUMMARY_MAX_TOKENS" env-default:"2000"`
}

// WorkersConfig tunes the analysis orchestrator.
type WorkersConfig struct {
	// Count is the fixed number of concurrent analysis workers.
	Count int `yaml:"count" env:"WORKERS_COUNT" env-default:"4"`

	// PollInterval is how often an idle worker checks for pending items.
	PollInterval time.Duration `yaml:"poll_interval" env:"WORKERS_POLL_INTERVAL" env-default:"15s"`

	// SweepInterval is how often the staleness sweep runs.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"WORKERS_SWEEP_INTERVAL" env-default:"5m"`

	// ProcessingTimeout is how long an item may sit in processing before
	// the sweep assumes the claiming worker crashed and requeues it.
	ProcessingTimeout time.Duration `yaml:"processing_timeout" env:"WORKERS_PROCESSING_TIMEOUT" env-default:"10m"`

	// PendingStaleAfter is how long an item may sit in pending before the
	// sweep flags it as potentially stranded.
	PendingStaleAfter time.Duration `yaml:"pending_stale_after" env:"WORKERS_PENDING_STALE_AFTER" env-default:"15m"`
}

// TopicsConfig tunes topic resolution.
type TopicsConfig struct {
	// SimilarityThreshold is the blended-similarity score at or above which
	// a suggested label reuses an existing topic instead of creating one.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"TOPICS_SIMILARITY_THRESHOLD" env-default:"0.7"`
}

// SummariesConfig tunes executive summary generation.
type SummariesConfig struct {
	// MinContributions is the contributing-item count required before a
	// summary is generated.
	MinContributions int `yaml:"min_contributions" env:"SUMMARIES_MIN_CONTRIBUTIONS" env-default:"10"`

	// SampleCap limits how many feedback bodies are sent to the provider.
	SampleCap int `yaml:"sample_cap" env:"SUMMARIES_SAMPLE_CAP" env-default:"100"`

	// CheckInterval is how often the scheduler re-checks all aggregates.
	CheckInterval time.Duration `yaml:"check_interval" env:"SUMMARIES_CHECK_INTERVAL" env-default:"15m"`
}

// PricingConfig holds the fallback per-1K-token rates used for models that
// are not listed in the embedded pricing table.
type PricingConfig struct {
	DefaultPromptRate     float64 `yaml:"default_prompt_rate" env:"PRICING_DEFAULT_PROMPT_RATE" env-default:"0.0025"`
	DefaultCompletionRate float64 `yaml:"default_completion_rate" env:"PRICING_DEFAULT_COMPLETION_RATE" env-default:"0.01"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. If config.yaml does not exist, configuration comes from the
// environment alone. The version parameter is injected at build time and set
// on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider.Kind {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}

	if c.Topics.SimilarityThreshold < 0 || c.Topics.SimilarityThreshold > 1 {
		return fmt.Errorf("topics.similarity_threshold must be in [0, 1], got %v", c.Topics.SimilarityThreshold)
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be at least 1, got %d", c.Workers.Count)
	}
	if c.Summaries.MinContributions < 1 {
		return fmt.Errorf("summaries.min_contributions must be at least 1, got %d", c.Summaries.MinContributions)
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries must not be negative, got %d", c.Gateway.MaxRetries)
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
