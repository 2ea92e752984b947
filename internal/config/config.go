package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the budget-intel service.
// Values come from an optional YAML file with environment variable
// overrides. Secrets are only read from the environment.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Budget     BudgetConfig     `yaml:"budget"`
	LLM        LLMConfig        `yaml:"llm"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"BUDGET_INTEL_HTTP_ADDR" env-default:":8080"`
	Env             string        `yaml:"env" env:"BUDGET_INTEL_ENV" env-default:"development"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"BUDGET_INTEL_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type DatabaseConfig struct {
	Host        string `yaml:"host" env:"BUDGET_INTEL_DB_HOST" env-default:"localhost"`
	Port        int    `yaml:"port" env:"BUDGET_INTEL_DB_PORT" env-default:"5432"`
	User        string `yaml:"user" env:"BUDGET_INTEL_DB_USER" env-default:"budgetintel"`
	Password    string `yaml:"-" env:"BUDGET_INTEL_DB_PASSWORD"`
	DBName      string `yaml:"name" env:"BUDGET_INTEL_DB_NAME" env-default:"budgetintel"`
	SSLMode     string `yaml:"ssl_mode" env:"BUDGET_INTEL_DB_SSLMODE" env-default:"disable"`
	MaxConns    int    `yaml:"max_conns" env:"BUDGET_INTEL_DB_MAX_CONNS" env-default:"25"`
	MinConns    int    `yaml:"min_conns" env:"BUDGET_INTEL_DB_MIN_CONNS" env-default:"2"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"BUDGET_INTEL_DB_AUTO_MIGRATE" env-default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ClickHouseConfig points the read path at a ClickHouse replica of the
// meta_* tables instead of Postgres.
type ClickHouseConfig struct {
	Enabled      bool   `yaml:"enabled" env:"BUDGET_INTEL_CLICKHOUSE_ENABLED" env-default:"false"`
	Addr         string `yaml:"addr" env:"BUDGET_INTEL_CLICKHOUSE_ADDR" env-default:"localhost:9000"`
	Database     string `yaml:"database" env:"BUDGET_INTEL_CLICKHOUSE_DB" env-default:"default"`
	User         string `yaml:"user" env:"BUDGET_INTEL_CLICKHOUSE_USER" env-default:"default"`
	Password     string `yaml:"-" env:"BUDGET_INTEL_CLICKHOUSE_PASSWORD"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"BUDGET_INTEL_CLICKHOUSE_MAX_OPEN_CONNS" env-default:"10"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"BUDGET_INTEL_REDIS_ENABLED" env-default:"false"`
	Addr     string `yaml:"addr" env:"BUDGET_INTEL_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"BUDGET_INTEL_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"BUDGET_INTEL_REDIS_DB" env-default:"0"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"BUDGET_INTEL_CACHE_TTL" env-default:"60s"`
}

type AuthConfig struct {
	Enabled   bool     `yaml:"enabled" env:"BUDGET_INTEL_AUTH_ENABLED" env-default:"false"`
	MasterKey string   `yaml:"-" env:"BUDGET_INTEL_API_KEY_MASTER"`
	SkipPaths []string `yaml:"skip_paths" env:"BUDGET_INTEL_AUTH_SKIP_PATHS" env-separator:"," env-default:"/health,/metrics"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"BUDGET_INTEL_RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `yaml:"rps" env:"BUDGET_INTEL_RATE_LIMIT_RPS" env-default:"50"`
	Burst   int     `yaml:"burst" env:"BUDGET_INTEL_RATE_LIMIT_BURST" env-default:"20"`
	// PerIP gives every client address its own bucket instead of one
	// shared bucket.
	PerIP bool `yaml:"per_ip" env:"BUDGET_INTEL_RATE_LIMIT_PER_IP" env-default:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"BUDGET_INTEL_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"BUDGET_INTEL_LOG_FORMAT" env-default:"json"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"BUDGET_INTEL_METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"BUDGET_INTEL_METRICS_PATH" env-default:"/metrics"`
}

// BudgetConfig holds the planning defaults shared by every store.
type BudgetConfig struct {
	// Timezone anchors "today" for windows and recency.
	Timezone     string  `yaml:"timezone" env:"BUDGET_INTEL_TIMEZONE" env-default:"Europe/Istanbul"`
	DefaultStore string  `yaml:"default_store" env:"BUDGET_INTEL_DEFAULT_STORE" env-default:"vironax"`
	TargetRoas   float64 `yaml:"target_roas" env:"BUDGET_INTEL_TARGET_ROAS" env-default:"3.0"`
}

// LLMConfig configures the OpenAI-compatible endpoint used by the advisor.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"BUDGET_INTEL_LLM_ENDPOINT" env-default:""`
	Model       string  `yaml:"model" env:"BUDGET_INTEL_LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"BUDGET_INTEL_LLM_API_KEY"`
	Temperature float32 `yaml:"temperature" env:"BUDGET_INTEL_LLM_TEMPERATURE" env-default:"0.2"`
}

// IsAvailable returns true if an API key is configured.
func (l LLMConfig) IsAvailable() bool {
	return l.APIKey != ""
}

// Load reads BUDGET_INTEL_CONFIG (default config.yaml) when present and
// applies environment overrides.
func Load() (*Config, error) {
	path := os.Getenv("BUDGET_INTEL_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. A missing file falls back
// to environment variables and defaults.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("BUDGET_INTEL_API_KEY_MASTER is required when auth is enabled")
	}
	if _, err := time.LoadLocation(c.Budget.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Budget.Timezone, err)
	}
	if c.Budget.TargetRoas <= 0 {
		return fmt.Errorf("target ROAS must be positive, got %v", c.Budget.TargetRoas)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Budget.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
