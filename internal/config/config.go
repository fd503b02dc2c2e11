package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Temporal
	Temporal TemporalConfig

	// Storage (screenshots)
	Storage StorageConfig

	// Browser
	Browser BrowserConfig

	// Compliance
	Compliance ComplianceConfig

	// Rate limits
	RateLimits RateLimitConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"inquiry-submitter"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"APP_LOG_LEVEL" default:"info"`
	MetricsPort int    `envconfig:"APP_METRICS_PORT" default:"9091"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"inquiry"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"inquiry"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// TemporalConfig holds Temporal settings
type TemporalConfig struct {
	Host        string `envconfig:"TEMPORAL_HOST" default:"localhost"`
	Port        int    `envconfig:"TEMPORAL_PORT" default:"7233"`
	Namespace   string `envconfig:"TEMPORAL_NAMESPACE" default:"inquiry"`
	TaskQueue   string `envconfig:"TEMPORAL_TASK_QUEUE" default:"inquiry-tasks"`
	WorkerCount int    `envconfig:"TEMPORAL_WORKER_COUNT" default:"4"`
}

// Addr returns Temporal address
func (c TemporalConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds MinIO/S3 object storage settings for screenshots
type StorageConfig struct {
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey       string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey       string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket          string `envconfig:"STORAGE_BUCKET" default:"inquiry"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
	ScreenshotPath  string `envconfig:"STORAGE_SCREENSHOT_PATH" default:"screenshots"`
}

// BrowserConfig holds Playwright browser settings
type BrowserConfig struct {
	Headless        bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	PoolSize        int           `envconfig:"BROWSER_POOL_SIZE" default:"4"`
	ViewportWidth   int           `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight  int           `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1080"`
	NavigateTimeout time.Duration `envconfig:"BROWSER_NAVIGATE_TIMEOUT" default:"30s"`
	SettleDelay     time.Duration `envconfig:"BROWSER_SETTLE_DELAY" default:"2s"`
	FillDelay       time.Duration `envconfig:"BROWSER_FILL_DELAY" default:"500ms"`
	UserAgent       string        `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// ComplianceConfig holds crawl-etiquette settings
type ComplianceConfig struct {
	Level             domain.ComplianceLevel `envconfig:"COMPLIANCE_LEVEL" default:"moderate"`
	BotName           string                 `envconfig:"COMPLIANCE_BOT_NAME" default:"autoinquirybot"`
	UserAgent         string                 `envconfig:"COMPLIANCE_USER_AGENT" default:"AutoInquiryBot/1.0 (+https://example.com/bot-info)"`
	FetchTimeout      time.Duration          `envconfig:"COMPLIANCE_FETCH_TIMEOUT" default:"10s"`
	BaseDelay         float64                `envconfig:"COMPLIANCE_BASE_DELAY" default:"1.0"`
	MaxDelay          float64                `envconfig:"COMPLIANCE_MAX_DELAY" default:"300.0"`
	BackoffMultiplier float64                `envconfig:"COMPLIANCE_BACKOFF_MULTIPLIER" default:"2.0"`
}

// RateLimitConfig holds the global navigation rate limit applied on top of
// per-domain compliance delays.
type RateLimitConfig struct {
	Enabled        bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMin int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MIN" default:"30"`
	BurstSize      int  `envconfig:"RATE_LIMIT_BURST_SIZE" default:"5"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if !c.Compliance.Level.IsValid() {
		errs = append(errs, fmt.Sprintf("COMPLIANCE_LEVEL %q is not one of strict/moderate/permissive", c.Compliance.Level))
	}
	if c.Compliance.BaseDelay < 0.1 {
		errs = append(errs, "COMPLIANCE_BASE_DELAY must be at least 0.1s")
	}
	if c.Compliance.MaxDelay < c.Compliance.BaseDelay {
		errs = append(errs, "COMPLIANCE_MAX_DELAY must be >= COMPLIANCE_BASE_DELAY")
	}
	if c.Browser.PoolSize < 1 {
		errs = append(errs, "BROWSER_POOL_SIZE must be at least 1")
	}
	if c.Env != EnvDevelopment && c.Database.Password == "" {
		errs = append(errs, "DB_PASSWORD is required in non-development mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
