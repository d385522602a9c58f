// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Thresholds and severity
// weights are explicit values handed to the comparison and scoring components
// at construction time; nothing here is process-wide mutable state.
type Config struct {
	Logger     LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Store      StoreConfig     `mapstructure:"store" yaml:"store"`
	Thresholds ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Scoring    ScoringConfig   `mapstructure:"scoring" yaml:"scoring"`
	Scan       ScanConfig      `mapstructure:"scan" yaml:"scan"`
	Trend      TrendConfig     `mapstructure:"trend" yaml:"trend"`
	GitHub     GitHubConfig    `mapstructure:"github" yaml:"github"`
	Health     HealthConfig    `mapstructure:"health" yaml:"health"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StoreConfig selects and configures the snapshot store backend.
type StoreConfig struct {
	// Backend is "fs" (default) or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Root is the filesystem store directory. Supports ~ expansion.
	Root string `mapstructure:"root" yaml:"root"`

	// RetainHistory is the number of history snapshots kept per suite before
	// pruning; 0 disables pruning.
	RetainHistory int `mapstructure:"retain_history" yaml:"retain_history"`

	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds the connection details for a PostgreSQL store backend.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// CategoryThreshold maps a metric-name category to a regression threshold
// (percent) and a desired direction of movement.
type CategoryThreshold struct {
	// Patterns are case-insensitive substrings matched against metric names.
	Patterns  []string `mapstructure:"patterns" yaml:"patterns"`
	Threshold float64  `mapstructure:"threshold" yaml:"threshold"`
	// Direction is "lower_better" or "higher_better".
	Direction string `mapstructure:"direction" yaml:"direction"`
}

// ThresholdConfig drives the comparator's regression classification.
type ThresholdConfig struct {
	// Categories are checked in a fixed order (time, memory, throughput, cpu);
	// the first pattern match wins.
	Categories map[string]CategoryThreshold `mapstructure:"categories" yaml:"categories"`

	// DefaultThreshold applies to metrics matching no category.
	DefaultThreshold float64 `mapstructure:"default_threshold" yaml:"default_threshold"`
	DefaultDirection string  `mapstructure:"default_direction" yaml:"default_direction"`

	// WarningMultiplier sets the warning->critical escalation boundary as a
	// multiple of the threshold.
	WarningMultiplier float64 `mapstructure:"warning_multiplier" yaml:"warning_multiplier"`
}

// ScoringConfig holds the severity weights for security scoring.
type ScoringConfig struct {
	WeightCritical int `mapstructure:"weight_critical" yaml:"weight_critical"`
	WeightHigh     int `mapstructure:"weight_high" yaml:"weight_high"`
	WeightMedium   int `mapstructure:"weight_medium" yaml:"weight_medium"`
	WeightLow      int `mapstructure:"weight_low" yaml:"weight_low"`

	// RatioFloor bounds the vulnerable-dependency ratio discount so it can
	// never zero the score outright.
	RatioFloor float64 `mapstructure:"ratio_floor" yaml:"ratio_floor"`
}

// ScanConfig configures the external dependency auditors.
type ScanConfig struct {
	// Ecosystems enables individual auditors: "npm", "pip", "osv".
	Ecosystems []string `mapstructure:"ecosystems" yaml:"ecosystems"`

	// Timeout bounds each auditor subprocess.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Concurrency bounds how many auditors run at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// TrendConfig drives the trend analyzer.
type TrendConfig struct {
	Window  int     `mapstructure:"window" yaml:"window"`
	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon"`
}

// GitHubConfig defines the configuration for GitHub integration.
// Token auth and GitHub App auth are mutually exclusive; App auth wins
// when both are present.
type GitHubConfig struct {
	Token          string  `mapstructure:"token" yaml:"-"`
	AppID          int64   `mapstructure:"app_id" yaml:"app_id"`
	InstallationID int64   `mapstructure:"installation_id" yaml:"installation_id"`
	PrivateKeyPath string  `mapstructure:"private_key_path" yaml:"private_key_path"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

// HealthConfig tunes the maintenance health checks.
type HealthConfig struct {
	RepoPath       string        `mapstructure:"repo_path" yaml:"repo_path"`
	MaxHeadAge     time.Duration `mapstructure:"max_head_age" yaml:"max_head_age"`
	MaxBaselineAge time.Duration `mapstructure:"max_baseline_age" yaml:"max_baseline_age"`
	LookbackDays   int           `mapstructure:"lookback_days" yaml:"lookback_days"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pipewatch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Store --
	v.SetDefault("store.backend", "fs")
	v.SetDefault("store.root", "~/.pipewatch")
	v.SetDefault("store.retain_history", 50)
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "") // Set via PIPEWATCH_STORE_POSTGRES_PASSWORD.
	v.SetDefault("store.postgres.dbname", "pipewatch")
	v.SetDefault("store.postgres.sslmode", "disable")

	// -- Thresholds --
	v.SetDefault("thresholds.default_threshold", 10.0)
	v.SetDefault("thresholds.default_direction", "lower_better")
	v.SetDefault("thresholds.warning_multiplier", 2.0)
	v.SetDefault("thresholds.categories.time.patterns", []string{"time", "latency", "duration"})
	v.SetDefault("thresholds.categories.time.threshold", 10.0)
	v.SetDefault("thresholds.categories.time.direction", "lower_better")
	v.SetDefault("thresholds.categories.memory.patterns", []string{"memory", "mem", "rss", "heap"})
	v.SetDefault("thresholds.categories.memory.threshold", 15.0)
	v.SetDefault("thresholds.categories.memory.direction", "lower_better")
	v.SetDefault("thresholds.categories.throughput.patterns", []string{"throughput", "ops", "rps", "qps"})
	v.SetDefault("thresholds.categories.throughput.threshold", 10.0)
	v.SetDefault("thresholds.categories.throughput.direction", "higher_better")
	v.SetDefault("thresholds.categories.cpu.patterns", []string{"cpu"})
	v.SetDefault("thresholds.categories.cpu.threshold", 20.0)
	v.SetDefault("thresholds.categories.cpu.direction", "lower_better")

	// -- Scoring --
	v.SetDefault("scoring.weight_critical", 40)
	v.SetDefault("scoring.weight_high", 20)
	v.SetDefault("scoring.weight_medium", 10)
	v.SetDefault("scoring.weight_low", 5)
	v.SetDefault("scoring.ratio_floor", 0.5)

	// -- Scan --
	v.SetDefault("scan.ecosystems", []string{"npm", "pip"})
	v.SetDefault("scan.timeout", "5m")
	v.SetDefault("scan.concurrency", 2)

	// -- Trend --
	v.SetDefault("trend.window", 3)
	v.SetDefault("trend.epsilon", 1e-9)

	// -- GitHub --
	v.SetDefault("github.requests_per_sec", 1.0)

	// -- Health --
	v.SetDefault("health.repo_path", ".")
	v.SetDefault("health.max_head_age", "720h")     // 30 days
	v.SetDefault("health.max_baseline_age", "720h") // 30 days
	v.SetDefault("health.lookback_days", 90)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("github.token", "PIPEWATCH_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("store.postgres.password", "PIPEWATCH_STORE_POSTGRES_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Unmarshal does not consult BindEnv-only keys in all viper versions.
	if cfg.GitHub.Token == "" {
		if tok := os.Getenv("PIPEWATCH_GITHUB_TOKEN"); tok != "" {
			cfg.GitHub.Token = tok
		} else {
			cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "fs", "postgres":
	default:
		return fmt.Errorf("store.backend must be \"fs\" or \"postgres\", got %q", c.Store.Backend)
	}
	if c.Store.RetainHistory < 0 {
		return fmt.Errorf("store.retain_history must not be negative")
	}
	if c.Thresholds.DefaultThreshold <= 0 {
		return fmt.Errorf("thresholds.default_threshold must be positive")
	}
	if c.Thresholds.WarningMultiplier < 1 {
		return fmt.Errorf("thresholds.warning_multiplier must be >= 1")
	}
	for name, cat := range c.Thresholds.Categories {
		if cat.Threshold <= 0 {
			return fmt.Errorf("thresholds.categories.%s.threshold must be positive", name)
		}
		if cat.Direction != "lower_better" && cat.Direction != "higher_better" {
			return fmt.Errorf("thresholds.categories.%s.direction must be lower_better or higher_better", name)
		}
	}
	if c.Scoring.RatioFloor < 0 || c.Scoring.RatioFloor > 1 {
		return fmt.Errorf("scoring.ratio_floor must be between 0.0 and 1.0")
	}
	if c.Scoring.WeightCritical < 0 || c.Scoring.WeightHigh < 0 ||
		c.Scoring.WeightMedium < 0 || c.Scoring.WeightLow < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	if c.Trend.Window < 2 {
		return fmt.Errorf("trend.window must be at least 2")
	}
	if c.Trend.Epsilon < 0 {
		return fmt.Errorf("trend.epsilon must not be negative")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be a positive integer")
	}
	if c.GitHub.AppID != 0 && c.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("github.private_key_path is required when github.app_id is set")
	}
	return nil
}
