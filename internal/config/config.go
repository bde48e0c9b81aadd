package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Filter   FilterConfig   `mapstructure:"filter" yaml:"filter"`
	Behavior BehaviorConfig `mapstructure:"behavior" yaml:"behavior"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
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

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// SessionConfig bounds a single application-session run.
type SessionConfig struct {
	DailyApplicationLimit  int           `mapstructure:"daily_application_limit" yaml:"daily_application_limit"`
	ApplicationsPerSession int           `mapstructure:"applications_per_session" yaml:"applications_per_session"`
	MaxRuntime             time.Duration `mapstructure:"max_runtime" yaml:"max_runtime"`
	CheckpointInterval     int           `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`
	CheckpointMaxAge       time.Duration `mapstructure:"checkpoint_max_age" yaml:"checkpoint_max_age"`
	AutoSubmit             bool          `mapstructure:"auto_submit" yaml:"auto_submit"`
	SubmitSettleDelay      time.Duration `mapstructure:"submit_settle_delay" yaml:"submit_settle_delay"`
	SkipCaptchaSites       bool          `mapstructure:"skip_captcha_sites" yaml:"skip_captcha_sites"`
	ResumePath             string        `mapstructure:"resume_path" yaml:"resume_path"`
	SearchTerms            []string      `mapstructure:"search_terms" yaml:"search_terms"`
}

// FilterConfig tunes job admission and prioritization.
type FilterConfig struct {
	RejectionThreshold  int `mapstructure:"rejection_threshold" yaml:"rejection_threshold"`
	MaxApplicants       int `mapstructure:"max_applicants" yaml:"max_applicants"`
	ViewedRetentionDays int `mapstructure:"viewed_retention_days" yaml:"viewed_retention_days"`
}

// BehaviorConfig tunes the human-cadence simulation.
type BehaviorConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	ReadingMin     time.Duration `mapstructure:"reading_min" yaml:"reading_min"`
	ReadingMax     time.Duration `mapstructure:"reading_max" yaml:"reading_max"`
	KeystrokeMin   time.Duration `mapstructure:"keystroke_min" yaml:"keystroke_min"`
	KeystrokeMax   time.Duration `mapstructure:"keystroke_max" yaml:"keystroke_max"`
	CooldownMin    time.Duration `mapstructure:"cooldown_min" yaml:"cooldown_min"`
	CooldownMax    time.Duration `mapstructure:"cooldown_max" yaml:"cooldown_max"`
	ThinkingChance float64       `mapstructure:"thinking_chance" yaml:"thinking_chance"`
}

// AIConfig configures the field-classification fallback.
type AIConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Model         string        `mapstructure:"model" yaml:"model"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	APITimeout    time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	CacheEnabled  bool          `mapstructure:"cache_enabled" yaml:"cache_enabled"`
	CacheMaxAge   time.Duration `mapstructure:"cache_max_age" yaml:"cache_max_age"`
	CacheFilePath string        `mapstructure:"cache_file" yaml:"cache_file"`
}

// RetryConfig tunes the attempt executor.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
}

// StorageConfig names the persisted state files. All stores are
// single-process, whole-file read-modify-write JSON or CSV.
type StorageConfig struct {
	DataDir               string `mapstructure:"data_dir" yaml:"data_dir"`
	KnowledgeBaseFile     string `mapstructure:"knowledge_base_file" yaml:"knowledge_base_file"`
	CheckpointFile        string `mapstructure:"checkpoint_file" yaml:"checkpoint_file"`
	ViewedJobsFile        string `mapstructure:"viewed_jobs_file" yaml:"viewed_jobs_file"`
	RejectedCompaniesFile string `mapstructure:"rejected_companies_file" yaml:"rejected_companies_file"`
	AnalyticsFile         string `mapstructure:"analytics_file" yaml:"analytics_file"`
	MetricsFile           string `mapstructure:"metrics_file" yaml:"metrics_file"`
	ConnectionsFile       string `mapstructure:"connections_file" yaml:"connections_file"`
	ExternalLinksFile     string `mapstructure:"external_links_file" yaml:"external_links_file"`
}

// ProfileConfig locates the applicant profile data.
type ProfileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "applyforge")
	v.SetDefault("logger.log_file", "applyforge.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "10s")

	// -- Session --
	v.SetDefault("session.daily_application_limit", 50)
	v.SetDefault("session.applications_per_session", 10)
	v.SetDefault("session.max_runtime", "2h")
	v.SetDefault("session.checkpoint_interval", 5)
	v.SetDefault("session.checkpoint_max_age", "24h")
	v.SetDefault("session.auto_submit", false)
	v.SetDefault("session.submit_settle_delay", "2s")
	v.SetDefault("session.skip_captcha_sites", true)

	// -- Filter --
	v.SetDefault("filter.rejection_threshold", 2)
	v.SetDefault("filter.max_applicants", 200)
	v.SetDefault("filter.viewed_retention_days", 90)

	// -- Behavior --
	v.SetDefault("behavior.enabled", true)
	v.SetDefault("behavior.reading_min", "5s")
	v.SetDefault("behavior.reading_max", "15s")
	v.SetDefault("behavior.keystroke_min", "50ms")
	v.SetDefault("behavior.keystroke_max", "150ms")
	v.SetDefault("behavior.cooldown_min", "30s")
	v.SetDefault("behavior.cooldown_max", "90s")
	v.SetDefault("behavior.thinking_chance", 0.05)

	// -- AI --
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.api_timeout", "30s")
	v.SetDefault("ai.cache_enabled", true)
	v.SetDefault("ai.cache_max_age", "168h")
	v.SetDefault("ai.cache_file", "data/ai_responses.json")

	// -- Retry --
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "2s")

	// -- Storage --
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.knowledge_base_file", "data/field_knowledge_base.json")
	v.SetDefault("storage.checkpoint_file", "data/session_checkpoint.json")
	v.SetDefault("storage.viewed_jobs_file", "data/viewed_jobs.json")
	v.SetDefault("storage.rejected_companies_file", "data/rejected_companies.json")
	v.SetDefault("storage.analytics_file", "data/success_metrics.json")
	v.SetDefault("storage.metrics_file", "data/session_metrics.csv")
	v.SetDefault("storage.connections_file", "data/connection_requests.json")
	v.SetDefault("storage.external_links_file", "data/external_links.csv")

	// -- Profile --
	v.SetDefault("profile.path", "profile.json")
}

// NewFromViper creates a validated configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("ai.api_key", "APPLYFORGE_AI_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Session.DailyApplicationLimit <= 0 {
		return fmt.Errorf("session.daily_application_limit must be a positive integer")
	}
	if c.Session.CheckpointInterval <= 0 {
		return fmt.Errorf("session.checkpoint_interval must be a positive integer")
	}
	if c.Session.CheckpointMaxAge <= 0 {
		return fmt.Errorf("session.checkpoint_max_age must be a positive duration")
	}
	if c.Session.SubmitSettleDelay < 0 {
		return fmt.Errorf("session.submit_settle_delay cannot be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be a positive duration")
	}
	if c.Filter.RejectionThreshold <= 0 {
		return fmt.Errorf("filter.rejection_threshold must be a positive integer")
	}
	if c.Behavior.ThinkingChance < 0 || c.Behavior.ThinkingChance > 1 {
		return fmt.Errorf("behavior.thinking_chance must be between 0.0 and 1.0")
	}
	return nil
}
