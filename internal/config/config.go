package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Reference  ReferenceConfig  `mapstructure:"reference"`
	SLAMonitor SLAMonitorConfig `mapstructure:"sla_monitor"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds claim store configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or memory
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PipelineConfig holds routing thresholds and processing limits
type PipelineConfig struct {
	AutoApproveConfidence float64       `mapstructure:"auto_approve_confidence"`
	AutoApproveMaxValue   float64       `mapstructure:"auto_approve_max_value"`
	MaxConcurrent         int           `mapstructure:"max_concurrent"` // 0 means unbounded
	Timeout               time.Duration `mapstructure:"timeout"`        // 0 means no deadline
	StrictTransitions     bool          `mapstructure:"strict_transitions"`
}

// OpenAIConfig holds the LLM root-cause analyzer configuration
type OpenAIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	PromptsPath       string        `mapstructure:"prompts_path"` // empty uses the built-in prompt
}

// LarkConfig holds Lark messaging configuration
type LarkConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	AppID             string            `mapstructure:"app_id"`
	AppSecret         string            `mapstructure:"app_secret"`
	ReviewerChatID    string            `mapstructure:"reviewer_chat_id"`
	CustomerChatID    string            `mapstructure:"customer_chat_id"`
	EscalationChatIDs map[string]string `mapstructure:"escalation_chat_ids"` // keyed by escalation target
	APITimeout        time.Duration     `mapstructure:"api_timeout"`
}

// ReferenceConfig holds ERP reference data configuration
type ReferenceConfig struct {
	Path     string        `mapstructure:"path"` // YAML fixture file; empty disables lookups
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SLAMonitorConfig holds the SLA breach scanner configuration
type SLAMonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from an optional YAML file, a .env file in the
// working directory when present, and environment variables.
// An empty configPath yields defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment is given
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	// gotenv.Load never overrides variables already set in the environment
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Pipeline defaults
	v.SetDefault("pipeline.auto_approve_confidence", 0.9)
	v.SetDefault("pipeline.auto_approve_max_value", 1000.0)
	v.SetDefault("pipeline.max_concurrent", 0)
	v.SetDefault("pipeline.timeout", time.Duration(0))
	v.SetDefault("pipeline.strict_transitions", false)

	// OpenAI defaults
	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.requests_per_minute", 60)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.prompts_path", "")

	// Lark defaults
	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.api_timeout", 30*time.Second)
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.reviewer_chat_id", "")
	v.SetDefault("lark.customer_chat_id", "")

	// Reference data defaults
	v.SetDefault("reference.path", "")
	v.SetDefault("reference.cache_ttl", 10*time.Minute)

	// SLA monitor defaults
	v.SetDefault("sla_monitor.enabled", true)
	v.SetDefault("sla_monitor.interval", time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration.
// Every key can also be set as CLAIMS_<SECTION>_<KEY>.
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Sensitive credentials from environment
	_ = v.BindEnv("openai.api_key", "CLAIMS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("lark.app_id", "CLAIMS_LARK_APP_ID", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "CLAIMS_LARK_APP_SECRET", "LARK_APP_SECRET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.Database.Driver)
	}

	if c.Pipeline.AutoApproveConfidence < 0 || c.Pipeline.AutoApproveConfidence > 1 {
		return fmt.Errorf("pipeline.auto_approve_confidence must be between 0.0 and 1.0")
	}
	if c.Pipeline.AutoApproveMaxValue <= 0 {
		return fmt.Errorf("pipeline.auto_approve_max_value must be positive")
	}
	if c.Pipeline.MaxConcurrent < 0 {
		return fmt.Errorf("pipeline.max_concurrent cannot be negative")
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("pipeline.timeout cannot be negative")
	}

	if c.OpenAI.Enabled {
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required when openai is enabled")
		}
		if c.OpenAI.RequestsPerMinute <= 0 {
			return fmt.Errorf("openai.requests_per_minute must be positive")
		}
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
		if c.Lark.ReviewerChatID == "" {
			return fmt.Errorf("lark.reviewer_chat_id is required when lark is enabled")
		}
	}

	if c.SLAMonitor.Enabled && c.SLAMonitor.Interval <= 0 {
		return fmt.Errorf("sla_monitor.interval must be positive")
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}
