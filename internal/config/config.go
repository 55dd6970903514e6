package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	DataForSEO   DataForSEOConfig   `yaml:"dataforseo" mapstructure:"dataforseo"`
	Firecrawl    FirecrawlConfig    `yaml:"firecrawl" mapstructure:"firecrawl"`
	Collector    CollectorConfig    `yaml:"collector" mapstructure:"collector"`
	Processor    ProcessorConfig    `yaml:"processor" mapstructure:"processor"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Report       ReportConfig       `yaml:"report" mapstructure:"report"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataForSEOConfig holds DataForSEO API credentials and settings.
type DataForSEOConfig struct {
	Login        string `yaml:"login" mapstructure:"login"`
	Password     string `yaml:"password" mapstructure:"password"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	LocationCode int    `yaml:"location_code" mapstructure:"location_code"`
	LanguageCode string `yaml:"language_code" mapstructure:"language_code"`
}

// FirecrawlConfig holds Firecrawl API settings for page discovery.
type FirecrawlConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth int    `yaml:"max_depth" mapstructure:"max_depth"`
}

// CollectorConfig configures provider call behavior in the data collector.
type CollectorConfig struct {
	ProviderTimeoutSecs int     `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst           int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ProviderTimeout returns the bounded per-call timeout.
func (c CollectorConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSecs) * time.Second
}

// ProcessorConfig configures the audit job processor.
type ProcessorConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// OrchestratorConfig configures intake and the periodic staleness sweep.
type OrchestratorConfig struct {
	StalenessHours int `yaml:"staleness_hours" mapstructure:"staleness_hours"`
	SweepMinutes   int `yaml:"sweep_minutes" mapstructure:"sweep_minutes"`
}

// StalenessWindow returns the configured staleness window.
func (c OrchestratorConfig) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessHours) * time.Hour
}

// SweepInterval returns how often the periodic sweep runs.
func (c OrchestratorConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// ReportConfig configures report assembly and artifact output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
	Theme     string `yaml:"theme" mapstructure:"theme"`
}

// ServerConfig configures the intake HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "audit.db")
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com/v3")
	v.SetDefault("dataforseo.location_code", 2840)
	v.SetDefault("dataforseo.language_code", "en")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.max_pages", 25)
	v.SetDefault("firecrawl.max_depth", 2)
	v.SetDefault("collector.provider_timeout_secs", 20)
	v.SetDefault("collector.rate_per_second", 2)
	v.SetDefault("collector.rate_burst", 4)
	v.SetDefault("collector.max_retries", 2)
	v.SetDefault("processor.workers", 1)
	v.SetDefault("processor.queue_size", 256)
	v.SetDefault("orchestrator.staleness_hours", 24)
	v.SetDefault("orchestrator.sweep_minutes", 30)
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.theme", "default")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
