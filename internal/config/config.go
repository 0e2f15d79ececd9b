package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Gmail     GmailConfig     `yaml:"gmail" mapstructure:"gmail"`
	Scraper   ScraperConfig   `yaml:"scraper" mapstructure:"scraper"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// GoogleConfig holds Google Custom Search API settings.
type GoogleConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	EngineID string `yaml:"engine_id" mapstructure:"engine_id"`
}

// GmailConfig holds Gmail OAuth credentials for the alerts inbox.
type GmailConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token"`
}

// ScraperConfig configures pipeline behavior across all channels.
type ScraperConfig struct {
	ClassifyThreshold int `yaml:"classify_threshold" mapstructure:"classify_threshold"`
	CommitThreshold   int `yaml:"commit_threshold" mapstructure:"commit_threshold"`
	MaxItemsPerSource int `yaml:"max_items_per_source" mapstructure:"max_items_per_source"`
	InboxLookbackDays int `yaml:"inbox_lookback_days" mapstructure:"inbox_lookback_days"`
	ThrottleMinMillis int `yaml:"throttle_min_millis" mapstructure:"throttle_min_millis"`
	ThrottleMaxMillis int `yaml:"throttle_max_millis" mapstructure:"throttle_max_millis"`
}

// BrowserConfig configures the headless browser used for full renders.
type BrowserConfig struct {
	NavTimeoutSecs   int  `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	SettleMillis     int  `yaml:"settle_millis" mapstructure:"settle_millis"`
	BatchSize        int  `yaml:"batch_size" mapstructure:"batch_size"`
	FetchTimeoutSecs int  `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	Headless         bool `yaml:"headless" mapstructure:"headless"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given mode
// ("scrape", "serve", or "migrate"). It collects every problem rather than
// stopping at the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "scrape":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Scraper.ClassifyThreshold < 0 || c.Scraper.ClassifyThreshold > 100 {
			problems = append(problems, "scraper.classify_threshold must be between 0 and 100")
		}
		if c.Scraper.CommitThreshold < 0 || c.Scraper.CommitThreshold > 100 {
			problems = append(problems, "scraper.commit_threshold must be between 0 and 100")
		}
		if c.Browser.BatchSize < 1 || c.Browser.BatchSize > 10 {
			problems = append(problems, "browser.batch_size must be between 1 and 10")
		}
		if c.Scraper.ThrottleMinMillis > c.Scraper.ThrottleMaxMillis {
			problems = append(problems, "scraper.throttle_min_millis must not exceed throttle_max_millis")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "migrate":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AIRESHARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "aireshark.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scraper.classify_threshold", 40)
	v.SetDefault("scraper.commit_threshold", 70)
	v.SetDefault("scraper.max_items_per_source", 20)
	v.SetDefault("scraper.inbox_lookback_days", 7)
	v.SetDefault("scraper.throttle_min_millis", 1000)
	v.SetDefault("scraper.throttle_max_millis", 5000)
	v.SetDefault("browser.nav_timeout_secs", 30)
	v.SetDefault("browser.settle_millis", 2000)
	v.SetDefault("browser.batch_size", 3)
	v.SetDefault("browser.fetch_timeout_secs", 10)
	v.SetDefault("browser.headless", true)

	// Read config file (optional)
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
