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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Outscraper OutscraperConfig `yaml:"outscraper" mapstructure:"outscraper"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OutscraperConfig holds the async scrape-job service settings.
type OutscraperConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	PollMaxAttempts  int    `yaml:"poll_max_attempts" mapstructure:"poll_max_attempts"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollCapSecs      int    `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int    `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// BrowserConfig configures headless-browser scraping.
type BrowserConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	SelectorsPath string `yaml:"selectors_path" mapstructure:"selectors_path"`
	Headless      bool   `yaml:"headless" mapstructure:"headless"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// AnalysisConfig configures the analysis engine.
type AnalysisConfig struct {
	Mode             string `yaml:"mode" mapstructure:"mode"`
	RetryMaxAttempts int    `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
}

// IngestConfig configures the scrape pipeline.
type IngestConfig struct {
	MaxReviews int `yaml:"max_reviews" mapstructure:"max_reviews"`
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

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REVIEWLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "reviews.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("outscraper.base_url", "https://api.outscraper.cloud")
	v.SetDefault("outscraper.poll_max_attempts", 12)
	v.SetDefault("outscraper.poll_interval_secs", 2)
	v.SetDefault("outscraper.poll_cap_secs", 30)
	v.SetDefault("outscraper.failure_threshold", 5)
	v.SetDefault("outscraper.cooldown_secs", 30)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("analysis.mode", "standard")
	v.SetDefault("analysis.retry_max_attempts", 3)
	v.SetDefault("ingest.max_reviews", 100)

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

// Validate checks that the configuration is usable for the given mode:
// "ingest", "analyze", or "serve". Provider credentials are deliberately
// not required here; a provider without a credential is skipped at run
// time rather than failing startup.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		problems = append(problems, "store.path is required for the sqlite driver")
	}

	switch mode {
	case "ingest":
		if c.Ingest.MaxReviews < 1 || c.Ingest.MaxReviews > 1000 {
			problems = append(problems, "ingest.max_reviews must be between 1 and 1000")
		}
	case "analyze":
		if c.Analysis.Mode != "standard" && c.Analysis.Mode != "fast" {
			problems = append(problems, "analysis.mode must be standard or fast")
		}
		if c.Analysis.RetryMaxAttempts < 1 || c.Analysis.RetryMaxAttempts > 10 {
			problems = append(problems, "analysis.retry_max_attempts must be between 1 and 10")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
