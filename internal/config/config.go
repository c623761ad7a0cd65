package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	MongoDatabase string `yaml:"mongo_database" mapstructure:"mongo_database"`
}

// ScrapeConfig selects and tunes the content acquisition backend.
type ScrapeConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // "firecrawl", "jina" or "local"
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina Reader API settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GenerateConfig selects the generative backend and its failure policy.
type GenerateConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"` // "anthropic" or "gemini"
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerFailures  int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// AnalysisConfig tunes the company analysis prompt.
type AnalysisConfig struct {
	ContentBudget int `yaml:"content_budget" mapstructure:"content_budget"`
}

// ExtractConfig tunes contact extraction.
type ExtractConfig struct {
	MinPhoneDigits int    `yaml:"min_phone_digits" mapstructure:"min_phone_digits"`
	DefaultRegion  string `yaml:"default_region" mapstructure:"default_region"`
}

// OutreachConfig tunes outreach email drafting.
type OutreachConfig struct {
	Sender string `yaml:"sender" mapstructure:"sender"`
}

// WebhookConfig is a single outbound automation hook.
type WebhookConfig struct {
	Name     string  `yaml:"name" mapstructure:"name"`
	URL      string  `yaml:"url" mapstructure:"url"`
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`
}

// NotionHookConfig configures the Notion lead hook.
type NotionHookConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// SalesforceHookConfig configures the Salesforce lead hook.
type SalesforceHookConfig struct {
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`
}

// NotifyConfig configures notification fan-out.
type NotifyConfig struct {
	TimeoutSecs         int                  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HighScoreThreshold  float64              `yaml:"high_score_threshold" mapstructure:"high_score_threshold"`
	LeadWebhookURL      string               `yaml:"lead_webhook_url" mapstructure:"lead_webhook_url"`
	HighScoreWebhookURL string               `yaml:"high_score_webhook_url" mapstructure:"high_score_webhook_url"`
	Webhooks            []WebhookConfig      `yaml:"webhooks" mapstructure:"webhooks"`
	Notion              NotionHookConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce          SalesforceHookConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// BatchConfig configures bulk submission.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxURLs       int `yaml:"max_urls" mapstructure:"max_urls"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	JWTSecret      string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RatePerMinute  int      `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// MonitorConfig configures in-process health alerting for long-running
// commands. Alerts are only sent when WebhookURL is set.
type MonitorConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackMins          int     `yaml:"lookback_mins" mapstructure:"lookback_mins"`
	MinRuns               int     `yaml:"min_runs" mapstructure:"min_runs"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
	HookFailureThreshold  int     `yaml:"hook_failure_threshold" mapstructure:"hook_failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, config.yaml, and
// LEADINTEL_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadintel.db")
	v.SetDefault("store.mongo_database", "leadintel")
	v.SetDefault("scrape.backend", "firecrawl")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.respect_robots", true)
	v.SetDefault("scrape.user_agent", "leadintel/1.0 (+https://hubcredo.com/bot)")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("generate.provider", "gemini")
	v.SetDefault("generate.timeout_secs", 45)
	v.SetDefault("generate.breaker_failures", 0)
	v.SetDefault("generate.breaker_reset_secs", 60)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash-001")
	v.SetDefault("gemini.temperature", 0.4)
	v.SetDefault("analysis.content_budget", 8000)
	v.SetDefault("extract.min_phone_digits", 7)
	v.SetDefault("extract.default_region", "US")
	v.SetDefault("outreach.sender", "HubCredo")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("notify.high_score_threshold", 8)
	v.SetDefault("notify.lead_webhook_url", "")
	v.SetDefault("notify.high_score_webhook_url", "")
	v.SetDefault("notify.notion.token", "")
	v.SetDefault("notify.notion.database_id", "")
	v.SetDefault("notify.salesforce.client_id", "")
	v.SetDefault("notify.salesforce.username", "")
	v.SetDefault("notify.salesforce.key_path", "")
	v.SetDefault("notify.salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("batch.max_urls", 50)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_per_minute", 30)
	v.SetDefault("monitor.webhook_url", "")
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.lookback_mins", 60)
	v.SetDefault("monitor.min_runs", 5)
	v.SetDefault("monitor.failure_rate_threshold", 0.5)
	v.SetDefault("monitor.degraded_rate_threshold", 0.5)
	v.SetDefault("monitor.hook_failure_threshold", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the keys required by the given command mode are set.
// Modes: "analyze" (single and bulk runs), "serve", "leads" and "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateAnalyze()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateAnalyze()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.JWTSecret == "" {
			errs = append(errs, "server.jwt_secret is required")
		}
		if c.Server.RatePerMinute < 0 {
			errs = append(errs, "server.rate_per_minute must be >= 0")
		}
	case "leads", "migrate":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres", "sqlite", "mongo":
	default:
		errs = append(errs, "store.driver must be one of postgres, sqlite, mongo")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateAnalyze() []string {
	var errs []string

	switch c.Scrape.Backend {
	case "firecrawl":
		if c.Firecrawl.Key == "" {
			errs = append(errs, "firecrawl.key is required")
		}
	case "jina", "local":
	default:
		errs = append(errs, "scrape.backend must be one of firecrawl, jina, local")
	}
	if c.Scrape.TimeoutSecs <= 0 {
		errs = append(errs, "scrape.timeout_secs must be > 0")
	}

	switch c.Generate.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, "generate.provider must be one of anthropic, gemini")
	}
	if c.Generate.TimeoutSecs <= 0 {
		errs = append(errs, "generate.timeout_secs must be > 0")
	}

	if c.Analysis.ContentBudget <= 0 {
		errs = append(errs, "analysis.content_budget must be > 0")
	}
	if c.Extract.MinPhoneDigits < 1 || c.Extract.MinPhoneDigits > 15 {
		errs = append(errs, "extract.min_phone_digits must be between 1 and 15")
	}
	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 20 {
		errs = append(errs, "batch.max_concurrent must be between 1 and 20")
	}
	for i, wh := range c.Notify.Webhooks {
		if wh.URL == "" {
			errs = append(errs, "notify.webhooks["+strconv.Itoa(i)+"].url is required")
		}
	}
	return errs
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
