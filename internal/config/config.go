package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/folio/internal/alert"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
)

// Known provider and backend names.
var (
	KnownProviders   = []string{"alphavantage", "yahoo", "iex", "polygon"}
	KnownNewsSources = []string{"newsapi", "alphavantage", "static"}
	KnownLLMs        = []string{"claude", "openai", "gemini", "ollama"}
	KnownArchives    = []string{"localfs", "s3", "memory"}
	KnownNotifiers   = []string{"webhook", "telegram", "email"}
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	News      NewsConfig      `mapstructure:"news"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Notifiers []notifier.Config `mapstructure:"notifiers"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	JobTTLHours  int           `mapstructure:"job_ttl_hours"`
	MaxJobs      int           `mapstructure:"max_jobs"`
}

// ProvidersConfig lists the market data providers in priority order.
type ProvidersConfig struct {
	Order        []string       `mapstructure:"order"`
	AlphaVantage ProviderConfig `mapstructure:"alphavantage"`
	Yahoo        ProviderConfig `mapstructure:"yahoo"`
	IEX          ProviderConfig `mapstructure:"iex"`
	Polygon      ProviderConfig `mapstructure:"polygon"`
}

// ProviderConfig holds the settings of one provider. RateLimit is in
// requests per second.
type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	RateLimit int    `mapstructure:"rate_limit"`
}

// Get returns the settings for a provider name.
func (p ProvidersConfig) Get(name string) (ProviderConfig, bool) {
	switch name {
	case "alphavantage":
		return p.AlphaVantage, true
	case "yahoo":
		return p.Yahoo, true
	case "iex":
		return p.IEX, true
	case "polygon":
		return p.Polygon, true
	}
	return ProviderConfig{}, false
}

// NewsConfig selects the news sources, tried in order.
type NewsConfig struct {
	Sources  []string       `mapstructure:"sources"`
	NewsAPI  ProviderConfig `mapstructure:"newsapi"`
	CacheTTL time.Duration  `mapstructure:"cache_ttl"`
}

type CacheConfig struct {
	QuoteTTL time.Duration `mapstructure:"quote_ttl"`
}

type FetchConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
}

type AnalysisConfig struct {
	VolatilityDays int `mapstructure:"volatility_days"`
	MaxHeadlines   int `mapstructure:"max_headlines"`
	LookbackDays   int `mapstructure:"lookback_days"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs", "s3" or "memory"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Claude   ModelConfig   `mapstructure:"claude"`
	OpenAI   ModelConfig   `mapstructure:"openai"`
	Gemini   ModelConfig   `mapstructure:"gemini"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
}

type ModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ScheduleConfig runs a periodic analysis of a fixed portfolio.
type ScheduleConfig struct {
	Enabled       bool            `mapstructure:"enabled"`
	Cron          string          `mapstructure:"cron"`
	RiskTolerance string          `mapstructure:"risk_tolerance"`
	Portfolio     []core.Position `mapstructure:"portfolio"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AlertsConfig holds the rules checked after each scheduled analysis.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

// Load reads configuration from file. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix("FOLIO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ApplyCredentials(os.Getenv)

	return &cfg, nil
}

// ApplyCredentials fills empty API keys from the conventional environment
// variables.
func (c *Config) ApplyCredentials(getenv func(string) string) {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = getenv(env)
		}
	}
	fill(&c.Providers.AlphaVantage.APIKey, "ALPHA_VANTAGE_API_KEY")
	fill(&c.Providers.IEX.APIKey, "IEX_API_KEY")
	fill(&c.Providers.Polygon.APIKey, "POLYGON_API_KEY")
	fill(&c.News.NewsAPI.APIKey, "NEWS_API_KEY")
	fill(&c.LLM.Claude.APIKey, "ANTHROPIC_API_KEY")
	fill(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	fill(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("providers.order", d.Providers.Order)
	v.SetDefault("providers.alphavantage.rate_limit", d.Providers.AlphaVantage.RateLimit)
	v.SetDefault("providers.yahoo.rate_limit", d.Providers.Yahoo.RateLimit)
	v.SetDefault("providers.iex.rate_limit", d.Providers.IEX.RateLimit)
	v.SetDefault("providers.polygon.rate_limit", d.Providers.Polygon.RateLimit)
	v.SetDefault("news.sources", d.News.Sources)
	v.SetDefault("news.newsapi.rate_limit", d.News.NewsAPI.RateLimit)
	v.SetDefault("news.cache_ttl", d.News.CacheTTL)
	v.SetDefault("cache.quote_ttl", d.Cache.QuoteTTL)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.initial_backoff", d.Fetch.InitialBackoff)
	v.SetDefault("fetch.max_backoff", d.Fetch.MaxBackoff)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	v.SetDefault("analysis.volatility_days", d.Analysis.VolatilityDays)
	v.SetDefault("analysis.max_headlines", d.Analysis.MaxHeadlines)
	v.SetDefault("analysis.lookback_days", d.Analysis.LookbackDays)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("schedule.risk_tolerance", d.Schedule.RiskTolerance)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("alerts.cooldown", d.Alerts.Cooldown)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			JobTTLHours:  1,
			MaxJobs:      100,
		},
		Providers: ProvidersConfig{
			Order:        []string{"alphavantage", "yahoo", "iex", "polygon"},
			AlphaVantage: ProviderConfig{RateLimit: 5},
			Yahoo:        ProviderConfig{RateLimit: 5},
			IEX:          ProviderConfig{RateLimit: 10},
			Polygon:      ProviderConfig{RateLimit: 5},
		},
		News: NewsConfig{
			Sources:  []string{"newsapi", "alphavantage"},
			NewsAPI:  ProviderConfig{RateLimit: 5},
			CacheTTL: 15 * time.Minute,
		},
		Cache: CacheConfig{
			QuoteTTL: 5 * time.Minute,
		},
		Fetch: FetchConfig{
			MaxRetries:     3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Timeout:        10 * time.Second,
			Concurrency:    8,
		},
		Analysis: AnalysisConfig{
			VolatilityDays: 30,
			MaxHeadlines:   10,
			LookbackDays:   30,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./data/archive",
		},
		LLM: LLMConfig{
			Timeout: 30 * time.Second,
		},
		Schedule: ScheduleConfig{
			Cron:          "0 18 * * 1-5",
			RiskTolerance: "moderate",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Cooldown: alert.DefaultCooldown,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Cache.QuoteTTL <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache.quote_ttl must be positive, got %s", c.Cache.QuoteTTL))
	}
	if c.News.CacheTTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("news.cache_ttl cannot be negative, got %s", c.News.CacheTTL))
	}
	if c.Fetch.MaxRetries < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fetch.max_retries cannot be negative, got %d", c.Fetch.MaxRetries))
	}

	if len(c.Providers.Order) == 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("providers.order is empty"))
	}
	for _, name := range c.Providers.Order {
		if !contains(KnownProviders, name) {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown provider %q", name))
		}
	}
	for _, name := range c.News.Sources {
		if !contains(KnownNewsSources, name) {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown news source %q", name))
		}
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.s3.bucket required for s3"))
			}
		case "memory":
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "gemini":
			if c.LLM.Gemini.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("gemini api_key required when provider is gemini"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	if c.Schedule.Enabled {
		if c.Schedule.Cron == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("schedule.cron required when schedule is enabled"))
		}
		if len(c.Schedule.Portfolio) == 0 {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("schedule.portfolio is empty"))
		}
		if err := core.ValidatePositions(c.Schedule.Portfolio); err != nil {
			return err
		}
	}

	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	for _, n := range c.Notifiers {
		if !contains(KnownNotifiers, n.Type) {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier type %q", n.Type))
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
