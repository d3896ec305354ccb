package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/alert"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

providers:
  order: [yahoo, alphavantage]
  alphavantage:
    api_key: "${FOLIO_TEST_AV_KEY}"

cache:
  quote_ttl: 2m

archive:
  enabled: true
  type: localfs
  path: "/tmp/folio/archive"

schedule:
  portfolio:
    - symbol: AAPL
      quantity: 10
      purchase_price: 150

alerts:
  rules:
    - name: risky
      expr: "risk_score >= 7"
      for: 1h
      severity: critical

notifiers:
  - type: webhook
    params:
      url: "http://example.com/hook"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOLIO_TEST_AV_KEY", "av-secret")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Providers.Order) != 2 || cfg.Providers.Order[0] != "yahoo" {
		t.Errorf("unexpected provider order %v", cfg.Providers.Order)
	}
	if cfg.Providers.AlphaVantage.APIKey != "av-secret" {
		t.Errorf("expected expanded api key, got %q", cfg.Providers.AlphaVantage.APIKey)
	}
	if cfg.Cache.QuoteTTL != 2*time.Minute {
		t.Errorf("expected quote ttl 2m, got %s", cfg.Cache.QuoteTTL)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Archive.Type != "localfs" {
		t.Errorf("expected localfs, got %s", cfg.Archive.Type)
	}
	if len(cfg.Schedule.Portfolio) != 1 || cfg.Schedule.Portfolio[0].PurchasePrice != 150 {
		t.Errorf("unexpected schedule portfolio %+v", cfg.Schedule.Portfolio)
	}
	if len(cfg.Alerts.Rules) != 1 || cfg.Alerts.Rules[0].For != time.Hour {
		t.Errorf("unexpected alert rules %+v", cfg.Alerts.Rules)
	}
	if cfg.Alerts.Cooldown != alert.DefaultCooldown {
		t.Errorf("expected default cooldown, got %s", cfg.Alerts.Cooldown)
	}
	if len(cfg.Notifiers) != 1 || notifier.StringParam(cfg.Notifiers[0].Params, "url") != "http://example.com/hook" {
		t.Errorf("unexpected notifiers %+v", cfg.Notifiers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Cache.QuoteTTL != 5*time.Minute {
		t.Errorf("expected default quote ttl, got %s", cfg.Cache.QuoteTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Fetch.InitialBackoff != 200*time.Millisecond || cfg.Fetch.MaxBackoff != 2*time.Second {
		t.Errorf("unexpected backoff defaults %s/%s", cfg.Fetch.InitialBackoff, cfg.Fetch.MaxBackoff)
	}
	if got := cfg.Providers.Order; len(got) != 4 || got[0] != "alphavantage" {
		t.Errorf("unexpected default order %v", got)
	}
}

func TestApplyCredentials(t *testing.T) {
	env := map[string]string{
		"ALPHA_VANTAGE_API_KEY": "av",
		"POLYGON_API_KEY":       "poly",
		"NEWS_API_KEY":          "news",
		"GEMINI_API_KEY":        "gem",
	}
	cfg := Defaults()
	cfg.Providers.Polygon.APIKey = "from-file"

	cfg.ApplyCredentials(func(k string) string { return env[k] })

	if cfg.Providers.AlphaVantage.APIKey != "av" {
		t.Errorf("alphavantage key not filled")
	}
	if cfg.Providers.Polygon.APIKey != "from-file" {
		t.Errorf("configured key should win, got %q", cfg.Providers.Polygon.APIKey)
	}
	if cfg.News.NewsAPI.APIKey != "news" || cfg.LLM.Gemini.APIKey != "gem" {
		t.Errorf("news or gemini key not filled")
	}
	if cfg.Providers.IEX.APIKey != "" {
		t.Errorf("iex key should stay empty")
	}
}

func TestProvidersConfig_Get(t *testing.T) {
	p := ProvidersConfig{IEX: ProviderConfig{APIKey: "k"}}
	if got, ok := p.Get("iex"); !ok || got.APIKey != "k" {
		t.Errorf("Get(iex) = %+v, %v", got, ok)
	}
	if _, ok := p.Get("bloomberg"); ok {
		t.Errorf("Get(bloomberg) should not exist")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"zero quote ttl", func(c *Config) { c.Cache.QuoteTTL = 0 }, core.ErrConfigInvalid},
		{"negative retries", func(c *Config) { c.Fetch.MaxRetries = -1 }, core.ErrConfigInvalid},
		{"empty order", func(c *Config) { c.Providers.Order = nil }, core.ErrConfigInvalid},
		{"unknown provider", func(c *Config) { c.Providers.Order = []string{"yahoo", "bloomberg"} }, core.ErrConfigInvalid},
		{"unknown news source", func(c *Config) { c.News.Sources = []string{"twitter"} }, core.ErrConfigInvalid},
		{"unknown archive type", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "ftp"
		}, core.ErrConfigInvalid},
		{"archive disabled ignores type", func(c *Config) { c.Archive.Type = "ftp" }, nil},
		{"s3 without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}, core.ErrConfigMissing},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, core.ErrConfigMissing},
		{"gemini with key", func(c *Config) {
			c.LLM.Provider = "gemini"
			c.LLM.Gemini.APIKey = "k"
		}, nil},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bard" }, core.ErrConfigInvalid},
		{"schedule without portfolio", func(c *Config) { c.Schedule.Enabled = true }, core.ErrConfigMissing},
		{"schedule with bad position", func(c *Config) {
			c.Schedule.Enabled = true
			c.Schedule.Portfolio = []core.Position{{Symbol: "AAPL", Quantity: -1}}
		}, core.ErrInvalidPosition},
		{"valid alert rule", func(c *Config) {
			c.Alerts.Rules = []alert.Rule{{Name: "risky", Expr: "risk_score >= 7", Severity: "critical"}}
		}, nil},
		{"bad alert rule", func(c *Config) {
			c.Alerts.Rules = []alert.Rule{{Name: "risky", Expr: "risk is high"}}
		}, core.ErrConfigInvalid},
		{"unknown notifier", func(c *Config) {
			c.Notifiers = []notifier.Config{{Type: "pager"}}
		}, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
