// Package app wires configuration into the running market data, analysis
// and HTTP components.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/alert"
	"github.com/newthinker/folio/internal/analysis"
	"github.com/newthinker/folio/internal/api"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/insight"
	"github.com/newthinker/folio/internal/llm/factory"
	"github.com/newthinker/folio/internal/market"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/notifier"
	"github.com/newthinker/folio/internal/notifier/email"
	"github.com/newthinker/folio/internal/notifier/telegram"
	"github.com/newthinker/folio/internal/notifier/webhook"
	"github.com/newthinker/folio/internal/provider"
	"github.com/newthinker/folio/internal/provider/alphavantage"
	"github.com/newthinker/folio/internal/provider/iex"
	"github.com/newthinker/folio/internal/provider/polygon"
	"github.com/newthinker/folio/internal/provider/yahoo"
	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/scheduler"
	"github.com/newthinker/folio/internal/sentiment"
	"github.com/newthinker/folio/internal/storage/archive"
)

// JobType is the job store type of asynchronous analyses.
const JobType = "analysis"

const gaugeInterval = 15 * time.Second

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	providers *provider.Registry
	quotes    *cache.QuoteCache
	fetcher   *market.Fetcher
	history   *market.HistoryBuilder
	risk      *risk.Engine
	sentiment *sentiment.Engine
	archive   *report.Archive
	service   *analysis.Service
	jobs      *job.Store
	notifiers *notifier.Registry
	alerts    *alert.Evaluator
	scheduler *scheduler.Scheduler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds every component from cfg. reg may be nil, in which case no
// metrics are recorded.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, metrics: reg}

	a.providers = buildProviders(cfg.Providers, logger)
	a.quotes = cache.NewQuoteCache(cfg.Cache.QuoteTTL)

	marketOpts := []market.Option{
		market.WithRetryPolicy(market.RetryPolicy{
			MaxAttempts:    cfg.Fetch.MaxRetries,
			InitialBackoff: cfg.Fetch.InitialBackoff,
			MaxBackoff:     cfg.Fetch.MaxBackoff,
			AttemptTimeout: cfg.Fetch.Timeout,
		}),
		market.WithLogger(logger.Named("market")),
	}
	if reg != nil {
		marketOpts = append(marketOpts, market.WithRecorder(reg))
	}
	a.fetcher = market.NewFetcher(a.providers, a.quotes, marketOpts...)
	a.history = market.NewHistoryBuilder(a.providers, marketOpts...)

	a.risk = risk.NewEngine(a.history, risk.Config{
		VolatilityDays: cfg.Analysis.VolatilityDays,
		Concurrency:    cfg.Fetch.Concurrency,
	}, logger.Named("risk"))

	news, err := buildNewsSource(cfg, a.providers, logger)
	if err != nil {
		return nil, err
	}
	var sentimentOpts []sentiment.Option
	if reg != nil {
		sentimentOpts = append(sentimentOpts, sentiment.WithRecorder(reg))
	}
	a.sentiment = sentiment.NewEngine(news, sentiment.Config{
		MaxHeadlines: cfg.Analysis.MaxHeadlines,
		Concurrency:  cfg.Fetch.Concurrency,
	}, logger.Named("sentiment"), sentimentOpts...)

	serviceOpts := []analysis.Option{analysis.WithConcurrency(cfg.Fetch.Concurrency)}
	if reg != nil {
		serviceOpts = append(serviceOpts, analysis.WithRecorder(reg))
	}

	if cfg.Archive.Enabled {
		store, err := buildArchiveStore(cfg.Archive)
		if err != nil {
			return nil, err
		}
		a.archive = report.NewArchive(store, logger.Named("archive"))
		serviceOpts = append(serviceOpts, analysis.WithArchive(a.archive))
	}

	llmProvider, err := factory.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if llmProvider != nil {
		logger.Info("llm commentary enabled", zap.String("provider", llmProvider.Name()))
	}
	serviceOpts = append(serviceOpts, analysis.WithNarrator(
		insight.NewNarrator(llmProvider, logger.Named("insight"), insight.WithTimeout(cfg.LLM.Timeout))))

	a.service = analysis.NewService(a.fetcher, a.risk, a.sentiment, logger.Named("analysis"), serviceOpts...)
	a.jobs = job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour)

	a.notifiers, err = buildNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, err
	}
	if len(cfg.Alerts.Rules) > 0 {
		a.alerts, err = alert.NewEvaluator(cfg.Alerts.Rules, a.notifiers, logger.Named("alert"),
			alert.WithCooldown(cfg.Alerts.Cooldown))
		if err != nil {
			return nil, err
		}
	}

	if cfg.Schedule.Enabled {
		var comparer scheduler.Comparer
		if a.archive != nil {
			comparer = a.archive
		}
		var schedOpts []scheduler.Option
		if a.alerts != nil {
			schedOpts = append(schedOpts, scheduler.WithAlerter(a.alerts))
		}
		a.scheduler, err = scheduler.New(scheduler.Config{
			Spec: cfg.Schedule.Cron,
			Request: analysis.Request{
				Positions: cfg.Schedule.Portfolio,
				Profile:   report.Profile{RiskTolerance: cfg.Schedule.RiskTolerance},
			},
			LookbackDays: cfg.Analysis.LookbackDays,
		}, a.service, comparer, logger.Named("scheduler"), schedOpts...)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("folio initialized",
		zap.Strings("providers", a.providers.Names()),
		zap.Bool("archive", a.archive != nil),
		zap.Bool("schedule", a.scheduler != nil),
		zap.Int("notifiers", a.notifiers.Len()))
	return a, nil
}

// buildProviders registers the providers in configured order. Providers
// without credentials stay registered and fail fast at fetch time, so the
// chain simply moves past them.
func buildProviders(cfg config.ProvidersConfig, logger *zap.Logger) *provider.Registry {
	reg := provider.NewRegistry()
	for _, name := range cfg.Order {
		pc, ok := cfg.Get(name)
		if !ok {
			logger.Warn("skipping unknown provider", zap.String("provider", name))
			continue
		}
		p := newProvider(name, provider.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, RateLimit: pc.RateLimit}, logger.Named(name))
		if pc.APIKey == "" && name != "yahoo" {
			logger.Info("provider has no api key", zap.String("provider", name))
		}
		reg.Register(p)
	}
	return reg
}

func newProvider(name string, cfg provider.Config, logger *zap.Logger) provider.Provider {
	switch name {
	case "alphavantage":
		return alphavantage.New(cfg, logger)
	case "yahoo":
		return yahoo.New(cfg, logger)
	case "iex":
		return iex.New(cfg, logger)
	default:
		return polygon.New(cfg, logger)
	}
}

func buildNewsSource(cfg *config.Config, providers *provider.Registry, logger *zap.Logger) (sentiment.NewsSource, error) {
	var sources []sentiment.NewsSource
	for _, name := range cfg.News.Sources {
		switch strings.ToLower(name) {
		case "newsapi":
			nc := cfg.News.NewsAPI
			sources = append(sources, sentiment.NewNewsAPISource(
				provider.Config{APIKey: nc.APIKey, BaseURL: nc.BaseURL, RateLimit: nc.RateLimit}, logger.Named("newsapi")))
		case "alphavantage":
			p, _ := providers.Get("alphavantage")
			if ns, ok := p.(sentiment.NewsSource); ok {
				sources = append(sources, ns)
			} else {
				pc := cfg.Providers.AlphaVantage
				sources = append(sources, alphavantage.New(
					provider.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, RateLimit: pc.RateLimit}, logger.Named("alphavantage")))
			}
		case "static":
			sources = append(sources, sentiment.NewStaticSource(nil))
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown news source %q", name))
		}
	}
	if len(sources) == 0 {
		sources = append(sources, sentiment.NewStaticSource(nil))
	}

	var src sentiment.NewsSource = sentiment.NewChainSource(logger.Named("news"), sources...)
	if cfg.News.CacheTTL > 0 {
		src = sentiment.NewCachedSource(src, cfg.News.CacheTTL)
	}
	return src, nil
}

func buildNotifiers(cfgs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, nc := range cfgs {
		var n notifier.Notifier
		switch nc.Type {
		case "webhook":
			n = webhook.New("", nil)
		case "telegram":
			n = telegram.New("", "")
		case "email":
			n = email.New("", 0, "", "", "", nil)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier type %q", nc.Type))
		}
		if err := n.Init(nc); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return reg, nil
}

func buildArchiveStore(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "localfs":
		return archive.NewLocalFS(cfg.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case "memory":
		return archive.NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}

// Server builds the HTTP server over the app's components.
func (a *App) Server() (*api.Server, error) {
	deps := api.Dependencies{
		Analyzer:   a.service,
		History:    a.history,
		Volatility: a.risk,
		Sentiment:  a.sentiment,
		Jobs:       a.jobs,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	metricsPath := ""
	if a.cfg.Metrics.Enabled && a.metrics != nil {
		deps.Metrics = a.metrics
		metricsPath = a.cfg.Metrics.Path
	}
	return api.NewServer(api.Config{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		MetricsPath:  metricsPath,
	}, deps, a.logger.Named("api"))
}

// Start starts the scheduler and the job gauge loop. It blocks until ctx
// is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	if a.scheduler != nil {
		a.scheduler.Start()
		defer a.scheduler.Stop()
	}

	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("folio shutting down")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.updateGauges()
		}
	}
}

// Stop stops the loop started by Start.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) updateGauges() {
	if a.metrics != nil {
		a.metrics.SetJobsActive(JobType, a.jobs.Active())
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()

	return map[string]any{
		"running":       running,
		"providers":     a.providers.Names(),
		"cached_quotes": a.quotes.Len(),
		"active_jobs":   a.jobs.Active(),
		"archive":       a.archive != nil,
		"schedule":      a.scheduler != nil,
		"notifiers":     a.notifiers.Len(),
		"alert_rules":   len(a.cfg.Alerts.Rules),
	}
}

// Service returns the analysis service.
func (a *App) Service() *analysis.Service { return a.service }

// History returns the historical series builder.
func (a *App) History() *market.HistoryBuilder { return a.history }

// Risk returns the risk engine.
func (a *App) Risk() *risk.Engine { return a.risk }

// Sentiment returns the sentiment engine.
func (a *App) Sentiment() *sentiment.Engine { return a.sentiment }

// Archive returns the report archive, or nil when archiving is disabled.
func (a *App) Archive() *report.Archive { return a.archive }

// Scheduler returns the scheduler, or nil when no schedule is configured.
func (a *App) Scheduler() *scheduler.Scheduler { return a.scheduler }
