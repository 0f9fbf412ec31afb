package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"Sentinela/internal/config"
	"Sentinela/internal/domain"
	"Sentinela/internal/infrastructure/camara"
	"Sentinela/internal/infrastructure/console"
	"Sentinela/internal/infrastructure/feed"
	"Sentinela/internal/infrastructure/formatter"
	"Sentinela/internal/infrastructure/httpfetch"
	"Sentinela/internal/infrastructure/parser"
	"Sentinela/internal/infrastructure/scheduler"
	"Sentinela/internal/infrastructure/storage"
	"Sentinela/internal/infrastructure/telegram"
	"Sentinela/internal/infrastructure/xapi"
	"Sentinela/internal/logging"
	"Sentinela/internal/metrics"
	"Sentinela/internal/ports"
	"Sentinela/internal/scanner"
	"Sentinela/internal/usecase"
)

// Pipeline names, also used as ledger partition and metrics grouping.
const (
	PipelineNews     = "news"
	PipelineExpenses = "expenses"
)

// Application wires configs to use cases and owns the opened resources.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	http   *http.Client

	mu        sync.Mutex
	ledgers   map[string]ports.LedgerStore
	closers   []io.Closer
	endpoint  ports.PublishEndpoint
	pipelines map[string]*usecase.Pipeline
}

// New builds the application; out receives dry-run output and may be nil.
func New(cfg config.Config, baseLogger *slog.Logger, out io.Writer) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if out == nil {
		out = io.Discard
	}
	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		out:       out,
		http:      &http.Client{Timeout: cfg.HTTP.Timeout},
		ledgers:   map[string]ports.LedgerStore{},
		pipelines: map[string]*usecase.Pipeline{},
	}
}

// RunNews publishes at most one new news item.
func (a *Application) RunNews(ctx context.Context) (usecase.RunReport, error) {
	p, err := a.pipeline(ctx, PipelineNews)
	if err != nil {
		return usecase.RunReport{}, err
	}
	return p.Run(ctx)
}

// RunExpenses publishes the expense thread of the highest ranked deputy not yet posted.
func (a *Application) RunExpenses(ctx context.Context) (usecase.RunReport, error) {
	p, err := a.pipeline(ctx, PipelineExpenses)
	if err != nil {
		return usecase.RunReport{}, err
	}
	return p.Run(ctx)
}

// RunRanking rebuilds the expense ranking from the open-data API.
func (a *Application) RunRanking(ctx context.Context) (domain.Ranking, error) {
	exp := a.cfg.Expenses
	ranker := usecase.NewRanker(usecase.RankerDeps{
		Directory: camara.NewClient(exp.APIURL, a.http, exp.RequestsPerSecond,
			a.logger.With("component", "camara")),
		Store:       storage.NewRankingFile(exp.RankingFile),
		Months:      exp.Months,
		Concurrency: exp.Concurrency,
		Logger:      a.logger.With("component", "ranking"),
	})
	return ranker.Run(ctx)
}

// Ledger returns the ledger store of the named pipeline.
func (a *Application) Ledger(ctx context.Context, name string) (ports.LedgerStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledgerLocked(ctx, name)
}

// Schedule runs every job with a cron spec until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	log := a.logger.With("component", "scheduler")
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.Location(), a.logger)

	sched := usecase.NewScheduler(driver, log,
		usecase.Job{Name: PipelineNews, Spec: a.cfg.Scheduler.News, Run: func(ctx context.Context) error {
			_, err := a.RunNews(ctx)
			return err
		}},
		usecase.Job{Name: PipelineExpenses, Spec: a.cfg.Scheduler.Expenses, Run: func(ctx context.Context) error {
			_, err := a.RunExpenses(ctx)
			return err
		}},
		usecase.Job{Name: "ranking", Spec: a.cfg.Scheduler.Ranking, Run: func(ctx context.Context) error {
			_, err := a.RunRanking(ctx)
			return err
		}},
	)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("scheduler started", "timezone", a.cfg.Scheduler.Location().String(), "next", driver.Entries())

	<-ctx.Done()
	log.Info("scheduler stopping")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.Timeout*4)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases database handles opened by the ledgers.
func (a *Application) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) pipeline(ctx context.Context, name string) (*usecase.Pipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pipelines[name]; ok {
		return p, nil
	}

	ledger, err := a.ledgerLocked(ctx, name)
	if err != nil {
		return nil, err
	}
	endpoint, err := a.endpointLocked()
	if err != nil {
		return nil, err
	}

	deps := usecase.PipelineDeps{
		Name:     name,
		Ledger:   ledger,
		Endpoint: endpoint,
		Recorder: a.recorder(),
		Logger:   a.logger.With("component", "pipeline"),
	}

	switch name {
	case PipelineNews:
		sources, err := a.newsSources()
		if err != nil {
			return nil, err
		}
		deps.Sources = sources
		deps.Formatter = formatter.NewNewsFormatter(a.cfg.News.Hashtags)
		deps.Retention = a.cfg.News.Ledger.Retention
	case PipelineExpenses:
		deps.Sources = []ports.ItemSource{camara.NewRankingSource(storage.NewRankingFile(a.cfg.Expenses.RankingFile))}
		deps.Formatter = formatter.NewExpenseFormatter(a.cfg.Expenses.Hashtags)
		deps.Retention = a.cfg.Expenses.Ledger.Retention
	default:
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}

	p := usecase.NewPipeline(deps)
	a.pipelines[name] = p
	return p, nil
}

func (a *Application) newsSources() ([]ports.ItemSource, error) {
	fetcher := httpfetch.New(a.http, a.cfg.HTTP.Timeout)

	registry := scanner.NewRegistry()
	registry.Register(feed.NewRSSScanner(fetcher))
	registry.Register(parser.NewHTMLScanner(fetcher))

	sources, err := parser.BuildSources(registry, a.cfg.News.Sites, a.logger.With("component", "source"))
	if err != nil {
		return nil, fmt.Errorf("build news sources: %w", err)
	}
	return sources, nil
}

func (a *Application) ledgerConfig(name string) (config.LedgerConfig, error) {
	switch name {
	case PipelineNews:
		return a.cfg.News.Ledger, nil
	case PipelineExpenses:
		return a.cfg.Expenses.Ledger, nil
	default:
		return config.LedgerConfig{}, fmt.Errorf("unknown pipeline %q", name)
	}
}

func (a *Application) ledgerLocked(ctx context.Context, name string) (ports.LedgerStore, error) {
	if l, ok := a.ledgers[name]; ok {
		return l, nil
	}
	lc, err := a.ledgerConfig(name)
	if err != nil {
		return nil, err
	}

	var store ports.LedgerStore
	switch strings.ToLower(lc.Driver) {
	case config.LedgerFile:
		store = storage.NewFileLedger(lc.Path, lc.Key)
	case config.LedgerPostgres, config.LedgerSQLite:
		sqlLedger, err := storage.OpenSQLLedger(ctx, strings.ToLower(lc.Driver), lc.DSN, name)
		if err != nil {
			return nil, fmt.Errorf("open %s ledger: %w: %w", name, usecase.ErrStateUnavailable, err)
		}
		a.closers = append(a.closers, sqlLedger)
		store = sqlLedger
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", lc.Driver)
	}

	a.ledgers[name] = store
	return store, nil
}

func (a *Application) endpointLocked() (ports.PublishEndpoint, error) {
	if a.endpoint != nil {
		return a.endpoint, nil
	}

	pc := a.cfg.Publisher
	switch strings.ToLower(pc.Driver) {
	case config.PublisherX:
		a.endpoint = xapi.NewClient(pc.X.Endpoint, xapi.Credentials{
			APIKey:            pc.X.APIKey,
			APISecret:         pc.X.APISecret,
			AccessToken:       pc.X.AccessToken,
			AccessTokenSecret: pc.X.AccessTokenSecret,
		}, a.http)
	case config.PublisherTelegram:
		pub, err := telegram.NewPublisher(pc.Telegram.APIURL, pc.Telegram.BotToken, pc.Telegram.ChatID, a.http)
		if err != nil {
			return nil, fmt.Errorf("telegram publisher: %w", err)
		}
		a.endpoint = pub
	case config.PublisherConsole:
		a.endpoint = console.NewPublisher(a.out)
	default:
		return nil, fmt.Errorf("unknown publisher driver %q", pc.Driver)
	}
	return a.endpoint, nil
}

func (a *Application) recorder() ports.RunRecorder {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return nil
	}
	return metrics.NewPusher(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job)
}
