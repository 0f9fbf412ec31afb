package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

var (
	// ErrStateUnavailable marks a ledger that could not be loaded or saved.
	ErrStateUnavailable = errors.New("state unavailable")
	// ErrPublishFailed marks a run whose thread publication failed.
	ErrPublishFailed = errors.New("publish failed")
)

// PipelineDeps wires all driven adapters into the publication pipeline.
type PipelineDeps struct {
	Name      string
	Sources   []ports.ItemSource
	Ledger    ports.LedgerStore
	Formatter ports.ThreadFormatter
	Endpoint  ports.PublishEndpoint
	Recorder  ports.RunRecorder
	Retention time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Pipeline publishes at most one new item per run and commits the ledger when licensed.
type Pipeline struct {
	name      string
	sources   []ports.ItemSource
	ledger    ports.LedgerStore
	formatter ports.ThreadFormatter
	publisher *SequentialPublisher
	recorder  ports.RunRecorder
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// RunReport summarizes a single pipeline run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	Pruned     int
	Candidates int
	Novel      int
	Selected   *domain.Item
	Outcome    domain.PublishOutcome
	Committed  bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	name := deps.Name
	if name == "" {
		name = "news"
	}

	return &Pipeline{
		name:      name,
		sources:   deps.Sources,
		ledger:    deps.Ledger,
		formatter: deps.Formatter,
		publisher: NewSequentialPublisher(deps.Endpoint, logger.With("component", "publisher")),
		recorder:  deps.Recorder,
		retention: deps.Retention,
		logger:    logger,
		now:       now,
	}
}

// Name identifies the pipeline in logs and metrics.
func (p *Pipeline) Name() string {
	return p.name
}

// Run executes prune, fetch, filter, select, format, publish and the conditional commit.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	now := p.now().UTC()
	report := RunReport{RunID: uuid.NewString(), StartedAt: now}
	log := p.logger.With("run_id", report.RunID, "pipeline", p.name)

	report, err := p.run(ctx, log, now, report)
	p.record(ctx, log, report, err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, now time.Time, report RunReport) (RunReport, error) {
	log.Info("run started")

	loaded, err := p.ledger.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load ledger: %w: %w", ErrStateUnavailable, err)
	}
	ledger := loaded.Prune(now, p.retention)
	report.Pruned = loaded.Len() - ledger.Len()
	log.Info("ledger loaded", "entries", ledger.Len(), "pruned", report.Pruned)

	candidates := p.collect(ctx, log)
	report.Candidates = len(candidates)

	novel := ledger.Novel(candidates)
	report.Novel = len(novel)
	log.Info("candidates filtered", "candidates", len(candidates), "novel", len(novel))

	if len(novel) == 0 {
		log.Info("nothing new to publish")
		return report, nil
	}

	item := novel[0]
	report.Selected = &item
	log.Info("item selected", "id", item.ID, "title", item.Title, "source", item.Source)

	parts, err := p.formatter.Format(item)
	if err != nil {
		report.Outcome = domain.Failed(0, err)
		return report, fmt.Errorf("format item %s: %w: %w", item.ID, ErrPublishFailed, err)
	}

	outcome := p.publisher.Publish(ctx, parts)
	report.Outcome = outcome
	log.Info("publish finished", "outcome", outcome.Kind.String(), "posted", outcome.Posted, "parts", len(parts))

	if !outcome.Commits() {
		log.Error("publication failed, ledger left unchanged", "id", item.ID, "error", outcome.Err)
		return report, fmt.Errorf("publish item %s: %w: %w", item.ID, ErrPublishFailed, outcome.Err)
	}

	committed := ledger.Record(item.ID, now)
	if err := p.ledger.Save(ctx, committed); err != nil {
		return report, fmt.Errorf("save ledger: %w: %w", ErrStateUnavailable, err)
	}
	report.Committed = true
	log.Info("ledger committed", "id", item.ID, "entries", committed.Len())

	return report, nil
}

// collect fetches every source in order; a failing source contributes nothing.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger) []domain.Item {
	var aggregated []domain.Item
	for _, src := range p.sources {
		items, err := src.Fetch(ctx)
		if err != nil {
			log.Warn("source unavailable", "source", src.Name(), "error", err)
			continue
		}
		for i := range items {
			if items[i].Source == "" {
				items[i].Source = src.Name()
			}
		}
		log.Info("source fetched", "source", src.Name(), "count", len(items))
		aggregated = append(aggregated, items...)
	}
	return aggregated
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, report RunReport, runErr error) {
	if p.recorder == nil {
		return
	}

	outcome := "noop"
	switch {
	case report.Outcome.Kind != 0:
		outcome = report.Outcome.Kind.String()
	case runErr != nil:
		outcome = "error"
	}

	summary := ports.RunSummary{
		Candidates: report.Candidates,
		Novel:      report.Novel,
		Outcome:    outcome,
		Committed:  report.Committed,
		Duration:   p.now().UTC().Sub(report.StartedAt),
	}
	if err := p.recorder.RecordRun(ctx, p.name, summary); err != nil {
		log.Warn("record run", "error", err)
	}
}
