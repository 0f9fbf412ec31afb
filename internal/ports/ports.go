package ports

import (
	"context"
	"time"

	"Sentinela/internal/domain"
)

// ItemSource pulls candidate items from one upstream provider.
type ItemSource interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// LedgerStore loads and saves the published-items ledger as a whole document.
type LedgerStore interface {
	Load(ctx context.Context) (domain.Ledger, error)
	Save(ctx context.Context, ledger domain.Ledger) error
}

// ThreadFormatter turns one item into ordered, bounded-length message parts.
type ThreadFormatter interface {
	Format(item domain.Item) ([]string, error)
}

// PublishEndpoint submits a single message, optionally as a reply to parentID.
// Duplicate rejections wrap domain.ErrDuplicateContent.
type PublishEndpoint interface {
	Submit(ctx context.Context, text, parentID string) (string, error)
}

// DeputyDirectory exposes the Câmara open-data endpoints used by the ranking job.
type DeputyDirectory interface {
	ListDeputies(ctx context.Context) ([]domain.Deputy, error)
	DeputyExpenses(ctx context.Context, deputyID, year int, month time.Month) ([]domain.Expense, error)
}

// RankingStore persists the expense ranking produced by the batch job.
type RankingStore interface {
	LoadRanking(ctx context.Context) (domain.Ranking, error)
	SaveRanking(ctx context.Context, ranking domain.Ranking) error
}

// RunRecorder receives a summary of each pipeline run (metrics, audit).
type RunRecorder interface {
	RecordRun(ctx context.Context, pipeline string, report RunSummary) error
}

// RunSummary is the transport-neutral view of a finished run.
type RunSummary struct {
	Candidates int
	Novel      int
	Outcome    string
	Committed  bool
	Duration   time.Duration
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Add(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
