package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// RankerDeps wires the directory API and ranking storage.
type RankerDeps struct {
	Directory   ports.DeputyDirectory
	Store       ports.RankingStore
	Months      int
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Ranker builds the expense ranking of all deputies in office.
type Ranker struct {
	directory   ports.DeputyDirectory
	store       ports.RankingStore
	months      int
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewRanker constructs the ranking job; months defaults to 3 and concurrency to 4.
func NewRanker(deps RankerDeps) *Ranker {
	r := &Ranker{
		directory:   deps.Directory,
		store:       deps.Store,
		months:      deps.Months,
		concurrency: deps.Concurrency,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if r.months <= 0 {
		r.months = 3
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run lists deputies, aggregates their expenses and persists the sorted ranking.
func (r *Ranker) Run(ctx context.Context) (domain.Ranking, error) {
	started := r.now()

	deputies, err := r.directory.ListDeputies(ctx)
	if err != nil {
		return domain.Ranking{}, fmt.Errorf("list deputies: %w", err)
	}
	if len(deputies) == 0 {
		return domain.Ranking{}, fmt.Errorf("list deputies: empty response")
	}
	r.logger.Info("ranking started", "deputies", len(deputies), "months", r.months)

	periods := monthsBack(started, r.months)

	var (
		mu      sync.Mutex
		ranked  []domain.ExpenseSummary
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, deputy := range deputies {
		g.Go(func() error {
			var expenses []domain.Expense
			for _, period := range periods {
				batch, err := r.directory.DeputyExpenses(gctx, deputy.ID, period.Year(), period.Month())
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					r.logger.Warn("expenses unavailable", "deputy", deputy.ID, "name", deputy.Name,
						"period", period.Format("2006-01"), "error", err)
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				expenses = append(expenses, batch...)
			}

			summary := Summarize(deputy, expenses, r.months)
			r.logger.Debug("deputy processed", "deputy", deputy.ID, "name", deputy.Name, "total", summary.Total)
			if summary.Total <= 0 {
				return nil
			}
			mu.Lock()
			ranked = append(ranked, summary)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Ranking{}, fmt.Errorf("collect expenses: %w", err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total == ranked[j].Total {
			return ranked[i].Deputy.ID < ranked[j].Deputy.ID
		}
		return ranked[i].Total > ranked[j].Total
	})

	ranking := domain.Ranking{
		GeneratedAt: started.UTC(),
		Months:      r.months,
		Deputies:    ranked,
	}
	if err := r.store.SaveRanking(ctx, ranking); err != nil {
		return domain.Ranking{}, fmt.Errorf("save ranking: %w", err)
	}

	r.logger.Info("ranking saved", "ranked", len(ranked), "skipped", skipped,
		"duration", r.now().Sub(started).Round(time.Millisecond))
	return ranking, nil
}

// NormalizeCategory strips dots and title-cases an expense category label.
func NormalizeCategory(raw string) string {
	// Casers are stateful; Summarize runs on several goroutines.
	return cases.Title(language.BrazilianPortuguese).String(strings.TrimSpace(strings.ReplaceAll(raw, ".", "")))
}

// Summarize totals a deputy's expenses, grouping by category (descending) and
// keeping the largest single expense.
func Summarize(deputy domain.Deputy, expenses []domain.Expense, months int) domain.ExpenseSummary {
	summary := domain.ExpenseSummary{Deputy: deputy, Months: months}

	totals := map[string]float64{}
	var largest *domain.Expense
	for i := range expenses {
		e := expenses[i]
		summary.Total += e.Amount
		totals[NormalizeCategory(e.Category)] += e.Amount
		if e.Amount > 0 && (largest == nil || e.Amount > largest.Amount) {
			largest = &e
		}
	}

	summary.Categories = make([]domain.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		summary.Categories = append(summary.Categories, domain.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		if summary.Categories[i].Total == summary.Categories[j].Total {
			return summary.Categories[i].Category < summary.Categories[j].Category
		}
		return summary.Categories[i].Total > summary.Categories[j].Total
	})
	summary.Largest = largest

	return summary
}

// monthsBack returns the first day of the current month and the n-1 months before it.
func monthsBack(now time.Time, n int) []time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, first.AddDate(0, -i, 0))
	}
	return out
}
