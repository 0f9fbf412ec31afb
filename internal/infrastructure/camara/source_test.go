package camara

import (
	"context"
	"errors"
	"testing"
	"time"

	"Sentinela/internal/domain"
)

type rankingStub struct {
	ranking domain.Ranking
	err     error
}

func (r rankingStub) LoadRanking(context.Context) (domain.Ranking, error) { return r.ranking, r.err }

func (r rankingStub) SaveRanking(context.Context, domain.Ranking) error { return nil }

func TestRankingSourceYieldsItemsInOrder(t *testing.T) {
	t.Parallel()

	generated := time.Date(2025, time.March, 3, 3, 0, 0, 0, time.UTC)
	src := NewRankingSource(rankingStub{ranking: domain.Ranking{
		GeneratedAt: generated,
		Months:      3,
		Deputies: []domain.ExpenseSummary{
			{Deputy: domain.Deputy{ID: 2, Name: "Beltrano"}, Total: 900},
			{Deputy: domain.Deputy{ID: 1, Name: "Fulano"}, Total: 100},
		},
	}})

	items, err := src.Fetch(t.Context())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "https://www.camara.leg.br/deputados/2" || items[0].Expense.Total != 900 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Expense.Deputy.Name != "Fulano" || !items[1].PublishedAt.Equal(generated) {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	if items[0].Expense == items[1].Expense {
		t.Fatal("items must not share a summary")
	}
}

func TestRankingSourceEmptyAndError(t *testing.T) {
	t.Parallel()

	items, err := NewRankingSource(rankingStub{}).Fetch(t.Context())
	if err != nil || len(items) != 0 {
		t.Fatalf("empty ranking should yield nothing: %v %v", items, err)
	}

	if _, err := NewRankingSource(rankingStub{err: domain.ErrCorruptState}).Fetch(t.Context()); !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}
