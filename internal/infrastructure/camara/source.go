package camara

import (
	"context"
	"fmt"
	"strconv"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// ProfileURL is the public page of a deputy; it identifies expense items.
func ProfileURL(deputyID int) string {
	return "https://www.camara.leg.br/deputados/" + strconv.Itoa(deputyID)
}

// RankingSource exposes the stored ranking as publishable items, highest total first.
type RankingSource struct {
	store ports.RankingStore
}

var _ ports.ItemSource = (*RankingSource)(nil)

// NewRankingSource reads rankings from store on every fetch.
func NewRankingSource(store ports.RankingStore) *RankingSource {
	return &RankingSource{store: store}
}

// Name identifies the source in logs.
func (s *RankingSource) Name() string { return "ranking" }

// Fetch returns no items until the ranking job has produced a ranking.
func (s *RankingSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	ranking, err := s.store.LoadRanking(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ranking: %w", err)
	}

	items := make([]domain.Item, 0, len(ranking.Deputies))
	for i := range ranking.Deputies {
		summary := ranking.Deputies[i]
		link := ProfileURL(summary.Deputy.ID)
		items = append(items, domain.Item{
			ID:          link,
			Title:       summary.Deputy.Name,
			Link:        link,
			PublishedAt: ranking.GeneratedAt,
			Expense:     &summary,
		})
	}
	return items, nil
}
