package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// RankingFile persists the expense ranking as a standalone JSON document.
type RankingFile struct {
	path string
}

var _ ports.RankingStore = (*RankingFile)(nil)

// NewRankingFile binds the ranking document path.
func NewRankingFile(path string) *RankingFile {
	return &RankingFile{path: path}
}

// LoadRanking returns an empty ranking when the file does not exist yet.
func (r *RankingFile) LoadRanking(ctx context.Context) (domain.Ranking, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Ranking{}, nil
	}
	if err != nil {
		return domain.Ranking{}, fmt.Errorf("read ranking %s: %w", r.path, err)
	}

	var ranking domain.Ranking
	if err := json.Unmarshal(data, &ranking); err != nil {
		return domain.Ranking{}, fmt.Errorf("decode ranking %s: %w: %w", r.path, domain.ErrCorruptState, err)
	}
	return ranking, nil
}

// SaveRanking replaces the ranking document atomically.
func (r *RankingFile) SaveRanking(ctx context.Context, ranking domain.Ranking) error {
	return writeJSONAtomic(r.path, ranking)
}
