package usecase

import (
	"context"
	"errors"
	"log/slog"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// SequentialPublisher posts message parts in order, chaining each as a reply to the previous one.
type SequentialPublisher struct {
	endpoint ports.PublishEndpoint
	logger   *slog.Logger
}

// NewSequentialPublisher wires the publish endpoint; logger may be nil.
func NewSequentialPublisher(endpoint ports.PublishEndpoint, logger *slog.Logger) *SequentialPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SequentialPublisher{endpoint: endpoint, logger: logger}
}

// Publish submits every part and reports how the thread terminated.
//
// A duplicate rejection at any index ends the thread as OutcomeDuplicate; any
// other error ends it as OutcomeFailed. Parts already posted are left in place.
func (p *SequentialPublisher) Publish(ctx context.Context, parts []string) domain.PublishOutcome {
	if len(parts) == 0 {
		return domain.Failed(0, domain.ErrEmptyThread)
	}

	parent := ""
	for k, text := range parts {
		id, err := p.endpoint.Submit(ctx, text, parent)
		if errors.Is(err, domain.ErrDuplicateContent) {
			p.logger.Warn("duplicate content reported, treating thread as published",
				"part", k+1, "parts", len(parts))
			return domain.DuplicateDetected(k)
		}
		if err != nil {
			p.logger.Error("submit part failed", "part", k+1, "parts", len(parts), "error", err)
			return domain.Failed(k, err)
		}

		p.logger.Debug("part posted", "part", k+1, "parts", len(parts), "id", id, "parent", parent)
		parent = id
	}

	return domain.Succeeded(parent, len(parts))
}
