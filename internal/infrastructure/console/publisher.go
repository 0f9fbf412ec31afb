package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"Sentinela/internal/ports"
)

// Publisher writes thread parts to w instead of a platform. Ids are sequential.
type Publisher struct {
	mu   sync.Mutex
	w    io.Writer
	next int
}

var _ ports.PublishEndpoint = (*Publisher)(nil)

func NewPublisher(w io.Writer) *Publisher {
	return &Publisher{w: w}
}

// Submit prints the part with its reply target.
func (p *Publisher) Submit(ctx context.Context, text, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	id := "dry-" + strconv.Itoa(p.next)
	header := "--- " + id
	if parentID != "" {
		header += " (reply to " + parentID + ")"
	}
	if _, err := fmt.Fprintf(p.w, "%s\n%s\n\n", header, text); err != nil {
		return "", fmt.Errorf("write part: %w", err)
	}
	return id, nil
}
