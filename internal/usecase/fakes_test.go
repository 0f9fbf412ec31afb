package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

type submission struct {
	text   string
	parent string
}

// scriptedEndpoint returns ids "<n>" for each submission and the scripted error at
// the configured call index.
type scriptedEndpoint struct {
	mu     sync.Mutex
	calls  []submission
	errsAt map[int]error
	seq    int
}

func (e *scriptedEndpoint) Submit(_ context.Context, text, parentID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := len(e.calls)
	e.calls = append(e.calls, submission{text: text, parent: parentID})
	if err, ok := e.errsAt[idx]; ok {
		return "", err
	}
	e.seq++
	return fmt.Sprintf("tweet-%d", e.seq), nil
}

type memoryLedger struct {
	ledger  domain.Ledger
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryLedger) Load(context.Context) (domain.Ledger, error) {
	if m.loadErr != nil {
		return domain.Ledger{}, m.loadErr
	}
	return domain.Ledger{Entries: append([]domain.LedgerEntry(nil), m.ledger.Entries...)}, nil
}

func (m *memoryLedger) Save(_ context.Context, l domain.Ledger) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.ledger = l
	return nil
}

type staticSource struct {
	name  string
	items []domain.Item
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Fetch(context.Context) ([]domain.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Item(nil), s.items...), nil
}

type threePartFormatter struct{}

func (threePartFormatter) Format(item domain.Item) ([]string, error) {
	if item.ID == "" {
		return nil, errors.New("missing id")
	}
	return []string{"headline " + item.ID, "summary " + item.ID, "link " + item.ID}, nil
}

type captureRecorder struct {
	pipeline string
	summary  ports.RunSummary
}

func (c *captureRecorder) RecordRun(_ context.Context, pipeline string, s ports.RunSummary) error {
	c.pipeline = pipeline
	c.summary = s
	return nil
}
