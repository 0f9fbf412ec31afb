package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

var runTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestPipeline(ledger *memoryLedger, endpoint *scriptedEndpoint, sources ...staticSource) *Pipeline {
	deps := PipelineDeps{
		Name:      "news",
		Ledger:    ledger,
		Formatter: threePartFormatter{},
		Endpoint:  endpoint,
		Retention: 72 * time.Hour,
		Now:       func() time.Time { return runTime },
	}
	for _, src := range sources {
		deps.Sources = append(deps.Sources, src)
	}
	return NewPipeline(deps)
}

func TestRunPublishesFirstNovelThenNext(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{}
	endpoint := &scriptedEndpoint{}
	src := staticSource{name: "senado", items: []domain.Item{{ID: "a"}, {ID: "b"}}}
	pipeline := newTestPipeline(ledger, endpoint, src)

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if report.Selected == nil || report.Selected.ID != "a" {
		t.Fatalf("expected a to be selected, got %+v", report.Selected)
	}
	if len(endpoint.calls) != 3 {
		t.Fatalf("expected 3 parts posted, got %d", len(endpoint.calls))
	}
	if ledger.ledger.Len() != 1 || !ledger.ledger.Contains("a") {
		t.Fatalf("ledger should contain exactly a: %+v", ledger.ledger.Entries)
	}
	if !ledger.ledger.Entries[0].PublishedAt.Equal(runTime) {
		t.Fatalf("entry timestamp should be the run time, got %v", ledger.ledger.Entries[0].PublishedAt)
	}

	report, err = pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Selected == nil || report.Selected.ID != "b" {
		t.Fatalf("expected b on second run, got %+v", report.Selected)
	}
}

func TestRunNothingNewIsNoop(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{ledger: domain.Ledger{Entries: []domain.LedgerEntry{{ID: "a", PublishedAt: runTime}}}}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "camara", items: []domain.Item{{ID: "a"}}})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Selected != nil || report.Committed {
		t.Fatalf("expected no-op, got %+v", report)
	}
	if len(endpoint.calls) != 0 || ledger.saves != 0 {
		t.Fatalf("no-op run must not publish or save")
	}
}

func TestRunPrunedItemBecomesEligible(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{ledger: domain.Ledger{Entries: []domain.LedgerEntry{
		{ID: "a", PublishedAt: runTime.Add(-5 * 24 * time.Hour)},
	}}}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "stf", items: []domain.Item{{ID: "a"}}})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Pruned != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", report.Pruned)
	}
	if report.Selected == nil || report.Selected.ID != "a" {
		t.Fatalf("a should be eligible after pruning")
	}
	if ledger.ledger.Len() != 1 || !ledger.ledger.Entries[0].PublishedAt.Equal(runTime) {
		t.Fatalf("ledger should hold the fresh entry only: %+v", ledger.ledger.Entries)
	}
}

func TestRunDuplicateCommitsLedger(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{}
	endpoint := &scriptedEndpoint{errsAt: map[int]error{1: domain.ErrDuplicateContent}}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "tse", items: []domain.Item{{ID: "x"}, {ID: "y"}}})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("duplicate must not fail the run: %v", err)
	}
	if report.Outcome.Kind != domain.OutcomeDuplicate || !report.Committed {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(endpoint.calls) != 2 {
		t.Fatalf("part 3 must not be submitted, got %d calls", len(endpoint.calls))
	}

	next, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("next run: %v", err)
	}
	if next.Selected == nil || next.Selected.ID != "y" {
		t.Fatalf("x must be excluded after a duplicate outcome, got %+v", next.Selected)
	}
}

func TestRunFailureLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	prior := domain.LedgerEntry{ID: "old", PublishedAt: runTime.Add(-time.Hour)}
	ledger := &memoryLedger{ledger: domain.Ledger{Entries: []domain.LedgerEntry{prior}}}
	endpoint := &scriptedEndpoint{errsAt: map[int]error{0: errors.New("401 unauthorized")}}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "senado", items: []domain.Item{{ID: "x"}}})

	report, err := pipeline.Run(context.Background())
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
	if report.Committed || ledger.saves != 0 {
		t.Fatalf("failed run must not save the ledger")
	}
	if ledger.ledger.Len() != 1 || ledger.ledger.Entries[0] != prior {
		t.Fatalf("ledger changed: %+v", ledger.ledger.Entries)
	}

	endpoint.errsAt = nil
	retry, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if retry.Selected == nil || retry.Selected.ID != "x" {
		t.Fatalf("x must remain selectable after a failure")
	}
}

func TestRunSourceFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint,
		staticSource{name: "stf", err: errors.New("tls handshake timeout")},
		staticSource{name: "tse", items: []domain.Item{{ID: "t1"}}},
	)

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Candidates != 1 || report.Selected == nil || report.Selected.ID != "t1" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Selected.Source != "tse" {
		t.Fatalf("source name should be stamped on items, got %q", report.Selected.Source)
	}
}

func TestRunSourceOrderDefinesPriority(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint,
		staticSource{name: "senado", items: []domain.Item{{ID: "s1"}}},
		staticSource{name: "camara", items: []domain.Item{{ID: "c1"}}},
	)

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Selected.ID != "s1" {
		t.Fatalf("first configured source should win, got %s", report.Selected.ID)
	}
}

func TestRunCorruptLedgerIsFatal(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{loadErr: domain.ErrCorruptState}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "senado", items: []domain.Item{{ID: "a"}}})

	_, err := pipeline.Run(context.Background())
	if !errors.Is(err, ErrStateUnavailable) || !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if len(endpoint.calls) != 0 {
		t.Fatalf("nothing may be published when the ledger cannot be read")
	}
}

func TestRunSaveFailureReportsStateError(t *testing.T) {
	t.Parallel()

	ledger := &memoryLedger{saveErr: errors.New("disk full")}
	endpoint := &scriptedEndpoint{}
	pipeline := newTestPipeline(ledger, endpoint, staticSource{name: "senado", items: []domain.Item{{ID: "a"}}})

	report, err := pipeline.Run(context.Background())
	if !errors.Is(err, ErrStateUnavailable) {
		t.Fatalf("expected state error, got %v", err)
	}
	if report.Committed {
		t.Fatalf("report must not claim a commit")
	}
}

func TestRunRecordsSummary(t *testing.T) {
	t.Parallel()

	recorder := &captureRecorder{}
	pipeline := NewPipeline(PipelineDeps{
		Name:      "expenses",
		Sources:   nil,
		Ledger:    &memoryLedger{},
		Formatter: threePartFormatter{},
		Endpoint:  &scriptedEndpoint{},
		Recorder:  recorder,
		Retention: time.Hour,
		Now:       func() time.Time { return runTime },
	})

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if recorder.pipeline != "expenses" || recorder.summary.Outcome != "noop" {
		t.Fatalf("unexpected recorded summary: %s %+v", recorder.pipeline, recorder.summary)
	}
}

func TestRunCommitLogsSavedEntryCount(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	ledger := &memoryLedger{ledger: domain.Ledger{Entries: []domain.LedgerEntry{
		{ID: "old-1", PublishedAt: runTime.Add(-time.Hour)},
		{ID: "old-2", PublishedAt: runTime.Add(-2 * time.Hour)},
	}}}
	pipeline := NewPipeline(PipelineDeps{
		Name:      "news",
		Sources:   []ports.ItemSource{staticSource{name: "senado", items: []domain.Item{{ID: "new"}}}},
		Ledger:    ledger,
		Formatter: threePartFormatter{},
		Endpoint:  &scriptedEndpoint{},
		Retention: 72 * time.Hour,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		Now:       func() time.Time { return runTime },
	})

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ledger.ledger.Len() != 3 {
		t.Fatalf("expected 3 saved entries, got %d", ledger.ledger.Len())
	}
	var committed string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `msg="ledger committed"`) {
			committed = line
		}
	}
	if !strings.Contains(committed, "entries=3") {
		t.Fatalf("commit log should report the saved entry count: %q", committed)
	}
}
