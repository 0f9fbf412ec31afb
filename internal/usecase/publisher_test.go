package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"Sentinela/internal/domain"
)

func TestPublishChainsReplies(t *testing.T) {
	t.Parallel()

	endpoint := &scriptedEndpoint{}
	pub := NewSequentialPublisher(endpoint, nil)

	outcome := pub.Publish(context.Background(), []string{"one", "two", "three"})

	if outcome.Kind != domain.OutcomeSucceeded {
		t.Fatalf("expected success, got %s (%v)", outcome.Kind, outcome.Err)
	}
	if outcome.LastID != "tweet-3" || outcome.Posted != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	wantParents := []string{"", "tweet-1", "tweet-2"}
	for k, call := range endpoint.calls {
		if call.parent != wantParents[k] {
			t.Fatalf("part %d submitted with parent %q, want %q", k, call.parent, wantParents[k])
		}
	}
}

func TestPublishDuplicateTerminatesThread(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("x api: 403 forbidden: %w", domain.ErrDuplicateContent)
	endpoint := &scriptedEndpoint{errsAt: map[int]error{1: dup}}
	pub := NewSequentialPublisher(endpoint, nil)

	outcome := pub.Publish(context.Background(), []string{"one", "two", "three"})

	if outcome.Kind != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", outcome.Kind)
	}
	if !outcome.Commits() {
		t.Fatalf("duplicate outcome must license a commit")
	}
	if len(endpoint.calls) != 2 {
		t.Fatalf("expected part 3 to be skipped, got %d submissions", len(endpoint.calls))
	}
}

func TestPublishDuplicateOnFirstPart(t *testing.T) {
	t.Parallel()

	endpoint := &scriptedEndpoint{errsAt: map[int]error{0: domain.ErrDuplicateContent}}
	outcome := NewSequentialPublisher(endpoint, nil).Publish(context.Background(), []string{"one", "two"})

	if outcome.Kind != domain.OutcomeDuplicate || outcome.Posted != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestPublishFailureStopsThread(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	endpoint := &scriptedEndpoint{errsAt: map[int]error{0: boom}}
	outcome := NewSequentialPublisher(endpoint, nil).Publish(context.Background(), []string{"one", "two", "three"})

	if outcome.Kind != domain.OutcomeFailed {
		t.Fatalf("expected failure, got %s", outcome.Kind)
	}
	if !errors.Is(outcome.Err, boom) {
		t.Fatalf("failure reason lost: %v", outcome.Err)
	}
	if len(endpoint.calls) != 1 {
		t.Fatalf("expected a single submission, got %d", len(endpoint.calls))
	}
}

func TestPublishEmptyThreadFails(t *testing.T) {
	t.Parallel()

	endpoint := &scriptedEndpoint{}
	outcome := NewSequentialPublisher(endpoint, nil).Publish(context.Background(), nil)

	if outcome.Kind != domain.OutcomeFailed || !errors.Is(outcome.Err, domain.ErrEmptyThread) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(endpoint.calls) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}
