package domain

import "fmt"

// OutcomeKind enumerates the terminal states of a thread publication.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeDuplicate
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// PublishOutcome is the result of publishing one item's full thread.
type PublishOutcome struct {
	Kind OutcomeKind
	// LastID is the identifier of the final part; set only on success.
	LastID string
	// Posted counts parts accepted by the platform before the terminal state.
	Posted int
	// Err carries the failure reason for OutcomeFailed.
	Err error
}

// Succeeded builds a success outcome.
func Succeeded(lastID string, posted int) PublishOutcome {
	return PublishOutcome{Kind: OutcomeSucceeded, LastID: lastID, Posted: posted}
}

// DuplicateDetected builds a duplicate-terminated outcome.
func DuplicateDetected(posted int) PublishOutcome {
	return PublishOutcome{Kind: OutcomeDuplicate, Posted: posted}
}

// Failed builds a failure outcome.
func Failed(posted int, err error) PublishOutcome {
	return PublishOutcome{Kind: OutcomeFailed, Posted: posted, Err: err}
}

// Commits reports whether the outcome licenses a ledger update.
func (o PublishOutcome) Commits() bool {
	return o.Kind == OutcomeSucceeded || o.Kind == OutcomeDuplicate
}
