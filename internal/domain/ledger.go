package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEntry records one successfully published item.
type LedgerEntry struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

// UnmarshalJSON accepts both the current shape and the legacy {link, posted_at} one.
func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		PublishedAt string `json:"published_at"`
		Link        string `json:"link"`
		PostedAt    string `json:"posted_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := raw.ID
	if id == "" {
		id = raw.Link
	}
	stamp := raw.PublishedAt
	if stamp == "" {
		stamp = raw.PostedAt
	}
	if id == "" {
		return fmt.Errorf("ledger entry without id")
	}

	at, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return fmt.Errorf("ledger entry %s: parse timestamp: %w", id, err)
	}

	e.ID = id
	e.PublishedAt = at.UTC()
	return nil
}

// Ledger is the durable set of previously published identifiers.
type Ledger struct {
	Entries []LedgerEntry
}

// Len reports the number of entries.
func (l Ledger) Len() int {
	return len(l.Entries)
}

// Contains reports whether id has been published.
func (l Ledger) Contains(id string) bool {
	for _, e := range l.Entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Prune keeps entries published at or after now-retention.
func (l Ledger) Prune(now time.Time, retention time.Duration) Ledger {
	cutoff := now.Add(-retention)
	kept := make([]LedgerEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if !e.PublishedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	return Ledger{Entries: kept}
}

// Novel returns candidates whose ID is absent from the ledger, in input order.
func (l Ledger) Novel(candidates []Item) []Item {
	seen := make(map[string]struct{}, len(l.Entries))
	for _, e := range l.Entries {
		seen[e.ID] = struct{}{}
	}

	novel := make([]Item, 0, len(candidates))
	for _, item := range candidates {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		novel = append(novel, item)
	}
	return novel
}

// Record returns a copy of the ledger with id marked as published at the given time.
// An existing entry for id is replaced.
func (l Ledger) Record(id string, at time.Time) Ledger {
	entries := make([]LedgerEntry, 0, len(l.Entries)+1)
	for _, e := range l.Entries {
		if e.ID != id {
			entries = append(entries, e)
		}
	}
	entries = append(entries, LedgerEntry{ID: id, PublishedAt: at.UTC()})
	return Ledger{Entries: entries}
}
