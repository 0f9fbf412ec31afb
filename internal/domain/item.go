package domain

import "time"

// Item is a unit of content eligible for publication.
type Item struct {
	ID          string
	Title       string
	Body        string
	Link        string
	Source      string
	PublishedAt time.Time

	// Expense is set only for items produced from the expense ranking.
	Expense *ExpenseSummary
}

// URL returns the link shown to readers, falling back to the identifier.
func (i Item) URL() string {
	if i.Link != "" {
		return i.Link
	}
	return i.ID
}
