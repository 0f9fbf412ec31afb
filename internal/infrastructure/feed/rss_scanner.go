package feed

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"Sentinela/internal/domain"
	"Sentinela/internal/infrastructure/httpfetch"
	"Sentinela/internal/scanner"
)

// RSSScanner reads RSS or Atom feeds.
//
// Options: userAgent ("browser" selects a desktop browser string),
// insecureSkipVerify ("true" disables TLS verification), limit (max items).
type RSSScanner struct {
	fetcher *httpfetch.Fetcher
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires the shared fetcher.
func NewRSSScanner(fetcher *httpfetch.Fetcher) *RSSScanner {
	if fetcher == nil {
		fetcher = httpfetch.New(nil, 0)
	}
	return &RSSScanner{fetcher: fetcher}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads and parses the feed; items keep feed order.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no feed url provided for site %s", req.SiteName)
	}

	body, err := s.fetcher.Get(ctx, req.URL, requestOptions(req))
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("malformed feed %s: %w", req.URL, err)
	}

	limit, _ := strconv.Atoi(req.Option("limit", "0"))

	items := make([]domain.Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item, ok := toItem(entry, req.SiteName)
		if !ok {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func toItem(entry *gofeed.Item, site string) (domain.Item, bool) {
	if entry == nil {
		return domain.Item{}, false
	}

	link := strings.TrimSpace(entry.Link)
	id := link
	if id == "" {
		id = strings.TrimSpace(entry.GUID)
	}
	if id == "" {
		return domain.Item{}, false
	}

	body := entry.Description
	if strings.TrimSpace(body) == "" {
		body = entry.Content
	}

	var published time.Time
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	}

	return domain.Item{
		ID:          id,
		Title:       strings.TrimSpace(entry.Title),
		Body:        strings.TrimSpace(body),
		Link:        link,
		Source:      site,
		PublishedAt: published,
	}, true
}

func requestOptions(req scanner.Request) httpfetch.Options {
	ua := req.Option("userAgent", "")
	if strings.EqualFold(ua, "browser") {
		ua = httpfetch.BrowserUserAgent
	}
	insecure, _ := strconv.ParseBool(req.Option("insecureSkipVerify", "false"))
	return httpfetch.Options{
		UserAgent:          ua,
		Accept:             "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
		InsecureSkipVerify: insecure,
	}
}
