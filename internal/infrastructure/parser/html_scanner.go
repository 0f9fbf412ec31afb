package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"Sentinela/internal/domain"
	"Sentinela/internal/infrastructure/httpfetch"
	"Sentinela/internal/scanner"
)

// HTMLScanner extracts news entries from listing pages that publish no feed.
//
// Options:
//
//	itemSelector     (required) selects one node per entry
//	linkSelector     anchor inside the entry, defaults to "a[href]"
//	titleSelector    defaults to the anchor text
//	summarySelector  optional teaser paragraph
//	limit            max entries
//	userAgent, insecureSkipVerify as for RSS sources
type HTMLScanner struct {
	fetcher *httpfetch.Fetcher
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires the shared fetcher.
func NewHTMLScanner(fetcher *httpfetch.Fetcher) *HTMLScanner {
	if fetcher == nil {
		fetcher = httpfetch.New(nil, 0)
	}
	return &HTMLScanner{fetcher: fetcher}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan fetches the listing page and returns its entries in document order.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	itemSelector := req.Option("itemSelector", "")
	if itemSelector == "" {
		return nil, fmt.Errorf("site %s: itemSelector option is required", req.SiteName)
	}

	base, err := url.Parse(req.URL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("site %s: invalid url %q", req.SiteName, req.URL)
	}

	ua := req.Option("userAgent", "")
	if strings.EqualFold(ua, "browser") {
		ua = httpfetch.BrowserUserAgent
	}
	insecure, _ := strconv.ParseBool(req.Option("insecureSkipVerify", "false"))

	body, err := h.fetcher.Get(ctx, req.URL, httpfetch.Options{UserAgent: ua, InsecureSkipVerify: insecure})
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	limit, _ := strconv.Atoi(req.Option("limit", "0"))
	return extractItems(doc, base, req, itemSelector, limit), nil
}

func extractItems(doc *goquery.Document, base *url.URL, req scanner.Request, itemSelector string, limit int) []domain.Item {
	var (
		collected []domain.Item
		seen      = map[string]struct{}{}
	)

	doc.Find(itemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		item, ok := parseEntry(sel, base, req)
		if !ok {
			return true
		}
		if _, dup := seen[item.ID]; dup {
			return true
		}
		seen[item.ID] = struct{}{}
		collected = append(collected, item)
		return limit <= 0 || len(collected) < limit
	})

	return collected
}

func parseEntry(sel *goquery.Selection, base *url.URL, req scanner.Request) (domain.Item, bool) {
	anchor := sel.Find(req.Option("linkSelector", "a[href]")).First()
	if goquery.NodeName(sel) == "a" && anchor.Length() == 0 {
		anchor = sel
	}

	href, exists := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if !exists || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return domain.Item{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return domain.Item{}, false
	}
	link := base.ResolveReference(ref).String()

	title := collapse(anchor.Text())
	if ts := req.Option("titleSelector", ""); ts != "" {
		title = collapse(sel.Find(ts).First().Text())
	}
	if title == "" {
		return domain.Item{}, false
	}

	var summary string
	if ss := req.Option("summarySelector", ""); ss != "" {
		summary = collapse(sel.Find(ss).First().Text())
	}

	return domain.Item{
		ID:     link,
		Title:  title,
		Body:   summary,
		Link:   link,
		Source: req.SiteName,
	}, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
