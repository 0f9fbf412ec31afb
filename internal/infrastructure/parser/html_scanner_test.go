package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Sentinela/internal/config"
	"Sentinela/internal/domain"
	"Sentinela/internal/infrastructure/httpfetch"
	"Sentinela/internal/scanner"
)

const listingPage = `
<html><body>
  <div class="noticias">
    <article class="card">
      <h3 class="titulo"><a href="/noticias/2025/03/governo-anuncia">Governo anuncia   novo programa</a></h3>
      <p class="resumo">Medida beneficia   estados do Nordeste.</p>
    </article>
    <article class="card">
      <h3 class="titulo"><a href="https://agenciabrasil.ebc.com.br/politica/noticia/2025-03/stf">STF julga recurso</a></h3>
    </article>
    <article class="card">
      <h3 class="titulo"><a href="/noticias/2025/03/governo-anuncia">Governo anuncia novo programa</a></h3>
    </article>
    <article class="card"><span>sem link</span></article>
  </div>
</body></html>`

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTMLScannerScan(t *testing.T) {
	t.Parallel()

	server := newListingServer(t)
	sc := NewHTMLScanner(httpfetch.New(server.Client(), 0))

	items, err := sc.Scan(context.Background(), scanner.Request{
		SiteName: "agenciabrasil",
		URL:      server.URL + "/ultimas",
		Options: map[string]string{
			"itemSelector":    "article.card",
			"linkSelector":    "h3.titulo a",
			"summarySelector": "p.resumo",
		},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 unique items, got %d: %+v", len(items), items)
	}
	if items[0].ID != server.URL+"/noticias/2025/03/governo-anuncia" {
		t.Fatalf("relative link not resolved: %s", items[0].ID)
	}
	if items[0].Title != "Governo anuncia novo programa" {
		t.Fatalf("unexpected title: %q", items[0].Title)
	}
	if items[0].Body != "Medida beneficia estados do Nordeste." {
		t.Fatalf("unexpected summary: %q", items[0].Body)
	}
	if !strings.HasPrefix(items[1].ID, "https://agenciabrasil.ebc.com.br/") {
		t.Fatalf("absolute link altered: %s", items[1].ID)
	}
}

func TestHTMLScannerRequiresItemSelector(t *testing.T) {
	t.Parallel()

	sc := NewHTMLScanner(nil)
	if _, err := sc.Scan(context.Background(), scanner.Request{SiteName: "x", URL: "https://example.org"}); err == nil {
		t.Fatalf("expected error without itemSelector")
	}
}

type failingScanner struct{}

func (failingScanner) Name() string { return "broken" }

func (failingScanner) Scan(context.Context, scanner.Request) ([]domain.Item, error) {
	return nil, errors.New("connection reset")
}

func TestBuildSourcesKeepsOrderAndSurfacesErrors(t *testing.T) {
	t.Parallel()

	server := newListingServer(t)
	reg := scanner.NewRegistry()
	reg.Register(NewHTMLScanner(httpfetch.New(server.Client(), 0)))
	reg.Register(failingScanner{})

	sites := []config.SiteConfig{
		{Name: "broken-site", Scanner: "broken", URL: "https://example.org"},
		{Name: "listing", Scanner: "html", URL: server.URL, Options: map[string]string{"itemSelector": "article.card"}},
		{Name: "off", Scanner: "html", URL: server.URL, Disabled: true},
	}

	sources, err := BuildSources(reg, sites, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sources) != 2 || sources[0].Name() != "broken-site" || sources[1].Name() != "listing" {
		t.Fatalf("unexpected sources: %d", len(sources))
	}

	if _, err := sources[0].Fetch(context.Background()); err == nil {
		t.Fatalf("scanner error must reach the caller")
	}
	items, err := sources[1].Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if len(items) == 0 || items[0].Source != "listing" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestBuildSourcesUnknownScanner(t *testing.T) {
	t.Parallel()

	_, err := BuildSources(scanner.NewRegistry(), []config.SiteConfig{{Name: "x", Scanner: "atom"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown scanner")
	}
}
