package camara

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// DefaultBaseURL is the Câmara dos Deputados open-data API root.
const DefaultBaseURL = "https://dadosabertos.camara.leg.br/api/v2"

const (
	pageSize = 100
	maxPages = 200
)

// Client reads deputies and their expenses, following "next" links and
// sharing one rate limiter across every request.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.DeputyDirectory = (*Client)(nil)

// NewClient limits requests to rps per second; rps <= 0 disables limiting.
func NewClient(baseURL string, client *http.Client, rps float64, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

type envelope[T any] struct {
	Data  []T `json:"dados"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (e envelope[T]) next() string {
	for _, l := range e.Links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

// ListDeputies returns the deputies currently in office ordered by name.
func (c *Client) ListDeputies(ctx context.Context) ([]domain.Deputy, error) {
	q := url.Values{}
	q.Set("ordem", "ASC")
	q.Set("ordenarPor", "nome")
	return collect[domain.Deputy](ctx, c, c.baseURL+"/deputados?"+q.Encode())
}

// DeputyExpenses returns every expense of a deputy for one month.
func (c *Client) DeputyExpenses(ctx context.Context, deputyID, year int, month time.Month) ([]domain.Expense, error) {
	q := url.Values{}
	q.Set("ano", strconv.Itoa(year))
	q.Set("mes", strconv.Itoa(int(month)))
	q.Set("itens", strconv.Itoa(pageSize))
	q.Set("pagina", "1")
	return collect[domain.Expense](ctx, c, fmt.Sprintf("%s/deputados/%d/despesas?%s", c.baseURL, deputyID, q.Encode()))
}

func collect[T any](ctx context.Context, c *Client, pageURL string) ([]T, error) {
	var out []T
	seen := map[string]bool{}
	for page := 0; pageURL != ""; page++ {
		if page == maxPages || seen[pageURL] {
			return nil, fmt.Errorf("pagination did not terminate at %s", pageURL)
		}
		seen[pageURL] = true

		var env envelope[T]
		if err := c.get(ctx, pageURL, &env); err != nil {
			return nil, err
		}
		out = append(out, env.Data...)
		pageURL = env.next()
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, target string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("camara request", "url", target, "status", resp.StatusCode,
		"duration", time.Since(started).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
