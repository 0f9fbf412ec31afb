package httpfetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultUserAgent identifies the bot to upstream servers.
	DefaultUserAgent = "Sentinela/1.0"
	// BrowserUserAgent is sent to sites that reject non-browser clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 8 << 20
)

// Fetcher performs bounded GET requests with a fixed per-call timeout.
type Fetcher struct {
	secure   *http.Client
	insecure *http.Client
}

// Options tune a single request.
type Options struct {
	UserAgent          string
	Accept             string
	InsecureSkipVerify bool
}

// New builds a Fetcher; client may be nil, in which case one with timeout is created.
func New(client *http.Client, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	insecure := &http.Client{Timeout: client.Timeout, Transport: transport}
	if insecure.Timeout == 0 {
		insecure.Timeout = timeout
	}

	return &Fetcher{secure: client, insecure: insecure}
}

// Get returns the response body of a 200 OK answer.
func (f *Fetcher) Get(ctx context.Context, url string, opts Options) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	}

	client := f.secure
	if opts.InsecureSkipVerify {
		client = f.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
