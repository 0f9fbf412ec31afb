package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dghubble/oauth1"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// DefaultEndpoint is the v2 create-post endpoint.
const DefaultEndpoint = "https://api.twitter.com/2/tweets"

// duplicateCode is the legacy error code for "Status is a duplicate".
const duplicateCode = 187

// Credentials are OAuth 1.0a user-context keys.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// Client posts messages to X, chaining replies by post id.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.PublishEndpoint = (*Client)(nil)

// NewClient signs requests with creds; base carries timeout and transport and may be nil.
func NewClient(endpoint string, creds Credentials, base *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if base == nil {
		base = http.DefaultClient
	}

	cfg := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)

	signed := cfg.Client(ctx, token)
	signed.Timeout = base.Timeout
	return &Client{endpoint: endpoint, http: signed}
}

type createRequest struct {
	Text  string        `json:"text"`
	Reply *replySetting `json:"reply,omitempty"`
}

type replySetting struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// problem covers both the v2 problem document and the legacy errors array.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Submit creates a post, as a reply when parentID is set, and returns its id.
func (c *Client) Submit(ctx context.Context, text, parentID string) (string, error) {
	payload := createRequest{Text: text}
	if parentID != "" {
		payload.Reply = &replySetting{InReplyToTweetID: parentID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classify(resp.StatusCode, raw)
	}

	var created createResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.Data.ID == "" {
		return "", errors.New("decode response: missing post id")
	}
	return created.Data.ID, nil
}

func classify(status int, raw []byte) error {
	var p problem
	_ = json.Unmarshal(raw, &p)

	if isDuplicate(p, raw) {
		return fmt.Errorf("x api status %d: %w", status, domain.ErrDuplicateContent)
	}

	msg := p.Detail
	if msg == "" && len(p.Errors) > 0 {
		msg = p.Errors[0].Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return fmt.Errorf("x api status %d: %s", status, msg)
}

func isDuplicate(p problem, raw []byte) bool {
	if strings.HasSuffix(strings.ToLower(p.Type), "duplicate") {
		return true
	}
	for _, e := range p.Errors {
		if e.Code == duplicateCode {
			return true
		}
	}
	// Some responses carry no code; the wording is the only signal.
	return strings.Contains(strings.ToLower(string(raw)), "duplicate content")
}
