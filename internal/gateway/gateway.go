// Package gateway is the client for the remote text-analysis service that
// enhances ideas (summary + tags) and answers grounded web searches.
//
// Both calls are strictly best-effort: any transport, authentication or
// malformed-response failure comes back as an error that callers absorb:
// an idea is still saved without its enhancement, a search surfaces an
// empty result. Nothing here is ever fatal to the user-visible action.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxSources caps the source list returned by Search.
const maxSources = 6

// defaultTimeout bounds each round-trip when the caller's context carries
// no earlier deadline.
const defaultTimeout = 20 * time.Second

// Config configures the gateway client.
type Config struct {
	// BaseURL of the enhancement service, e.g. "https://api.example.com/ai".
	// The client POSTs to {BaseURL}/enhance and {BaseURL}/search.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout overrides defaultTimeout when positive.
	Timeout time.Duration
}

// Client talks to the remote enhancement service.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// Enhancement is the AI-derived summary and tag suggestions for an idea.
type Enhancement struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// WebSource is one citation backing a search answer.
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SearchResult is a grounded answer with its citations.
type SearchResult struct {
	Text    string      `json:"text"`
	Sources []WebSource `json:"sources"`
}

// New creates a gateway client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Enhance asks the remote service for a one-sentence summary and up to a
// handful of tags for the given content.
func (c *Client) Enhance(ctx context.Context, content string) (*Enhancement, error) {
	body, err := c.post(ctx, "/enhance", map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	// The model sometimes wraps its JSON in a markdown code fence.
	body = stripCodeFence(body)

	var enh Enhancement
	if err := json.Unmarshal(body, &enh); err != nil {
		return nil, fmt.Errorf("gateway: malformed enhance response: %w", err)
	}
	if enh.Summary == "" && len(enh.Tags) == 0 {
		return nil, fmt.Errorf("gateway: empty enhance response")
	}
	return &enh, nil
}

// Search asks the remote service for a grounded answer to query. Sources
// are deduplicated by URI (first occurrence wins) and capped at 6; entries
// without a URI are dropped.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	body, err := c.post(ctx, "/search", map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	var res SearchResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("gateway: malformed search response: %w", err)
	}

	seen := make(map[string]bool, len(res.Sources))
	sources := make([]WebSource, 0, len(res.Sources))
	for _, s := range res.Sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		if s.Title == "" {
			s.Title = "External Source"
		}
		sources = append(sources, s)
		if len(sources) == maxSources {
			break
		}
	}
	res.Sources = sources

	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gateway: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gateway: reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gateway call failed",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("gateway: %s returned status %d", path, resp.StatusCode)
	}

	return body, nil
}

// stripCodeFence removes a surrounding ```json ... ``` (or plain ```) fence.
func stripCodeFence(body []byte) []byte {
	s := strings.TrimSpace(string(body))
	if !strings.HasPrefix(s, "```") {
		return body
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
