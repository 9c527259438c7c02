package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL       = "https://api.tavily.com"
	maxResponseSizeBytes = 4 << 20
)

var ErrMissingAPIKey = errors.New("tavily: api key is required")

type Config struct {
	APIKey         string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL        string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.tavily.com"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
	Topic          string        `envconfig:"TOPIC" split_words:"true" default:"finance"`
	TimeRange      string        `envconfig:"TIME_RANGE" split_words:"true" default:"month"`
	MaxResults     int           `envconfig:"MAX_RESULTS" split_words:"true" default:"3"`
	Country        string        `envconfig:"COUNTRY" split_words:"true" default:"india"`
	IncludeDomains []string      `envconfig:"INCLUDE_DOMAINS" split_words:"true" default:"financialexpress.com,economictimes.indiatimes.com,livemint.com,thehindu.com,wionews.com"`
	ExcludeDomains []string      `envconfig:"EXCLUDE_DOMAINS" split_words:"true" default:"reddit.com,twitter.com,facebook.com,x.com,instagram.com"`
	MaxRetryTime   time.Duration `envconfig:"MAX_RETRY_TIME" split_words:"true" default:"15s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic,omitempty"`
	TimeRange      string   `json:"time_range,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	Country        string   `json:"country,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type SearchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tavily: http status=%d body=%s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// Client calls the Tavily search REST API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 250 * time.Millisecond
		b.MaxInterval = 4 * time.Second
		b.MaxElapsedTime = cfg.MaxRetryTime
		return b
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// DefaultRequest fills the configured search defaults for query.
func (c *Client) DefaultRequest(query string) SearchRequest {
	return SearchRequest{
		Query:          query,
		Topic:          c.cfg.Topic,
		TimeRange:      c.cfg.TimeRange,
		MaxResults:     c.cfg.MaxResults,
		Country:        c.cfg.Country,
		IncludeDomains: c.cfg.IncludeDomains,
		ExcludeDomains: c.cfg.ExcludeDomains,
	}
}

// Search posts req, retrying transport errors, 429 and 5xx with exponential backoff.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("tavily: query is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	var out *SearchResponse
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		resp, err := c.do(ctx, body)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*SearchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("tavily: build request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.APIKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily: execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("tavily: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var parsed SearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("tavily: decode response: %w", err))
	}
	return &parsed, nil
}
