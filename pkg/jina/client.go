// Package jina provides a client for the Jina AI reader and search API.
package jina

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/resilience"
)

// Client defines the Jina AI Reader and Search operations.
type Client interface {
	// Read fetches a URL via Jina AI Reader and returns the markdown content.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search performs a web search via Jina AI Search.
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// ReadResponse is the parsed Jina Reader response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the content from Jina.
type ReadData struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the parsed Jina Search response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom reader base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithSearchBaseURL sets a custom search base URL.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) { c.searchBaseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used underneath resty.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryWait sets the initial wait between retried requests.
func WithRetryWait(d time.Duration) Option {
	return func(c *httpClient) { c.retryWait = d }
}

type httpClient struct {
	baseURL       string
	searchBaseURL string
	http          *http.Client
	retryWait     time.Duration
	rest          *resty.Client
}

// NewClient creates a new Jina AI client. Requests that fail with 429 or
// 5xx are retried twice with exponential backoff.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL:       "https://r.jina.ai",
		searchBaseURL: "https://s.jina.ai",
		http:          &http.Client{Timeout: 30 * time.Second},
		retryWait:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rest = resty.NewWithClient(c.http).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(c.retryWait).
		SetRetryMaxWaitTime(8 * c.retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && resilience.IsTransientHTTPStatus(r.StatusCode())
		})
	if apiKey != "" {
		c.rest.SetAuthToken(apiKey)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	var result ReadResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Return-Format", "markdown").
		SetResult(&result).
		Get(c.baseURL + "/" + targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read request failed")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, eris.Wrap(resilience.StatusError("jina", resp.StatusCode(), resp.String()), "jina: read")
	}
	return &result, nil
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	var result SearchResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.searchBaseURL + "/" + url.PathEscape(query))
	if err != nil {
		return nil, eris.Wrap(err, "jina: search request failed")
	}

	// Jina returns 422 when no results are available for the query.
	if resp.StatusCode() == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: http.StatusUnprocessableEntity}, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, eris.Wrap(resilience.StatusError("jina", resp.StatusCode(), resp.String()), "jina: search")
	}
	return &result, nil
}
