package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sweetpotato0/enrichrag/contrib/connector"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

const defaultBaseURL = "https://en.wikipedia.org"

// Client searches Wikipedia and returns page summaries.
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises the Wikipedia connector.
type Option func(*Client)

// WithBaseURL points the connector at another MediaWiki host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithMaxResults caps how many pages are summarised per search.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Wikipedia connector.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		maxResults: 2,
		httpClient: connector.NewHTTPClient(30 * time.Second),
		logger:     logging.WithComponent("connector.wikipedia"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ enrich.Connector = (*Client)(nil)

func (c *Client) Name() string  { return enrich.SourceWikipedia }
func (c *Client) Label() string { return "Wikipedia" }
func (c *Client) Description() string {
	return "General knowledge encyclopedia"
}

type searchParams struct {
	Query string `url:"q"`
	Limit int    `url:"limit"`
}

type searchResponse struct {
	Pages []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
	} `json:"pages"`
}

type summaryResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Search finds matching pages and returns the summary of each. Disambiguation
// pages and empty summaries are skipped.
func (c *Client) Search(ctx context.Context, query string) ([]enrich.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errorskg.ErrNoResults
	}

	var found searchResponse
	err := connector.GetJSON(ctx, c.httpClient, c.baseURL+"/w/rest.php/v1/search/page",
		searchParams{Query: query, Limit: c.maxResults}, &found)
	if err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	if len(found.Pages) == 0 {
		return nil, errorskg.ErrNoResults
	}

	results := make([]enrich.Result, 0, len(found.Pages))
	var lastErr error
	for _, page := range found.Pages {
		if len(results) == c.maxResults {
			break
		}
		key := page.Key
		if key == "" {
			key = strings.ReplaceAll(page.Title, " ", "_")
		}
		summary, err := c.summary(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("wikipedia summary failed", "page", page.Title, "error", err)
			lastErr = err
			continue
		}
		if summary.Type == "disambiguation" || strings.TrimSpace(summary.Extract) == "" {
			continue
		}
		title := summary.Title
		if title == "" {
			title = page.Title
		}
		link := summary.ContentURLs.Desktop.Page
		if link == "" {
			link = c.baseURL + "/wiki/" + url.PathEscape(key)
		}
		results = append(results, enrich.Result{
			Source:  enrich.SourceWikipedia,
			Title:   title,
			URL:     link,
			Content: strings.TrimSpace(summary.Extract),
		})
		c.logger.Info("fetched wikipedia page", "title", title)
	}

	if len(results) == 0 {
		if lastErr != nil && !errors.Is(lastErr, errorskg.ErrNoResults) {
			return nil, fmt.Errorf("wikipedia summary: %w", lastErr)
		}
		return nil, errorskg.ErrNoResults
	}
	return results, nil
}

func (c *Client) summary(ctx context.Context, key string) (summaryResponse, error) {
	var out summaryResponse
	err := connector.GetJSON(ctx, c.httpClient, c.baseURL+"/api/rest_v1/page/summary/"+url.PathEscape(key), nil, &out)
	return out, err
}
