package websearch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sweetpotato0/enrichrag/contrib/connector"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Client scrapes the DuckDuckGo HTML results page. It is the fallback source
// and only returns titles, links and snippets.
type Client struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises the web search connector.
type Option func(*Client)

// WithEndpoint overrides the results page URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithMaxResults caps the results returned per search.
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

// New creates a web search connector.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		maxResults: 3,
		httpClient: connector.NewHTTPClient(30 * time.Second),
		logger:     logging.WithComponent("connector.websearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ enrich.Connector = (*Client)(nil)

func (c *Client) Name() string        { return enrich.SourceWebSearch }
func (c *Client) Label() string       { return "Web Search" }
func (c *Client) Description() string { return "General web search results" }

// Search returns result snippets from the first results page.
func (c *Client) Search(ctx context.Context, query string) ([]enrich.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errorskg.ErrNoResults
	}

	body, err := connector.Get(ctx, c.httpClient, c.endpoint, url.Values{"q": {query}})
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("web search parse: %w", err)
	}

	var results []enrich.Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find("a.result__a").First()
		title := connector.CollapseSpace(link.Text())
		snippet := connector.CollapseSpace(sel.Find(".result__snippet").First().Text())
		href, _ := link.Attr("href")
		if title == "" || snippet == "" {
			return true
		}
		results = append(results, enrich.Result{
			Source:  enrich.SourceWebSearch,
			Title:   title,
			URL:     resolveLink(href),
			Content: snippet,
		})
		return len(results) < c.maxResults
	})

	if len(results) == 0 {
		return nil, errorskg.ErrNoResults
	}
	c.logger.Info("fetched web results", "count", len(results))
	return results, nil
}

// resolveLink unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resolveLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
