package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/enrichrag/contrib/connector"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
)

const defaultEndpoint = "https://export.arxiv.org/api/query"

// Client queries the arXiv Atom API.
type Client struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises the arXiv connector.
type Option func(*Client)

// WithEndpoint overrides the query endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithMaxResults caps the papers returned per search.
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

// New creates an arXiv connector.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		maxResults: 3,
		httpClient: connector.NewHTTPClient(30 * time.Second),
		logger:     logging.WithComponent("connector.arxiv"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ enrich.Connector = (*Client)(nil)

func (c *Client) Name() string  { return enrich.SourceArxiv }
func (c *Client) Label() string { return "arXiv" }
func (c *Client) Description() string {
	return "Academic papers and research"
}

type queryParams struct {
	SearchQuery string `url:"search_query"`
	Start       int    `url:"start"`
	MaxResults  int    `url:"max_results"`
	SortBy      string `url:"sortBy"`
	SortOrder   string `url:"sortOrder"`
}

type feed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []entry  `xml:"http://www.w3.org/2005/Atom entry"`
}

type entry struct {
	ID      string   `xml:"http://www.w3.org/2005/Atom id"`
	Title   string   `xml:"http://www.w3.org/2005/Atom title"`
	Summary string   `xml:"http://www.w3.org/2005/Atom summary"`
	Authors []author `xml:"http://www.w3.org/2005/Atom author"`
}

type author struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

// Search returns the most relevant papers. Each result's content is the
// title, up to three authors and the abstract.
func (c *Client) Search(ctx context.Context, query string) ([]enrich.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errorskg.ErrNoResults
	}

	body, err := connector.Get(ctx, c.httpClient, c.endpoint, queryParams{
		SearchQuery: "all:" + query,
		MaxResults:  c.maxResults,
		SortBy:      "relevance",
		SortOrder:   "descending",
	})
	if err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}

	var parsed feed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("arxiv decode feed: %w", err)
	}

	results := make([]enrich.Result, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		if len(results) == c.maxResults {
			break
		}
		title := connector.CollapseSpace(e.Title)
		summary := connector.CollapseSpace(e.Summary)
		if title == "" || summary == "" {
			continue
		}
		names := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			names = append(names, a.Name)
		}
		authors := connector.Authors(names)
		results = append(results, enrich.Result{
			Source:   enrich.SourceArxiv,
			Title:    title,
			URL:      strings.TrimSpace(e.ID),
			Content:  connector.Compose(title, authors, summary),
			Metadata: map[string]any{"authors": authors},
		})
		c.logger.Info("fetched arxiv paper", "title", title)
	}
	if len(results) == 0 {
		return nil, errorskg.ErrNoResults
	}
	return results, nil
}
