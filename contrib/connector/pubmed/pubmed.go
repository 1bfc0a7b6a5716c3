package pubmed

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
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL   = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	articleURLFormat = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	noAbstract       = "No abstract available"
)

// Client queries NCBI E-utilities: esearch for ids, esummary for titles and
// authors, efetch for abstracts.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises the PubMed connector.
type Option func(*Client)

// WithBaseURL overrides the E-utilities base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAPIKey sends an NCBI API key, which raises the request quota.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithMaxResults caps the articles returned per search.
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

// New creates a PubMed connector.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		maxResults: 3,
		httpClient: connector.NewHTTPClient(30 * time.Second),
		logger:     logging.WithComponent("connector.pubmed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ enrich.Connector = (*Client)(nil)

func (c *Client) Name() string  { return enrich.SourcePubMed }
func (c *Client) Label() string { return "PubMed" }
func (c *Client) Description() string {
	return "Medical and health research"
}

type searchParams struct {
	DB      string `url:"db"`
	Term    string `url:"term"`
	RetMax  int    `url:"retmax"`
	RetMode string `url:"retmode"`
	Sort    string `url:"sort"`
	APIKey  string `url:"api_key,omitempty"`
}

type idParams struct {
	DB      string `url:"db"`
	ID      string `url:"id"`
	RetMode string `url:"retmode"`
	APIKey  string `url:"api_key,omitempty"`
}

type searchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type articleSet struct {
	Articles []struct {
		PMID      string   `xml:"MedlineCitation>PMID"`
		Abstracts []string `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	} `xml:"PubmedArticle"`
}

// Search returns the most relevant articles. Abstracts that cannot be
// fetched fall back to the journal name.
func (c *Client) Search(ctx context.Context, query string) ([]enrich.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errorskg.ErrNoResults
	}

	var found searchResponse
	err := connector.GetJSON(ctx, c.httpClient, c.baseURL+"/esearch.fcgi", searchParams{
		DB: "pubmed", Term: query, RetMax: c.maxResults, RetMode: "json", Sort: "relevance", APIKey: c.apiKey,
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	ids := found.Result.IDList
	if len(ids) > c.maxResults {
		ids = ids[:c.maxResults]
	}
	if len(ids) == 0 {
		return nil, errorskg.ErrNoResults
	}
	joined := strings.Join(ids, ",")

	summary, err := connector.Get(ctx, c.httpClient, c.baseURL+"/esummary.fcgi", idParams{
		DB: "pubmed", ID: joined, RetMode: "json", APIKey: c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("pubmed esummary: %w", err)
	}
	abstracts := c.abstracts(ctx, joined)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	results := make([]enrich.Result, 0, len(ids))
	for _, pmid := range ids {
		article := gjson.GetBytes(summary, "result."+pmid)
		if !article.Exists() {
			continue
		}
		title := connector.CollapseSpace(article.Get("title").String())
		if title == "" {
			title = "Unknown"
		}
		var names []string
		for _, a := range article.Get("authors.#.name").Array() {
			names = append(names, a.String())
		}
		authors := connector.Authors(names)

		abstract := abstracts[pmid]
		if abstract == "" {
			abstract = article.Get("source").String()
		}
		if abstract == "" {
			abstract = noAbstract
		}
		results = append(results, enrich.Result{
			Source:   enrich.SourcePubMed,
			Title:    title,
			URL:      fmt.Sprintf(articleURLFormat, pmid),
			Content:  connector.Compose(title, authors, abstract),
			Metadata: map[string]any{"authors": authors, "pmid": pmid},
		})
		c.logger.Info("fetched pubmed article", "title", title, "pmid", pmid)
	}
	if len(results) == 0 {
		return nil, errorskg.ErrNoResults
	}
	return results, nil
}

// abstracts fetches abstracts for every id in one efetch call. Failures are
// logged and yield an empty map.
func (c *Client) abstracts(ctx context.Context, ids string) map[string]string {
	out := make(map[string]string)
	body, err := connector.Get(ctx, c.httpClient, c.baseURL+"/efetch.fcgi", idParams{
		DB: "pubmed", ID: ids, RetMode: "xml", APIKey: c.apiKey,
	})
	if err != nil {
		c.logger.Warn("pubmed efetch failed, using summaries only", "error", err)
		return out
	}
	var set articleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		c.logger.Warn("pubmed efetch unparseable", "error", err)
		return out
	}
	for _, a := range set.Articles {
		parts := make([]string, 0, len(a.Abstracts))
		for _, p := range a.Abstracts {
			if p = connector.CollapseSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			out[strings.TrimSpace(a.PMID)] = strings.Join(parts, "\n\n")
		}
	}
	return out
}
