package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com">Sponsored</a>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpto&amp;rut=abc">Paid time   off explained</a></h2>
  <a class="result__snippet">Most employers offer <b>15 days</b> of PTO.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://example.org/leave">Leave policies</a></h2>
  <a class="result__snippet">Leave policies vary by country.</a>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "vacation days" {
			t.Errorf("unexpected q %q", r.URL.Query().Get("q"))
		}
		io.WriteString(w, resultsPage)
	}))
	defer srv.Close()

	results, err := New(WithEndpoint(srv.URL), WithMaxResults(5)).Search(context.Background(), "vacation days")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected ads to be skipped, got %d results", len(results))
	}
	if results[0].Title != "Paid time off explained" || results[0].URL != "https://example.com/pto" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[0].Content != "Most employers offer 15 days of PTO." {
		t.Fatalf("unexpected snippet %q", results[0].Content)
	}
	if results[1].URL != "https://example.org/leave" {
		t.Fatalf("unexpected second url %q", results[1].URL)
	}
}

func TestSearchRespectsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, resultsPage)
	}))
	defer srv.Close()

	results, err := New(WithEndpoint(srv.URL), WithMaxResults(1)).Search(context.Background(), "q")
	if err != nil || len(results) != 1 {
		t.Fatalf("expected 1 result, got %d (%v)", len(results), err)
	}
}

func TestSearchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="no-results">No results.</div></body></html>`)
	}))
	defer srv.Close()

	if _, err := New(WithEndpoint(srv.URL)).Search(context.Background(), "q"); !errors.Is(err, errorskg.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}
