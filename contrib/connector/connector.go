// Package connector holds the HTTP plumbing shared by the external knowledge
// connectors under contrib/connector.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// UserAgent identifies enrichrag to public APIs that ask callers to do so.
const UserAgent = "enrichrag/1.0 (https://github.com/sweetpotato0/enrichrag)"

const maxBodyBytes = 8 << 20

// NewHTTPClient returns a client whose requests are traced.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Get fetches endpoint with params (a url.Values or a struct tagged for
// go-querystring). Network failures, 429 and 5xx are wrapped with
// errors.ErrTransient; other non-2xx statuses are permanent.
func Get(ctx context.Context, client *http.Client, endpoint string, params any) ([]byte, error) {
	target, err := buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", errorskg.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		statusErr := &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %w", errorskg.ErrTransient, statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %w", errorskg.ErrTransient, err)
	}
	return body, nil
}

// GetJSON fetches endpoint and decodes the JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, endpoint string, params, out any) error {
	body, err := Get(ctx, client, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func buildURL(endpoint string, params any) (string, error) {
	var values url.Values
	switch p := params.(type) {
	case nil:
	case url.Values:
		values = p
	default:
		v, err := query.Values(p)
		if err != nil {
			return "", fmt.Errorf("encode query: %w", err)
		}
		values = v
	}
	if len(values) == 0 {
		return endpoint, nil
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + values.Encode(), nil
}

// Authors joins up to three names and appends "et al." when more exist.
func Authors(names []string) string {
	clean := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	if len(clean) <= 3 {
		return strings.Join(clean, ", ")
	}
	return strings.Join(clean[:3], ", ") + " et al."
}

// Compose renders the text committed for a paper: title, authors, body.
func Compose(title, authors, body string) string {
	var sb strings.Builder
	sb.WriteString(title)
	if authors != "" {
		sb.WriteString("\n\nAuthors: ")
		sb.WriteString(authors)
	}
	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}
	return sb.String()
}

// CollapseSpace joins whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
