package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

func TestAuthors(t *testing.T) {
	cases := map[string][]string{
		"":                     nil,
		"A":                    {"A", " "},
		"A, B, C":              {"A", "B", "C"},
		"A, B, C et al.":       {"A", "B", "C", "D"},
		"Ann, Bob, Cat et al.": {" Ann ", "Bob", "Cat", "Dan", "Eve"},
	}
	for want, names := range cases {
		if got := Authors(names); got != want {
			t.Errorf("Authors(%v) = %q, want %q", names, got, want)
		}
	}
}

func TestGetClassifiesStatus(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("missing user agent")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	client := NewHTTPClient(0)

	body, err := Get(context.Background(), client, srv.URL, struct {
		Q string `url:"q"`
	}{Q: "x"})
	if err != nil || string(body) != "ok" {
		t.Fatalf("Get = %q, %v", body, err)
	}

	status = http.StatusInternalServerError
	if _, err := Get(context.Background(), client, srv.URL, nil); !errors.Is(err, errorskg.ErrTransient) {
		t.Fatalf("expected 500 to be transient, got %v", err)
	}

	status = http.StatusNotFound
	_, err = Get(context.Background(), client, srv.URL, nil)
	var statusErr *StatusError
	if errors.Is(err, errorskg.ErrTransient) || !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected permanent 404, got %v", err)
	}
}

func TestGetNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	if _, err := Get(context.Background(), NewHTTPClient(0), srv.URL, nil); !errors.Is(err, errorskg.ErrTransient) {
		t.Fatalf("expected transient network failure, got %v", err)
	}
}
