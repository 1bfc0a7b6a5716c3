package sql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/rating"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTripOrder(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, score := range []int{2, 5, 4} {
		r := rating.Rating{
			ID:        string(rune('a' + i)),
			Query:     "q",
			Answer:    "a",
			Score:     score,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("timestamp not preserved: %v", got[0].Timestamp)
	}
}

func TestServiceOverSQLite(t *testing.T) {
	ctx := context.Background()
	svc := rating.NewService(openMemory(t))
	for _, score := range []int{1, 3, 5} {
		if _, err := svc.Save(ctx, "q", "a", score, ""); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	st, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics error: %v", err)
	}
	if st.Total != 3 || st.Average != 3 {
		t.Fatalf("unexpected statistics %+v", st)
	}
}

func TestRebind(t *testing.T) {
	s := &Store{driver: DriverPostgres}
	if got := s.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	s.driver = DriverSQLite
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"}); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}
