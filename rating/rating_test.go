package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

func TestSaveValidatesScore(t *testing.T) {
	svc := NewService(nil)
	for _, score := range []int{0, 6, -1} {
		if _, err := svc.Save(context.Background(), "q", "a", score, ""); !errors.Is(err, errorskg.ErrInvalidInput) {
			t.Fatalf("score %d: expected ErrInvalidInput, got %v", score, err)
		}
	}
	id, err := svc.Save(context.Background(), "q", "a", 5, " great ")
	if err != nil || id == "" {
		t.Fatalf("Save = %q, %v", id, err)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(nil, WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	empty, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics error: %v", err)
	}
	if empty.Total != 0 || empty.Average != 0 || len(empty.Distribution) != 5 {
		t.Fatalf("unexpected empty statistics %+v", empty)
	}

	for _, score := range []int{5, 4, 4, 1, 2, 5, 3, 4, 4, 5, 1, 2} {
		if _, err := svc.Save(ctx, "query", "answer", score, ""); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	got, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics error: %v", err)
	}
	if got.Total != 12 || got.Average != 3.33 {
		t.Fatalf("unexpected totals %+v", got)
	}
	want := map[int]int{1: 2, 2: 2, 3: 1, 4: 4, 5: 3}
	for k, v := range want {
		if got.Distribution[k] != v {
			t.Fatalf("distribution[%d] = %d, want %d", k, got.Distribution[k], v)
		}
	}
	if len(got.Recent) != 10 || got.Recent[0].Score != 2 {
		t.Fatalf("expected 10 most recent first, got %+v", got.Recent)
	}
}

func TestLowRated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil)
	for _, score := range []int{1, 5, 3, 2, 4} {
		if _, err := svc.Save(ctx, "q", "a", score, ""); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	low, err := svc.LowRated(ctx, 0, 0)
	if err != nil {
		t.Fatalf("LowRated error: %v", err)
	}
	if len(low) != 3 || low[0].Score != 2 || low[2].Score != 1 {
		t.Fatalf("unexpected low rated %+v", low)
	}
	if low, _ = svc.LowRated(ctx, 2, 1); len(low) != 1 || low[0].Score != 2 {
		t.Fatalf("unexpected limited result %+v", low)
	}
}
