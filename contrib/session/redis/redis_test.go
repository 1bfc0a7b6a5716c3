package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/session"
)

// Requires a running Redis; set REDIS_ADDR to run.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis session store tests")
	}
	ctx := context.Background()
	store := New(&Config{Addr: addr, Prefix: fmt.Sprintf("enrichrag:test:%d:", time.Now().UnixNano()), TTL: time.Minute})
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		t.Skipf("Redis unavailable: %v", err)
	}

	mgr := session.NewManager(session.WithStore(store))
	rec, err := mgr.Create(ctx, "redis")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := mgr.Append(ctx, rec.ID, session.UserTurn("hello")); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	loaded, err := store.Load(ctx, rec.ID)
	if err != nil || len(loaded.Turns) != 1 || loaded.Turns[0].Content != "hello" {
		t.Fatalf("unexpected record %+v (%v)", loaded, err)
	}
	if err := mgr.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Load(ctx, rec.ID); !errors.Is(err, errorskg.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
