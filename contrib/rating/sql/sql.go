// Package sql persists ratings through database/sql on SQLite or PostgreSQL.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/rating"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the driver and connection string.
type Config struct {
	Driver string
	DSN    string
}

// Store implements rating.Store.
type Store struct {
	db     *sql.DB
	driver string
}

var _ rating.Store = (*Store)(nil)

// Open connects to the database and creates the ratings table if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	case "":
		cfg.Driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unsupported rating driver %q: %w", cfg.Driver, errorskg.ErrInvalidInput)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("rating DSN is required: %w", errorskg.ErrInvalidInput)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open ratings db: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// an in-memory database lives only as long as its single connection
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, driver: cfg.Driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ratings (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			feedback TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_created ON ratings(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ratings: %w", err)
		}
	}
	return nil
}

// Save inserts a rating.
func (s *Store) Save(ctx context.Context, r rating.Rating) error {
	q := s.rebind(`INSERT INTO ratings (id, query, answer, rating, feedback, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q, r.ID, r.Query, r.Answer, r.Score, r.Feedback, r.Timestamp.UnixMicro())
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// Recent returns the newest ratings first.
func (s *Store) Recent(ctx context.Context, limit int) ([]rating.Rating, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.rebind(`SELECT id, query, answer, rating, feedback, created_at FROM ratings ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	out := make([]rating.Rating, 0)
	for rows.Next() {
		var (
			r       rating.Rating
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.Answer, &r.Score, &r.Feedback, &created); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		r.Timestamp = time.UnixMicro(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
