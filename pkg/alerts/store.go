// Package alerts persists scam alerts so users can review and delete past
// warnings. Optional: the engine runs without a database, it just keeps no
// history.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Alert is one persisted warning event.
type Alert struct {
	ID         uuid.UUID `json:"id"`
	SourceID   string    `json:"source_id"`
	Excerpt    string    `json:"excerpt"`
	IsScam     bool      `json:"is_scam"`
	Confidence float64   `json:"confidence"`
	Category   string    `json:"category"`
	Method     string    `json:"method"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// maxExcerptLen bounds the stored text sample. The full captured text may
// contain unrelated personal content; the alert only needs enough to be
// recognizable in a history list.
const maxExcerptLen = 200

// Store writes and reads alerts in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS scam_alerts (
    id          UUID PRIMARY KEY,
    source_id   TEXT NOT NULL,
    excerpt     TEXT NOT NULL,
    is_scam     BOOLEAN NOT NULL,
    confidence  DOUBLE PRECISION NOT NULL,
    category    TEXT NOT NULL,
    method      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scam_alerts_created_idx ON scam_alerts (created_at DESC);
`

// NewStore connects to Postgres and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("schema init: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Truncate returns s cut to maxExcerptLen without splitting a rune.
func Truncate(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxExcerptLen {
		return s
	}
	return string(runes[:maxExcerptLen])
}

// Insert persists one alert and returns its generated ID.
func (s *Store) Insert(ctx context.Context, a Alert) (uuid.UUID, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scam_alerts (id, source_id, excerpt, is_scam, confidence, category, method, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.SourceID, Truncate(a.Excerpt), a.IsScam, a.Confidence,
		a.Category, a.Method, a.Message, a.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert alert: %w", err)
	}
	return a.ID, nil
}

// List returns the most recent alerts, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_id, excerpt, is_scam, confidence, category, method, message, created_at
		 FROM scam_alerts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Excerpt, &a.IsScam,
			&a.Confidence, &a.Category, &a.Method, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Delete removes one alert by ID. Deleting a missing ID is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM scam_alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
