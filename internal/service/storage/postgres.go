package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ThreadStore = (*PgStore)(nil)

const pgSchema = `
CREATE TABLE IF NOT EXISTS copilot_thread (
	id         TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at BIGINT NOT NULL
)`

// PgStore keeps one JSONB row per thread, mirroring the bolt layout.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore connects, pings and ensures the thread table exists.
// DSNs with SQLAlchemy-style driver suffixes ("postgresql+asyncpg://") are accepted.
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.HealthCheckPeriod == 0 {
		cfg.HealthCheckPeriod = 1 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &PgStore{pool: pool}, nil
}

func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PgStore) SaveThread(ctx context.Context, record *ThreadRecord) error {
	if record == nil || record.Info == nil {
		return fmt.Errorf("thread info is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal thread %s: %w", record.Info.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO copilot_thread (id, record, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (id)
		DO UPDATE SET record = EXCLUDED.record,
		              updated_at = EXCLUDED.updated_at
	`, record.Info.ID, string(data), record.Info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save thread %s: %w", record.Info.ID, err)
	}
	return nil
}

func (s *PgStore) LoadThreads(ctx context.Context) ([]*ThreadRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, record::text FROM copilot_thread`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load threads: %w", err)
	}
	defer rows.Close()

	var threads []*ThreadRecord
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan thread: %w", err)
		}

		var stored ThreadRecord
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal thread %s: %w", id, err)
		}
		if stored.Info == nil {
			continue
		}
		threads = append(threads, &stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load threads: %w", err)
	}

	return threads, nil
}

func (s *PgStore) DeleteThread(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("thread id is required")
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM copilot_thread WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete thread %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}
	return nil
}

func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	s = strings.Replace(s, "postgresql+asyncpg://", "postgresql://", 1)
	s = strings.Replace(s, "postgres+asyncpg://", "postgres://", 1)
	s = strings.Replace(s, "postgresql+pgx://", "postgresql://", 1)
	s = strings.Replace(s, "postgres+pgx://", "postgres://", 1)
	return s
}
