// File: internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the Postgres store can be tested with
// pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a PostgreSQL-backed metric store for teams that centralize
// benchmark history across CI runners. It implements schemas.MetricStore.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres creates a new Postgres store and verifies the connection.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the snapshot tables when they do not exist yet.
// Idempotent, mirroring the filesystem store's directory creation.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS perf_snapshots (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			taken_at TIMESTAMPTZ NOT NULL,
			payload  JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS perf_baselines (
			name        TEXT PRIMARY KEY,
			snapshot_id TEXT NOT NULL,
			taken_at    TIMESTAMPTZ NOT NULL,
			payload     JSONB NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure store schema: %w", err)
		}
	}
	return nil
}

// Save appends a performance snapshot to history.
func (p *Postgres) Save(ctx context.Context, snap *schemas.MetricSnapshot) (string, error) {
	if snap.ID == "" {
		return "", fmt.Errorf("refusing to save snapshot without an id")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO perf_snapshots (id, name, taken_at, payload) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.Name, snap.Timestamp.UTC(), payload)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return "pg:perf_snapshots/" + snap.ID, nil
}

// SaveBaseline upserts the single baseline row for name.
func (p *Postgres) SaveBaseline(ctx context.Context, snap *schemas.MetricSnapshot, name string) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO perf_baselines (name, snapshot_id, taken_at, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   snapshot_id = EXCLUDED.snapshot_id,
		   taken_at    = EXCLUDED.taken_at,
		   payload     = EXCLUDED.payload`,
		name, snap.ID, snap.Timestamp.UTC(), payload)
	if err != nil {
		return "", fmt.Errorf("failed to upsert baseline: %w", err)
	}
	p.log.Info("Baseline updated", zap.String("baseline", name), zap.String("snapshot_id", snap.ID))
	return "pg:perf_baselines/" + name, nil
}

// LoadBaseline returns the baseline for name, or (nil, false, nil) when the
// row is absent.
func (p *Postgres) LoadBaseline(ctx context.Context, name string) (*schemas.MetricSnapshot, bool, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT payload FROM perf_baselines WHERE name = $1`, name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query baseline: %w", err)
	}

	var snap schemas.MetricSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, fmt.Errorf("%w: baseline %q: %v", ErrMalformedSnapshot, name, err)
	}
	return &snap, true, nil
}

// ListHistory returns snapshots most-recent-first. Rows with undecodable
// payloads are skipped with a warning, matching the filesystem behavior.
func (p *Postgres) ListHistory(ctx context.Context, nameFilter string, limit int) ([]*schemas.MetricSnapshot, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT payload FROM perf_snapshots`)
	args := []any{}
	if nameFilter != "" {
		sb.WriteString(` WHERE name = $1`)
		args = append(args, nameFilter)
	}
	sb.WriteString(` ORDER BY taken_at DESC`)
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(` LIMIT %d`, limit))
	}

	rows, err := p.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var snaps []*schemas.MetricSnapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		var snap schemas.MetricSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			p.log.Warn("Skipping corrupt history row", zap.Error(err))
			continue
		}
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return snaps, nil
}

var (
	_ schemas.MetricStore   = (*Postgres)(nil)
	_ schemas.MetricStore   = (*FS)(nil)
	_ schemas.SecurityStore = (*FS)(nil)
)
