package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tinoosan/tunebridge/internal/data"
)

// PostgresHistory implements HistoryRepo backed by PostgreSQL. The live
// registry always stays in memory; only finished jobs are persisted.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory connects using dsn and creates the table if needed.
func NewPostgresHistory(dsn string) (*PostgresHistory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	h := &PostgresHistory{db: db}
	if err := h.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

var _ HistoryRepo = (*PostgresHistory)(nil)

func (h *PostgresHistory) Close() error { return h.db.Close() }

// Ping checks the connection. The service's readiness check calls it.
func (h *PostgresHistory) Ping(ctx context.Context) error { return h.db.PingContext(ctx) }

func (h *PostgresHistory) ensureSchema(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS download_history (
    seq BIGSERIAL PRIMARY KEY,
    job_id TEXT NOT NULL,
    resource TEXT NOT NULL,
    codec TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    total INTEGER NOT NULL DEFAULT 0,
    errors JSONB,
    exit_code INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS download_history_finished_idx ON download_history (finished_at DESC);
`)
	return err
}

// Record implements HistoryRepo.Record
func (h *PostgresHistory) Record(ctx context.Context, e data.HistoryEntry) error {
	errsJSON, _ := json.Marshal(e.Errors)
	_, err := h.db.ExecContext(ctx, `INSERT INTO download_history (job_id,resource,codec,status,completed,total,errors,exit_code,created_at,finished_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Resource, e.Codec, string(e.Status), e.Completed, e.Total, nullJSON(errsJSON), e.ExitCode, e.CreatedAt, e.FinishedAt)
	return err
}

// Recent implements HistoryRepo.Recent
func (h *PostgresHistory) Recent(ctx context.Context, limit int) ([]data.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	limit = min(limit, MaxHistoryLimit)
	rows, err := h.db.QueryContext(ctx, `SELECT job_id,resource,codec,status,completed,total,errors,exit_code,created_at,finished_at FROM download_history ORDER BY finished_at DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []data.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Helpers

type rowScanner interface{ Scan(dest ...any) error }

func scanEntry(rs rowScanner) (data.HistoryEntry, error) {
	var (
		e       data.HistoryEntry
		status  string
		errsRaw sql.NullString
	)
	if err := rs.Scan(&e.ID, &e.Resource, &e.Codec, &status, &e.Completed, &e.Total, &errsRaw, &e.ExitCode, &e.CreatedAt, &e.FinishedAt); err != nil {
		return data.HistoryEntry{}, err
	}
	e.Status = data.JobStatus(status)
	if errsRaw.Valid && errsRaw.String != "" {
		_ = json.Unmarshal([]byte(errsRaw.String), &e.Errors)
	}
	return e, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return string(b)
}
