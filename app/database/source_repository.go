package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/memo-comb/app/source"
)

type SourceRepository struct {
	db  *DB
	now func() time.Time
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db, now: time.Now}
}

// SyncSources upserts a row per descriptor and removes rows for sources that
// are no longer configured. Fetch history of kept sources is preserved.
func (r *SourceRepository) SyncSources(ctx context.Context, sources []source.Descriptor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS configured_sources (id TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to prepare sync: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM configured_sources`); err != nil {
		return fmt.Errorf("failed to prepare sync: %w", err)
	}

	now := r.now().Unix()
	for _, desc := range sources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sources (id, kind, name, endpoint, dialect, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				name = excluded.name,
				endpoint = excluded.endpoint,
				dialect = excluded.dialect,
				updated_at = excluded.updated_at
		`, desc.ID, string(desc.Kind()), desc.DisplayName, desc.Endpoint, string(desc.Dialect), now)
		if err != nil {
			return fmt.Errorf("failed to upsert source %s: %w", desc.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO configured_sources (id) VALUES (?)`, desc.ID); err != nil {
			return fmt.Errorf("failed to track source %s: %w", desc.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id NOT IN (SELECT id FROM configured_sources)`); err != nil {
		return fmt.Errorf("failed to prune sources: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit source sync: %w", err)
	}
	return nil
}

// RecordFetch stores the outcome of one fetch. Unknown source ids are ignored.
func (r *SourceRepository) RecordFetch(ctx context.Context, sourceID string, status int, count int, fetchErr error) error {
	now := r.now().Unix()

	var err error
	if fetchErr != nil {
		_, err = r.db.ExecContext(ctx, `
			UPDATE sources
			SET last_fetched_at = ?, last_status = ?, last_error = ?, updated_at = ?
			WHERE id = ?
		`, now, status, fetchErr.Error(), now, sourceID)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE sources
			SET last_fetched_at = ?, last_success_at = ?, last_status = ?, last_error = '', record_count = ?, updated_at = ?
			WHERE id = ?
		`, now, now, status, count, now, sourceID)
	}
	if err != nil {
		return fmt.Errorf("failed to record fetch for %s: %w", sourceID, err)
	}
	return nil
}

func (r *SourceRepository) ListSources(ctx context.Context) ([]SourceStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, name, endpoint, dialect, last_fetched_at, last_success_at,
		       last_status, last_error, record_count, updated_at
		FROM sources
		ORDER BY kind, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	statuses := []SourceStatus{}
	for rows.Next() {
		status, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return statuses, nil
}

// GetSource returns nil when id is unknown.
func (r *SourceRepository) GetSource(ctx context.Context, id string) (*SourceStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, name, endpoint, dialect, last_fetched_at, last_success_at,
		       last_status, last_error, record_count, updated_at
		FROM sources
		WHERE id = ?
	`, id)

	status, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return status, err
}

func (r *SourceRepository) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(s scanner) (*SourceStatus, error) {
	var (
		status        SourceStatus
		lastFetchedAt sql.NullInt64
		lastSuccessAt sql.NullInt64
		updatedAt     int64
	)

	err := s.Scan(
		&status.ID, &status.Kind, &status.Name, &status.Endpoint, &status.Dialect,
		&lastFetchedAt, &lastSuccessAt,
		&status.LastStatus, &status.LastError, &status.RecordCount, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	status.LastFetchedAt = unixPtr(lastFetchedAt)
	status.LastSuccessAt = unixPtr(lastSuccessAt)
	status.UpdatedAt = time.Unix(updatedAt, 0)

	return &status, nil
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
