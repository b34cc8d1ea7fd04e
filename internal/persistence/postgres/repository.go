// Package postgres provides the pgx-backed training-session store.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/traininglog/internal/domain"
)

const sessionColumns = `id, to_char(session_date, 'YYYY-MM-DD'), activity_type, duration_minutes,
        energy_level, session_emphasis, rpe, notes, uuid, deleted, updated_at`

// Repository provides Postgres-backed persistence for training sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByDate returns non-deleted sessions for one day, newest id first.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]domain.TrainingSession, error) {
	const query = `SELECT ` + sessionColumns + `
        FROM training_sessions
        WHERE session_date = $1::date AND deleted = 0
        ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListSince returns every row changed strictly after since, oldest first,
// deleted rows included. This feeds the incremental sync consumer.
func (r *Repository) ListSince(ctx context.Context, since time.Time, limit int) ([]domain.TrainingSession, error) {
	const query = `SELECT ` + sessionColumns + `
        FROM training_sessions
        WHERE updated_at > $1
        ORDER BY updated_at ASC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListRecent returns the most recent non-deleted sessions.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.TrainingSession, error) {
	const query = `SELECT ` + sessionColumns + `
        FROM training_sessions
        WHERE deleted = 0
        ORDER BY session_date DESC, id DESC
        LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// Upsert inserts the record or overwrites the existing row with the same
// uuid, refreshing updated_at. With mergeDeleted the deleted flag resolves
// to the maximum of stored and incoming, so an out-of-order sync payload
// can never resurrect a deleted row.
func (r *Repository) Upsert(ctx context.Context, rec domain.TrainingSession, mergeDeleted bool) (int64, error) {
	deletedExpr := "excluded.deleted"
	if mergeDeleted {
		deletedExpr = "GREATEST(training_sessions.deleted, excluded.deleted)"
	}

	query := `INSERT INTO training_sessions
        (session_date, activity_type, duration_minutes, energy_level,
         session_emphasis, rpe, notes, uuid, deleted)
        VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (uuid) DO UPDATE SET
        session_date = excluded.session_date,
        activity_type = excluded.activity_type,
        duration_minutes = excluded.duration_minutes,
        energy_level = excluded.energy_level,
        session_emphasis = excluded.session_emphasis,
        rpe = excluded.rpe,
        notes = excluded.notes,
        deleted = ` + deletedExpr + `,
        updated_at = now()`

	tag, err := r.pool.Exec(ctx, query,
		rec.SessionDate,
		rec.ActivityType,
		rec.DurationMinutes,
		rec.EnergyLevel,
		rec.SessionEmphasis,
		rec.RPE,
		rec.Notes,
		rec.UUID,
		rec.Deleted,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SoftDelete flags the active row for uuid as deleted and refreshes
// updated_at. Returns false when no active row matched, which covers both
// unknown and already-deleted uuids.
func (r *Repository) SoftDelete(ctx context.Context, uuid string) (bool, error) {
	const stmt = `UPDATE training_sessions
        SET deleted = 1, updated_at = now()
        WHERE uuid = $1 AND deleted = 0`

	tag, err := r.pool.Exec(ctx, stmt, uuid)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSessions(rows pgxRows) ([]domain.TrainingSession, error) {
	results := make([]domain.TrainingSession, 0)
	for rows.Next() {
		var rec domain.TrainingSession
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionDate,
			&rec.ActivityType,
			&rec.DurationMinutes,
			&rec.EnergyLevel,
			&rec.SessionEmphasis,
			&rec.RPE,
			&rec.Notes,
			&rec.UUID,
			&rec.Deleted,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
