// Package domain defines the business logic for the training-log service.
package domain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/traininglog/internal/observability"
)

const (
	// RecentLimit caps the default listing of non-deleted sessions.
	RecentLimit = 200
	// SyncLimit caps a single incremental pull.
	SyncLimit = 500
)

// SessionRepository captures persistence operations over training sessions.
type SessionRepository interface {
	ListByDate(ctx context.Context, date string) ([]TrainingSession, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]TrainingSession, error)
	ListRecent(ctx context.Context, limit int) ([]TrainingSession, error)
	// Upsert inserts or overwrites the row matching rec.UUID and refreshes
	// updated_at. With mergeDeleted the stored deleted flag becomes the
	// maximum of old and incoming, so a stale payload never undoes a delete.
	Upsert(ctx context.Context, rec TrainingSession, mergeDeleted bool) (int64, error)
	// SoftDelete marks the active row for uuid deleted. Returns false when
	// no active row matched.
	SoftDelete(ctx context.Context, uuid string) (bool, error)
}

// Service orchestrates validation, persistence and sync merge policy.
type Service struct {
	repo SessionRepository
	log  *zap.Logger
}

// NewService constructs a Service.
func NewService(repo SessionRepository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Upsert stores a single record from the browser. The record is fully
// validated and deleted is forced to 0: an edit through the form always
// leaves the row visible, even if a sync had flagged it deleted.
func (s *Service) Upsert(ctx context.Context, rec TrainingSession) error {
	rec.Deleted = 0
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.Upsert(ctx, rec, false); err != nil {
		return err
	}
	observability.RecordSessionUpserted(time.Now())
	return nil
}

// ImportBatch upserts a batch from the browser with merge-max delete
// semantics. Invalid items are skipped, never partially applied. Returns
// the number of accepted rows.
func (s *Service) ImportBatch(ctx context.Context, recs []TrainingSession) (int, error) {
	count := 0
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			continue
		}
		if _, err := s.repo.Upsert(ctx, rec, true); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		observability.RecordSessionUpserted(time.Now())
	}
	return count, nil
}

// SyncBatch applies a machine-to-machine batch. Invalid rows are skipped
// and logged without failing the request; zero-effect upserts are logged
// too so silent drift is visible in the logs.
func (s *Service) SyncBatch(ctx context.Context, recs []TrainingSession) (int, error) {
	count := 0
	for _, rec := range recs {
		if !IsRecordUUID(rec.UUID) {
			s.log.Warn("skipping sync item with invalid uuid")
			observability.RecordSyncRowSkipped()
			continue
		}
		if err := rec.Validate(); err != nil {
			s.log.Warn("skipping invalid sync item",
				zap.String("uuid", rec.UUID), zap.Error(err))
			continue
		}
		affected, err := s.repo.Upsert(ctx, rec, true)
		if err != nil {
			return count, err
		}
		if affected == 0 {
			s.log.Warn("upsert had no effect", zap.String("uuid", rec.UUID))
		}
		count++
	}
	if count > 0 {
		observability.RecordSessionUpserted(time.Now())
	}
	return count, nil
}

// Delete soft-deletes the active row for uuid.
func (s *Service) Delete(ctx context.Context, uuid string) error {
	if !IsRecordUUID(uuid) {
		return &ValidationError{Message: "invalid uuid"}
	}
	ok, err := s.repo.SoftDelete(ctx, uuid)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// ListByDate returns the non-deleted sessions for one day, newest id first.
func (s *Service) ListByDate(ctx context.Context, date string) ([]TrainingSession, error) {
	return s.repo.ListByDate(ctx, date)
}

// ListSince returns every row, deleted or not, changed strictly after
// since, oldest first. This is the incremental sync cursor query.
func (s *Service) ListSince(ctx context.Context, since time.Time) ([]TrainingSession, error) {
	return s.repo.ListSince(ctx, since, SyncLimit)
}

// ListRecent returns the most recent non-deleted sessions.
func (s *Service) ListRecent(ctx context.Context) ([]TrainingSession, error) {
	return s.repo.ListRecent(ctx, RecentLimit)
}
