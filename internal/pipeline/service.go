// Package pipeline implements the transition protocol for application
// records: validation against the status registry, atomic commit of the
// record update plus its audit entry, and per-record linearizability via a
// compare-and-set guard in the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/registry"
	"hiring-pipeline/internal/telemetry"
)

// Store is the persistence contract the service relies on. Implementations
// must make ApplyTransition atomic (record update + audit append together)
// and must reject the commit with models.ErrStatusConflict when the record's
// status no longer matches the entry's FromStatus.
type Store interface {
	CreateRecord(ctx context.Context, jobPostingID, applicantID string) (models.ApplicationRecord, bool, error)
	GetRecord(ctx context.Context, id string) (models.ApplicationRecord, error)
	ApplyTransition(ctx context.Context, entry models.AuditEntry) (models.ApplicationRecord, error)
	History(ctx context.Context, recordID string, newestFirst bool, limit int) ([]models.AuditEntry, error)
}

// Service validates and commits pipeline transitions. It is strictly
// authoritative: nothing is applied optimistically and nothing is partially
// applied.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService constructs the service. A nil logger disables logging.
func NewService(st Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// CreateRecord registers an application for a job posting, seeded at
// StatusApplied. Re-applying for the same posting returns the existing
// record unchanged.
func (s *Service) CreateRecord(ctx context.Context, jobPostingID, applicantID string) (models.ApplicationRecord, bool, error) {
	if jobPostingID == "" || applicantID == "" {
		return models.ApplicationRecord{}, false, fmt.Errorf("job posting id and applicant id are required")
	}
	rec, existing, err := s.store.CreateRecord(ctx, jobPostingID, applicantID)
	if err != nil {
		return models.ApplicationRecord{}, false, err
	}
	if !existing {
		s.log.Info("application record created",
			zap.String("record_id", rec.ID),
			zap.String("job_posting_id", jobPostingID),
		)
	}
	return rec, existing, nil
}

// RequestTransition moves a record to the requested status on behalf of an
// actor. The role check runs before the record is loaded so Unauthorized
// responses cannot reveal whether a record exists. A request targeting the
// record's current status is a no-op: accepted, no audit entry, UpdatedAt
// untouched.
func (s *Service) RequestTransition(ctx context.Context, recordID string, to models.Status, role models.ActorRole, actorID string) (models.ApplicationRecord, error) {
	if !registry.RoleCanTarget(to, role) {
		return models.ApplicationRecord{}, fmt.Errorf("%w: role %s cannot request %s", models.ErrUnauthorized, role, to)
	}

	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return models.ApplicationRecord{}, err
	}

	if rec.CurrentStatus == to {
		telemetry.TransitionNoops.Inc()
		return rec, nil
	}

	if !registry.IsValidTransition(rec.CurrentStatus, to, role) {
		return models.ApplicationRecord{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, rec.CurrentStatus, to)
	}

	action := models.ActionStatusUpdate
	if to == models.StatusWithdrawn {
		action = models.ActionWithdraw
	}
	entry := models.AuditEntry{
		ID:         uuid.New().String(),
		RecordID:   rec.ID,
		Action:     action,
		FromStatus: rec.CurrentStatus,
		ToStatus:   to,
		ActorRole:  role,
		ActorID:    actorID,
		OccurredAt: s.now(),
	}

	updated, err := s.store.ApplyTransition(ctx, entry)
	if err == nil {
		telemetry.TransitionCommits.Inc()
		s.log.Info("transition committed",
			zap.String("record_id", rec.ID),
			zap.String("from", string(entry.FromStatus)),
			zap.String("to", string(entry.ToStatus)),
			zap.String("actor_role", string(role)),
		)
		return updated, nil
	}
	if !errors.Is(err, models.ErrStatusConflict) {
		return models.ApplicationRecord{}, err
	}

	// Lost the race: another transition committed first. If it landed on the
	// same target the request degrades to a no-op; otherwise the observed
	// from-status no longer holds and the request is invalid.
	fresh, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return models.ApplicationRecord{}, err
	}
	if fresh.CurrentStatus == to {
		telemetry.TransitionNoops.Inc()
		return fresh, nil
	}
	return models.ApplicationRecord{}, fmt.Errorf("%w: status moved to %s during request", models.ErrInvalidTransition, fresh.CurrentStatus)
}

// GetRecord returns the current record state.
func (s *Service) GetRecord(ctx context.Context, recordID string) (models.ApplicationRecord, error) {
	return s.store.GetRecord(ctx, recordID)
}

// GetHistory returns the record's audit entries. Order is oldest-first
// unless newestFirst is set; limit <= 0 returns the full history. The record
// must exist even when its history is empty.
func (s *Service) GetHistory(ctx context.Context, recordID string, newestFirst bool, limit int) ([]models.AuditEntry, error) {
	if _, err := s.store.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, recordID, newestFirst, limit)
}
