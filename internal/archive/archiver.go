// Package archive exports aged audit entries to cold storage as JSON
// batches. Export is copy-only: the hot table is never modified, so the
// audit log stays complete and immutable. A watermark tracks the newest
// entry already exported.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hiring-pipeline/internal/models"
)

// Source is the store surface the archiver reads and the watermark it keeps.
type Source interface {
	EntriesBetween(ctx context.Context, from, to time.Time, limit int) ([]models.AuditEntry, error)
	ArchivedThrough(ctx context.Context) (time.Time, error)
	SetArchivedThrough(ctx context.Context, t time.Time) error
}

// Uploader writes one batch object to storage and returns its location.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Archiver drains entries older than the retention cutoff into batches.
type Archiver struct {
	src       Source
	uploader  Uploader
	after     time.Duration
	batchSize int
	log       *zap.Logger
	now       func() time.Time
}

// New constructs an archiver. after is how old an entry must be before it is
// exported; batchSize caps entries per object.
func New(src Source, up Uploader, after time.Duration, batchSize int, log *zap.Logger) *Archiver {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		src:       src,
		uploader:  up,
		after:     after,
		batchSize: batchSize,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type batch struct {
	From    time.Time          `json:"from"`
	Through time.Time          `json:"through"`
	Entries []models.AuditEntry `json:"entries"`
}

// Run exports every unarchived entry older than the cutoff, advancing the
// watermark batch by batch. It returns the number of entries exported.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	cutoff := a.now().Add(-a.after)
	total := 0

	for {
		mark, err := a.src.ArchivedThrough(ctx)
		if err != nil {
			return total, err
		}
		if !mark.Before(cutoff) {
			return total, nil
		}

		entries, err := a.src.EntriesBetween(ctx, mark, cutoff, a.batchSize)
		if err != nil {
			return total, err
		}
		if len(entries) == 0 {
			// Nothing left in the window; move the watermark to the cutoff
			// so the next run scans from there.
			if err := a.src.SetArchivedThrough(ctx, cutoff); err != nil {
				return total, err
			}
			return total, nil
		}

		last := entries[len(entries)-1].OccurredAt
		body, err := json.Marshal(batch{From: mark, Through: last, Entries: entries})
		if err != nil {
			return total, fmt.Errorf("marshal batch: %w", err)
		}

		key := fmt.Sprintf("audit/%04d/%02d/entries-%d.json", last.Year(), last.Month(), last.UnixMilli())
		loc, err := a.uploader.Upload(ctx, key, body, "application/json")
		if err != nil {
			return total, fmt.Errorf("upload batch: %w", err)
		}

		// Watermark moves only after the object is durably written; a crash
		// in between re-exports the batch, it never loses one.
		if err := a.src.SetArchivedThrough(ctx, last); err != nil {
			return total, err
		}

		total += len(entries)
		a.log.Info("audit batch archived",
			zap.String("location", loc),
			zap.Int("entries", len(entries)),
			zap.Time("through", last),
		)

		if len(entries) < a.batchSize {
			// Short batch means the window is drained; finish by pinning the
			// watermark at the cutoff.
			if err := a.src.SetArchivedThrough(ctx, cutoff); err != nil {
				return total, err
			}
			return total, nil
		}
	}
}
