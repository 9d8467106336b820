// Package projector derives read-only dashboard summaries from records and
// the audit log. Nothing here mutates state; results are only as fresh as
// the store at call time.
package projector

import (
	"context"
	"math"
	"time"

	"hiring-pipeline/internal/models"
)

// Source is the read surface the projector needs from a store.
type Source interface {
	CountRecordsCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	CountEntriesToStatus(ctx context.Context, status models.Status, from, to time.Time) (int, error)
	RecentEntries(ctx context.Context, since time.Time, statuses []models.Status, limit int) ([]models.AuditEntry, error)
	FunnelCounts(ctx context.Context) (map[models.Status]int, error)
}

// Growth compares the current calendar month against the previous one.
type Growth struct {
	CurrentCount     int `json:"current_count"`
	PreviousCount    int `json:"previous_count"`
	PercentageChange int `json:"percentage_change"`
}

// Projector computes dashboard views.
type Projector struct {
	src Source
	now func() time.Time
}

// New constructs a projector reading from src.
func New(src Source) *Projector {
	return &Projector{src: src, now: func() time.Time { return time.Now().UTC() }}
}

// MonthlyGrowth partitions activity by the server's current calendar month
// versus the prior one. With no filter it counts new application records;
// with a status filter it counts audit entries that moved a record into that
// status.
func (p *Projector) MonthlyGrowth(ctx context.Context, filter *models.Status) (Growth, error) {
	curStart, nextStart := monthBounds(p.now())
	prevStart := curStart.AddDate(0, -1, 0)

	var cur, prev int
	var err error
	if filter == nil {
		if cur, err = p.src.CountRecordsCreatedBetween(ctx, curStart, nextStart); err != nil {
			return Growth{}, err
		}
		if prev, err = p.src.CountRecordsCreatedBetween(ctx, prevStart, curStart); err != nil {
			return Growth{}, err
		}
	} else {
		if cur, err = p.src.CountEntriesToStatus(ctx, *filter, curStart, nextStart); err != nil {
			return Growth{}, err
		}
		if prev, err = p.src.CountEntriesToStatus(ctx, *filter, prevStart, curStart); err != nil {
			return Growth{}, err
		}
	}

	return Growth{
		CurrentCount:     cur,
		PreviousCount:    prev,
		PercentageChange: percentChange(cur, prev),
	}, nil
}

// RecentActivity returns audit entries newer than since, newest-first,
// optionally restricted to a status subset.
func (p *Projector) RecentActivity(ctx context.Context, since time.Time, statuses []models.Status, limit int) ([]models.AuditEntry, error) {
	return p.src.RecentEntries(ctx, since, statuses, limit)
}

// FunnelCounts returns how many records currently sit at each status.
func (p *Projector) FunnelCounts(ctx context.Context) (map[models.Status]int, error) {
	return p.src.FunnelCounts(ctx)
}

func monthBounds(now time.Time) (start, next time.Time) {
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func percentChange(cur, prev int) int {
	switch {
	case prev == 0 && cur == 0:
		return 0
	case prev == 0:
		return 100
	default:
		return int(math.Round(float64(cur-prev) / float64(prev) * 100))
	}
}
