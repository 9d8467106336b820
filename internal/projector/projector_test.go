package projector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/models"
)

type stubSource struct {
	recordCounts map[string]int // keyed by month start, RFC3339
	entryCounts  map[string]int // keyed by status|month start
	entries      []models.AuditEntry

	lastStatuses []models.Status
	lastSince    time.Time
}

func (s *stubSource) CountRecordsCreatedBetween(_ context.Context, from, _ time.Time) (int, error) {
	return s.recordCounts[from.Format(time.RFC3339)], nil
}

func (s *stubSource) CountEntriesToStatus(_ context.Context, status models.Status, from, _ time.Time) (int, error) {
	return s.entryCounts[string(status)+"|"+from.Format(time.RFC3339)], nil
}

func (s *stubSource) RecentEntries(_ context.Context, since time.Time, statuses []models.Status, _ int) ([]models.AuditEntry, error) {
	s.lastSince = since
	s.lastStatuses = statuses
	return s.entries, nil
}

func (s *stubSource) FunnelCounts(context.Context) (map[models.Status]int, error) {
	return map[models.Status]int{models.StatusApplied: 4, models.StatusHired: 1}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
}

func monthKey(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestMonthlyGrowthMath(t *testing.T) {
	cur := monthKey(fixedNow())
	prev := monthKey(fixedNow().AddDate(0, -1, 0))

	cases := []struct {
		name        string
		curN, prevN int
		wantPct     int
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 5, 0, 100},
		{"fifty percent up", 15, 10, 50},
		{"decline", 5, 10, -50},
		{"rounding", 1, 3, -67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &stubSource{recordCounts: map[string]int{cur: tc.curN, prev: tc.prevN}}
			p := New(src)
			p.now = fixedNow

			g, err := p.MonthlyGrowth(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.curN, g.CurrentCount)
			assert.Equal(t, tc.prevN, g.PreviousCount)
			assert.Equal(t, tc.wantPct, g.PercentageChange)
		})
	}
}

func TestMonthlyGrowthStatusFilterUsesAuditEntries(t *testing.T) {
	cur := monthKey(fixedNow())
	prev := monthKey(fixedNow().AddDate(0, -1, 0))
	src := &stubSource{
		recordCounts: map[string]int{cur: 99, prev: 99}, // must be ignored
		entryCounts: map[string]int{
			"hired|" + cur:  3,
			"hired|" + prev: 2,
		},
	}
	p := New(src)
	p.now = fixedNow

	hired := models.StatusHired
	g, err := p.MonthlyGrowth(context.Background(), &hired)
	require.NoError(t, err)
	assert.Equal(t, 3, g.CurrentCount)
	assert.Equal(t, 2, g.PreviousCount)
	assert.Equal(t, 50, g.PercentageChange)
}

func TestMonthBoundsCrossYear(t *testing.T) {
	jan := time.Date(2026, time.January, 20, 8, 0, 0, 0, time.UTC)
	start, next := monthBounds(jan)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), start.AddDate(0, -1, 0))
}

func TestRecentActivityPassesFilterThrough(t *testing.T) {
	src := &stubSource{entries: []models.AuditEntry{{ID: "e1"}}}
	p := New(src)

	since := fixedNow().Add(-time.Hour)
	got, err := p.RecentActivity(context.Background(), since, []models.Status{models.StatusHired}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, since, src.lastSince)
	assert.Equal(t, []models.Status{models.StatusHired}, src.lastStatuses)
}

func TestFunnelCounts(t *testing.T) {
	p := New(&stubSource{})
	counts, err := p.FunnelCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.StatusApplied])
	assert.Equal(t, 1, counts[models.StatusHired])
}
