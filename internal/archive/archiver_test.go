package archive

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/store"
)

type captureUploader struct {
	keys   []string
	bodies [][]byte
}

func (c *captureUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	c.keys = append(c.keys, key)
	c.bodies = append(c.bodies, body)
	return "mem://" + key, nil
}

func seedEntries(t *testing.T, m *store.Memory, rec models.ApplicationRecord, times []time.Time) {
	t.Helper()
	steps := []models.Status{
		models.StatusShortlisted, models.StatusInterview, models.StatusOnHold, models.StatusHired,
	}
	from := models.StatusApplied
	for i, at := range times {
		to := steps[i%len(steps)]
		if to == from {
			to = models.StatusInterview
		}
		_, err := m.ApplyTransition(context.Background(), models.AuditEntry{
			ID:         at.Format("entry-150405.000000000"),
			RecordID:   rec.ID,
			Action:     models.ActionStatusUpdate,
			FromStatus: from,
			ToStatus:   to,
			ActorRole:  models.RoleRecruiter,
			OccurredAt: at,
		})
		require.NoError(t, err)
		from = to
	}
}

func TestArchiverExportsAgedEntries(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	rec, _, err := m.CreateRecord(ctx, "job-1", "app-1")
	require.NoError(t, err)

	old := time.Now().UTC().Add(-48 * time.Hour)
	seedEntries(t, m, rec, []time.Time{old, old.Add(time.Minute), old.Add(2 * time.Minute)})

	up := &captureUploader{}
	a := New(m, up, 24*time.Hour, 10, nil)

	n, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, up.keys, 1)
	assert.True(t, strings.HasPrefix(up.keys[0], "audit/"), "key %q", up.keys[0])
	assert.True(t, strings.HasSuffix(up.keys[0], ".json"))

	var b struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(up.bodies[0], &b))
	assert.Len(t, b.Entries, 3)

	// Watermark sits at the cutoff; a second run exports nothing new.
	n, err = a.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, up.keys, 1)
}

func TestArchiverSkipsFreshEntries(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	rec, _, err := m.CreateRecord(ctx, "job-1", "app-1")
	require.NoError(t, err)

	recent := time.Now().UTC().Add(-time.Hour)
	seedEntries(t, m, rec, []time.Time{recent})

	up := &captureUploader{}
	a := New(m, up, 24*time.Hour, 10, nil)

	n, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, up.keys)
}

func TestArchiverBatches(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	rec, _, err := m.CreateRecord(ctx, "job-1", "app-1")
	require.NoError(t, err)

	old := time.Now().UTC().Add(-72 * time.Hour)
	var times []time.Time
	for i := 0; i < 5; i++ {
		times = append(times, old.Add(time.Duration(i)*time.Minute))
	}
	seedEntries(t, m, rec, times)

	up := &captureUploader{}
	a := New(m, up, 24*time.Hour, 2, nil)

	n, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, up.keys, 3, "5 entries at batch size 2 need 3 objects")
}

func TestLocalUploaderWritesFile(t *testing.T) {
	dir := t.TempDir()
	up := &localUploader{baseDir: dir}

	loc, err := up.Upload(context.Background(), "audit/2026/08/entries-1.json", []byte(`{"entries":[]}`), "application/json")
	require.NoError(t, err)
	assert.Contains(t, loc, dir)
}
