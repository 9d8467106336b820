package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hiring-pipeline/internal/models"
)

// Memory is an in-memory store with the same semantics as Postgres,
// including the from-status guard on ApplyTransition. It backs tests and
// local runs without a database.
type Memory struct {
	mu              sync.Mutex
	records         map[string]models.ApplicationRecord
	byPair          map[[2]string]string
	entries         map[string][]models.AuditEntry
	archivedThrough time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]models.ApplicationRecord),
		byPair:  make(map[[2]string]string),
		entries: make(map[string][]models.AuditEntry),
	}
}

func (m *Memory) CreateRecord(_ context.Context, jobPostingID, applicantID string) (models.ApplicationRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair := [2]string{jobPostingID, applicantID}
	if id, ok := m.byPair[pair]; ok {
		return m.records[id], true, nil
	}

	now := time.Now().UTC()
	rec := models.ApplicationRecord{
		ID:            uuid.New().String(),
		JobPostingID:  jobPostingID,
		ApplicantID:   applicantID,
		CurrentStatus: models.StatusApplied,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.records[rec.ID] = rec
	m.byPair[pair] = rec.ID
	return rec, false, nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (models.ApplicationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return models.ApplicationRecord{}, models.ErrRecordNotFound
	}
	return rec, nil
}

func (m *Memory) ApplyTransition(_ context.Context, entry models.AuditEntry) (models.ApplicationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[entry.RecordID]
	if !ok {
		return models.ApplicationRecord{}, models.ErrRecordNotFound
	}
	if rec.CurrentStatus != entry.FromStatus {
		return models.ApplicationRecord{}, models.ErrStatusConflict
	}

	rec.CurrentStatus = entry.ToStatus
	rec.UpdatedAt = entry.OccurredAt
	m.records[rec.ID] = rec
	m.entries[rec.ID] = append(m.entries[rec.ID], entry)
	return rec, nil
}

func (m *Memory) History(_ context.Context, recordID string, newestFirst bool, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.entries[recordID]
	out := make([]models.AuditEntry, len(src))
	copy(out, src)
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CountRecordsCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rec := range m.records {
		if !rec.CreatedAt.Before(from) && rec.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountEntriesToStatus(_ context.Context, status models.Status, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, list := range m.entries {
		for _, e := range list {
			if e.ToStatus == status && !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
				n++
			}
		}
	}
	return n, nil
}

func (m *Memory) RecentEntries(_ context.Context, since time.Time, statuses []models.Status, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	want := make(map[models.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	var out []models.AuditEntry
	for _, list := range m.entries {
		for _, e := range list {
			if !e.OccurredAt.After(since) {
				continue
			}
			if len(want) > 0 && !want[e.ToStatus] {
				continue
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FunnelCounts(_ context.Context) (map[models.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[models.Status]int)
	for _, rec := range m.records {
		out[rec.CurrentStatus]++
	}
	return out, nil
}

func (m *Memory) EntriesBetween(_ context.Context, from, to time.Time, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 1000
	}
	var out []models.AuditEntry
	for _, list := range m.entries {
		for _, e := range list {
			if e.OccurredAt.After(from) && !e.OccurredAt.After(to) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ArchivedThrough(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.archivedThrough, nil
}

func (m *Memory) SetArchivedThrough(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archivedThrough = t
	return nil
}
