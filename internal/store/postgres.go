package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiring-pipeline/internal/models"
)

// Postgres wraps pgxpool for durable record and audit persistence.
type Postgres struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateRecord inserts a record seeded at StatusApplied. The
// (job_posting_id, applicant_id) pair is unique; re-applying returns the
// existing record and reports existing=true instead of failing.
func (s *Postgres) CreateRecord(ctx context.Context, jobPostingID, applicantID string) (models.ApplicationRecord, bool, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO application_records (id, job_posting_id, applicant_id, current_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (job_posting_id, applicant_id) DO NOTHING
	`, id, jobPostingID, applicantID, models.StatusApplied, now)
	if err != nil {
		return models.ApplicationRecord{}, false, fmt.Errorf("insert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.findByPair(ctx, jobPostingID, applicantID)
		if err != nil {
			return models.ApplicationRecord{}, false, err
		}
		return existing, true, nil
	}

	return models.ApplicationRecord{
		ID:            id,
		JobPostingID:  jobPostingID,
		ApplicantID:   applicantID,
		CurrentStatus: models.StatusApplied,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, false, nil
}

func (s *Postgres) findByPair(ctx context.Context, jobPostingID, applicantID string) (models.ApplicationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, job_posting_id, applicant_id, current_status, created_at, updated_at
		FROM application_records WHERE job_posting_id = $1 AND applicant_id = $2
	`, jobPostingID, applicantID)
	return scanRecord(row)
}

// GetRecord fetches a record by id.
func (s *Postgres) GetRecord(ctx context.Context, id string) (models.ApplicationRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, job_posting_id, applicant_id, current_status, created_at, updated_at
		FROM application_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

func scanRecord(row pgx.Row) (models.ApplicationRecord, error) {
	var rec models.ApplicationRecord
	err := row.Scan(&rec.ID, &rec.JobPostingID, &rec.ApplicantID, &rec.CurrentStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ApplicationRecord{}, models.ErrRecordNotFound
	}
	if err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

// ApplyTransition commits one transition atomically: the record row moves to
// entry.ToStatus and the audit row is appended in the same transaction. The
// update is guarded by entry.FromStatus; a concurrent commit in between
// surfaces as ErrStatusConflict and nothing is written.
func (s *Postgres) ApplyTransition(ctx context.Context, entry models.AuditEntry) (models.ApplicationRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	tag, err := tx.Exec(ctx, `
		UPDATE application_records
		SET current_status = $2, updated_at = $3
		WHERE id = $1 AND current_status = $4
	`, entry.RecordID, entry.ToStatus, entry.OccurredAt, entry.FromStatus)
	if err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM application_records WHERE id = $1)
		`, entry.RecordID).Scan(&exists); err != nil {
			return models.ApplicationRecord{}, fmt.Errorf("check record: %w", err)
		}
		if !exists {
			return models.ApplicationRecord{}, models.ErrRecordNotFound
		}
		return models.ApplicationRecord{}, models.ErrStatusConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_entries (id, record_id, action, from_status, to_status, actor_role, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.RecordID, entry.Action, entry.FromStatus, entry.ToStatus, entry.ActorRole, entry.ActorID, entry.OccurredAt)
	if err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("append audit entry: %w", err)
	}

	row := tx.QueryRow(ctx, `
		SELECT id, job_posting_id, applicant_id, current_status, created_at, updated_at
		FROM application_records WHERE id = $1
	`, entry.RecordID)
	rec, err := scanRecord(row)
	if err != nil {
		return models.ApplicationRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// History returns a record's audit entries, oldest-first by default.
// limit <= 0 returns all entries.
func (s *Postgres) History(ctx context.Context, recordID string, newestFirst bool, limit int) ([]models.AuditEntry, error) {
	dir := "ASC"
	if newestFirst {
		dir = "DESC"
	}
	q := fmt.Sprintf(`
		SELECT id, record_id, action, from_status, to_status, actor_role, actor_id, occurred_at
		FROM audit_entries WHERE record_id = $1 ORDER BY occurred_at %s, id %s
	`, dir, dir)
	args := []any{recordID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Action, &e.FromStatus, &e.ToStatus, &e.ActorRole, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountRecordsCreatedBetween counts records created in [from, to).
func (s *Postgres) CountRecordsCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM application_records WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CountEntriesToStatus counts audit entries that moved a record into the
// given status during [from, to).
func (s *Postgres) CountEntriesToStatus(ctx context.Context, status models.Status, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_entries WHERE to_status = $1 AND occurred_at >= $2 AND occurred_at < $3
	`, status, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// RecentEntries returns entries newer than since, newest-first, optionally
// filtered to a status subset.
func (s *Postgres) RecentEntries(ctx context.Context, since time.Time, statuses []models.Status, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.pool.Query(ctx, `
			SELECT id, record_id, action, from_status, to_status, actor_role, actor_id, occurred_at
			FROM audit_entries WHERE occurred_at > $1
			ORDER BY occurred_at DESC LIMIT $2
		`, since, limit)
	} else {
		filter := make([]string, len(statuses))
		for i, st := range statuses {
			filter[i] = string(st)
		}
		rows, err = s.pool.Query(ctx, `
			SELECT id, record_id, action, from_status, to_status, actor_role, actor_id, occurred_at
			FROM audit_entries WHERE occurred_at > $1 AND to_status = ANY($2)
			ORDER BY occurred_at DESC LIMIT $3
		`, since, filter, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query recent entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FunnelCounts returns the number of records currently at each status.
func (s *Postgres) FunnelCounts(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT current_status, COUNT(*) FROM application_records GROUP BY current_status
	`)
	if err != nil {
		return nil, fmt.Errorf("query funnel counts: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Status]int)
	for rows.Next() {
		var st models.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan funnel row: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

// EntriesBetween returns entries with occurred_at in (from, to], oldest-first,
// for archive export.
func (s *Postgres) EntriesBetween(ctx context.Context, from, to time.Time, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, record_id, action, from_status, to_status, actor_role, actor_id, occurred_at
		FROM audit_entries WHERE occurred_at > $1 AND occurred_at <= $2
		ORDER BY occurred_at ASC LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries between: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ArchivedThrough returns the archive watermark (zero time if never set).
func (s *Postgres) ArchivedThrough(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, `SELECT archived_through FROM archive_state WHERE id = 1`).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query archive watermark: %w", err)
	}
	return t, nil
}

// SetArchivedThrough advances the archive watermark.
func (s *Postgres) SetArchivedThrough(ctx context.Context, t time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archive_state (id, archived_through) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET archived_through = EXCLUDED.archived_through
	`, t)
	if err != nil {
		return fmt.Errorf("set archive watermark: %w", err)
	}
	return nil
}
