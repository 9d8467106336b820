package models

import (
	"fmt"
	"time"
)

// Status enumerates pipeline states persisted in Postgres.
type Status string

const (
	StatusApplied     Status = "applied"
	StatusShortlisted Status = "shortlisted"
	StatusInterview   Status = "interview"
	StatusOnHold      Status = "on_hold"
	StatusHired       Status = "hired"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

// ActorRole identifies which side of the pipeline caused a transition.
type ActorRole string

const (
	RoleRecruiter ActorRole = "recruiter"
	RoleApplicant ActorRole = "applicant"
)

// Action labels an audit entry.
type Action string

const (
	ActionStatusUpdate Action = "status_update"
	ActionWithdraw     Action = "withdraw"
)

// ApplicationRecord is the current-state projection for one applicant and
// one job posting. At most one record exists per pair.
type ApplicationRecord struct {
	ID            string    `json:"id"`
	JobPostingID  string    `json:"job_posting_id"`
	ApplicantID   string    `json:"applicant_id"`
	CurrentStatus Status    `json:"current_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuditEntry is one immutable transition fact. Entries are append-only:
// each entry's FromStatus equals the previous entry's ToStatus, and the
// first entry starts from StatusApplied.
type AuditEntry struct {
	ID         string    `json:"id"`
	RecordID   string    `json:"record_id"`
	Action     Action    `json:"action"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorRole  ActorRole `json:"actor_role"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ParseStatus validates a wire value against the closed status set.
func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusApplied, StatusShortlisted, StatusInterview, StatusOnHold,
		StatusHired, StatusRejected, StatusWithdrawn:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// ParseRole validates a wire value against the actor role set.
func ParseRole(v string) (ActorRole, error) {
	switch r := ActorRole(v); r {
	case RoleRecruiter, RoleApplicant:
		return r, nil
	}
	return "", fmt.Errorf("unknown actor role %q", v)
}
