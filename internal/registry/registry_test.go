package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hiring-pipeline/internal/models"
)

func TestRecruiterTransitions(t *testing.T) {
	nonTerminal := []models.Status{
		models.StatusApplied, models.StatusShortlisted, models.StatusInterview, models.StatusOnHold,
	}
	for _, from := range nonTerminal {
		for _, to := range Statuses() {
			if to == from {
				continue
			}
			got := IsValidTransition(from, to, models.RoleRecruiter)
			if to == models.StatusWithdrawn {
				assert.False(t, got, "recruiter must not withdraw %s", from)
			} else {
				assert.True(t, got, "recruiter %s -> %s should be legal", from, to)
			}
		}
	}
}

func TestApplicantCanOnlyWithdraw(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if to == from {
				continue
			}
			got := IsValidTransition(from, to, models.RoleApplicant)
			if to == models.StatusWithdrawn && !IsTerminal(from) {
				assert.True(t, got, "applicant should withdraw from %s", from)
			} else {
				assert.False(t, got, "applicant %s -> %s must be illegal", from, to)
			}
		}
	}
}

func TestTerminalLock(t *testing.T) {
	for _, from := range []models.Status{models.StatusHired, models.StatusRejected, models.StatusWithdrawn} {
		for _, to := range Statuses() {
			assert.False(t, IsValidTransition(from, to, models.RoleRecruiter), "%s -> %s", from, to)
			assert.False(t, IsValidTransition(from, to, models.RoleApplicant), "%s -> %s", from, to)
		}
	}
}

func TestSameStatusIsNotATransition(t *testing.T) {
	for _, st := range Statuses() {
		assert.False(t, IsValidTransition(st, st, models.RoleRecruiter))
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	assert.False(t, IsValidTransition(models.StatusApplied, models.Status("archived"), models.RoleRecruiter))
	assert.False(t, IsValidTransition(models.Status("archived"), models.StatusHired, models.RoleRecruiter))
	assert.False(t, RoleCanTarget(models.Status("archived"), models.RoleRecruiter))
}

func TestRoleCanTarget(t *testing.T) {
	assert.True(t, RoleCanTarget(models.StatusWithdrawn, models.RoleApplicant))
	assert.False(t, RoleCanTarget(models.StatusWithdrawn, models.RoleRecruiter))
	assert.True(t, RoleCanTarget(models.StatusShortlisted, models.RoleRecruiter))
	assert.False(t, RoleCanTarget(models.StatusShortlisted, models.RoleApplicant))
}

func TestStatusOrderStable(t *testing.T) {
	got := Statuses()
	assert.Equal(t, models.StatusApplied, got[0])
	assert.Len(t, got, 7)

	// Mutating the returned slice must not touch the canonical order.
	got[0] = models.StatusHired
	assert.Equal(t, models.StatusApplied, Statuses()[0])
}
