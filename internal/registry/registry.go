// Package registry owns the canonical pipeline status set and the table of
// legal transitions. Presentation layers map statuses to display metadata
// elsewhere; nothing outside this package decides what a legal move is.
package registry

import "hiring-pipeline/internal/models"

// statusOrder is the canonical pipeline ordering shown to collaborators.
var statusOrder = []models.Status{
	models.StatusApplied,
	models.StatusShortlisted,
	models.StatusInterview,
	models.StatusOnHold,
	models.StatusHired,
	models.StatusRejected,
	models.StatusWithdrawn,
}

var terminal = map[models.Status]bool{
	models.StatusHired:     true,
	models.StatusRejected:  true,
	models.StatusWithdrawn: true,
}

// Statuses returns the ordered canonical status list.
func Statuses() []models.Status {
	out := make([]models.Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// IsTerminal reports whether no further transition may leave s.
func IsTerminal(s models.Status) bool {
	return terminal[s]
}

func known(s models.Status) bool {
	for _, v := range statusOrder {
		if v == s {
			return true
		}
	}
	return false
}

// RoleCanTarget reports whether role is ever permitted to request a
// transition into `to`, regardless of the source status. Withdrawal belongs
// to the applicant; every other move belongs to the recruiter. Checking this
// before loading the record keeps Unauthorized responses from leaking
// whether a record exists.
func RoleCanTarget(to models.Status, role models.ActorRole) bool {
	if !known(to) {
		return false
	}
	if to == models.StatusWithdrawn {
		return role == models.RoleApplicant
	}
	return role == models.RoleRecruiter
}

// IsValidTransition reports whether role may move a record from `from` to
// `to`. Same-status requests are not transitions; callers handle the no-op
// path before asking.
func IsValidTransition(from, to models.Status, role models.ActorRole) bool {
	if !known(from) || !known(to) || from == to {
		return false
	}
	if IsTerminal(from) {
		return false
	}
	return RoleCanTarget(to, role)
}
