package models

import "errors"

// Sentinel errors shared between the store and service layers. The HTTP
// layer maps the first three onto the error kinds exposed to collaborators.
var (
	ErrRecordNotFound    = errors.New("application record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("actor not authorized for transition")

	// ErrStatusConflict signals a lost compare-and-set race inside the
	// store: the record's status moved between read and commit.
	ErrStatusConflict = errors.New("record status changed concurrently")
)
