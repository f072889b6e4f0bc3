// Package common defines shared constants and sentinel errors used across
// the lifecycle engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrInvalidInput marks malformed or out-of-range input. It is checked
	// before any store access and surfaced verbatim to the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a well-formed reference whose referent is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks referents that exist but violate a business
	// precondition, such as an inactive course or a missing course link.
	ErrInvalidState = errors.New("invalid state")

	// ErrConstraint marks duplicate-key or foreign-key violations reported
	// by the store.
	ErrConstraint = errors.New("constraint violation")

	// ErrStore marks a persistence failure after validation passed.
	ErrStore = errors.New("store failure")

	// ErrCorrupt marks a broken invariant, e.g. a participant row whose
	// user no longer exists. Sweeps abort on it instead of skipping rows.
	ErrCorrupt = errors.New("data inconsistency")
)
