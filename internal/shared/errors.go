// Package shared holds cross-module primitives: the error taxonomy,
// pagination helpers and the injectable clock.
package shared

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrPreconditionFailed indicates a state-machine guard was violated.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConflict indicates the operation collides with existing state,
	// e.g. lot membership conflicts.
	ErrConflict = errors.New("conflict")
	// ErrDeleteBlocked indicates a delete refused because the item was sold
	// or is actively listed. Mapped to 400, not 409, on the wire.
	ErrDeleteBlocked = errors.New("delete blocked")
	// ErrInvalidState indicates an operation ran against an item whose
	// status does not permit it, e.g. recording a sale on a non-SOLD item.
	ErrInvalidState = errors.New("invalid state")
)
