package shared

import "errors"

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied indicates the actor's role is not authorized for the attempted action.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidTransition indicates a status change not permitted from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyExists indicates a duplicate record.
	ErrAlreadyExists = errors.New("already exists")
)
