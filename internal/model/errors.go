package model

import "errors"

// Outcomes shared by the store, service and API layers. Callers match them
// with errors.Is; every layer wraps rather than replaces them.
var (
	ErrNotFound       = errors.New("task not found")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("task was modified concurrently")
	ErrUnknownTaskIDs = errors.New("one or more task ids are invalid")
	ErrReorderFailed  = errors.New("reordering tasks failed")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)
