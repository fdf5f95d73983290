package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the longest title, in characters, a task may carry.
const MaxTitleLength = 100

// Status filter values accepted by list queries.
const (
	FilterCompleted  = "completed"
	FilterIncomplete = "incomplete"
)

// StatusFilter narrows a task listing by completion state.
// The zero value matches every task.
type StatusFilter struct {
	Completed *bool
}

// ParseStatusFilter maps a query value to a StatusFilter. Unknown or empty
// values yield the unfiltered zero value.
func ParseStatusFilter(s string) StatusFilter {
	var completed bool
	switch s {
	case FilterCompleted:
		completed = true
	case FilterIncomplete:
		completed = false
	default:
		return StatusFilter{}
	}
	return StatusFilter{Completed: &completed}
}

// Task is the unit of work tracked by the system.
type Task struct {
	// ID is assigned by the store on creation and never changes.
	ID int64 `json:"id" db:"id"`

	Title       string  `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
	IsCompleted bool    `json:"isCompleted" db:"is_completed"`

	// Position orders tasks for display. It is only written by reorder;
	// values may repeat or leave gaps.
	Position int64 `json:"position" db:"position"`

	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt *time.Time `json:"updatedAt" db:"updated_at"`

	// Version is the optimistic-concurrency token. It starts at 1 and is
	// bumped by every write. A zero Version on update skips the check.
	Version int64 `json:"version" db:"version"`
}

// DescriptionText returns the description or "" when it is unset.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// ValidateTitle reports whether title is acceptable for a stored task.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: task title cannot exceed %d characters", ErrValidation, MaxTitleLength)
	}
	return nil
}
