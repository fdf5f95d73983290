package store

import (
	"context"

	"github.com/nhle/taskapi/internal/model"
)

// TaskStore defines persistence for tasks. Every write is atomic: a failed
// call leaves no partial change behind.
type TaskStore interface {
	// GetTasks returns the tasks matching filter ordered by position, then id.
	GetTasks(ctx context.Context, filter model.StatusFilter) ([]model.Task, error)

	// GetTaskByID returns model.ErrNotFound when no row has id.
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)

	// CreateTask inserts task and returns the stored row with id, position,
	// created_at and version filled in.
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)

	// UpdateTask replaces the mutable fields of the row with task.ID.
	// It fails with model.ErrNotFound if the row is gone and with
	// model.ErrConflict if task.Version is set and stale.
	UpdateTask(ctx context.Context, task model.Task) (*model.Task, error)

	// DeleteTask returns model.ErrNotFound when no row has id.
	DeleteTask(ctx context.Context, id int64) error

	// ReorderTasks writes each task's Position in one transaction. Errors
	// wrap model.ErrReorderFailed; unknown ids also wrap model.ErrUnknownTaskIDs.
	ReorderTasks(ctx context.Context, tasks []model.Task) error
}

// UserStore defines persistence for gate accounts.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error)
	SetUserPassword(ctx context.Context, username, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Store is the full persistence surface of the server.
type Store interface {
	TaskStore
	UserStore
	Close() error
}
