// Package service holds the business rules applied to tasks before any
// store access.
package service

import (
	"context"
	"fmt"

	"github.com/nhle/taskapi/internal/logger"
	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/store"
)

// TaskService validates task operations and delegates them to a TaskStore.
// It holds no state of its own.
type TaskService struct {
	repository store.TaskStore
}

// NewTaskService returns a TaskService backed by repo.
func NewTaskService(repo store.TaskStore) *TaskService {
	return &TaskService{repository: repo}
}

// GetAll lists tasks. status "completed" or "incomplete" narrows the result;
// any other value returns every task.
func (s *TaskService) GetAll(ctx context.Context, status string) ([]model.Task, error) {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: getting all tasks", "status_filter", status)

	tasks, err := s.repository.GetTasks(ctx, model.ParseStatusFilter(status))
	if err != nil {
		return nil, fmt.Errorf("service: getting tasks: %w", err)
	}

	log.Debug("service: tasks retrieved", "count", len(tasks))
	return tasks, nil
}

// GetByID returns model.ErrNotFound for non-positive ids without a lookup.
func (s *TaskService) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: getting task by id", "id", id)

	if id <= 0 {
		return nil, fmt.Errorf("service: task %d: %w", id, model.ErrNotFound)
	}

	t, err := s.repository.GetTaskByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: getting task: %w", err)
	}
	return t, nil
}

// Add stores a new task after checking its title.
func (s *TaskService) Add(ctx context.Context, task model.Task) (*model.Task, error) {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: adding task", "title", task.Title)

	if err := model.ValidateTitle(task.Title); err != nil {
		return nil, err
	}

	created, err := s.repository.CreateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("service: adding task: %w", err)
	}

	log.Debug("service: task added", "id", created.ID)
	return created, nil
}

// Update replaces task id with task. The path id must match task.ID.
func (s *TaskService) Update(ctx context.Context, id int64, task model.Task) (*model.Task, error) {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: updating task", "id", id, "version", task.Version)

	if id != task.ID {
		return nil, fmt.Errorf("%w: id %d does not match task id %d", model.ErrValidation, id, task.ID)
	}
	if err := model.ValidateTitle(task.Title); err != nil {
		return nil, err
	}

	updated, err := s.repository.UpdateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("service: updating task: %w", err)
	}

	log.Debug("service: task updated", "id", updated.ID, "version", updated.Version)
	return updated, nil
}

// Delete removes task id. Non-positive ids report model.ErrNotFound.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: deleting task", "id", id)

	if id <= 0 {
		return fmt.Errorf("service: task %d: %w", id, model.ErrNotFound)
	}

	if err := s.repository.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("service: deleting task: %w", err)
	}
	return nil
}

// Reorder applies a batch of positions. The batch must be non-empty and every
// entry must carry a positive id and a title.
func (s *TaskService) Reorder(ctx context.Context, tasks []model.Task) error {
	log := logger.FromContext(ctx).With("where", "service")
	log.Debug("service: reordering tasks", "count", len(tasks))

	if len(tasks) == 0 {
		return fmt.Errorf("%w: task list cannot be empty", model.ErrValidation)
	}
	for i, t := range tasks {
		if t.ID <= 0 {
			return fmt.Errorf("%w: entry %d has invalid id %d", model.ErrValidation, i, t.ID)
		}
		if err := model.ValidateTitle(t.Title); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	if err := s.repository.ReorderTasks(ctx, tasks); err != nil {
		return fmt.Errorf("service: reordering tasks: %w", err)
	}
	return nil
}
