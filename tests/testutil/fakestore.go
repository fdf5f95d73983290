package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nhle/taskapi/internal/model"
)

// FakeTaskStore is an in-memory store.TaskStore for tests. It counts every
// call so tests can assert the store was never reached.
type FakeTaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]model.Task
	nextID int64
	calls  int

	// Error injection for testing
	GetTasksErr    error
	GetTaskErr     error
	CreateTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error
	ReorderTaskErr error
}

// NewFakeTaskStore returns an empty FakeTaskStore.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{tasks: make(map[int64]model.Task)}
}

// Seed stores t as-is without counting a call. Missing ids, versions and
// positions are filled in.
func (f *FakeTaskStore) Seed(t model.Task) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		f.nextID++
		t.ID = f.nextID
	} else if t.ID > f.nextID {
		f.nextID = t.ID
	}
	if t.Version == 0 {
		t.Version = 1
	}
	if t.Position == 0 {
		t.Position = t.ID
	}
	f.tasks[t.ID] = t
	return t
}

// Calls returns how many store methods have been invoked.
func (f *FakeTaskStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Task returns the stored copy of id without counting a call.
func (f *FakeTaskStore) Task(id int64) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// GetTasks implements store.TaskStore.
func (f *FakeTaskStore) GetTasks(ctx context.Context, filter model.StatusFilter) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.GetTasksErr != nil {
		return nil, f.GetTasksErr
	}

	result := []model.Task{}
	for _, t := range f.tasks {
		if filter.Completed != nil && t.IsCompleted != *filter.Completed {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetTaskByID implements store.TaskStore.
func (f *FakeTaskStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.GetTaskErr != nil {
		return nil, f.GetTaskErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("getting task %d: %w", id, model.ErrNotFound)
	}
	return &t, nil
}

// CreateTask implements store.TaskStore.
func (f *FakeTaskStore) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.CreateTaskErr != nil {
		return nil, f.CreateTaskErr
	}
	f.nextID++
	t.ID = f.nextID
	t.Position = f.nextID
	t.Version = 1
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = nil
	f.tasks[t.ID] = t
	return &t, nil
}

// UpdateTask implements store.TaskStore.
func (f *FakeTaskStore) UpdateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.UpdateTaskErr != nil {
		return nil, f.UpdateTaskErr
	}
	existing, ok := f.tasks[t.ID]
	if !ok {
		return nil, fmt.Errorf("updating task %d: %w", t.ID, model.ErrNotFound)
	}
	if t.Version != 0 && t.Version != existing.Version {
		return nil, fmt.Errorf("updating task %d: %w", t.ID, model.ErrConflict)
	}
	now := time.Now().UTC()
	existing.Title = t.Title
	existing.Description = t.Description
	existing.IsCompleted = t.IsCompleted
	existing.UpdatedAt = &now
	existing.Version++
	f.tasks[t.ID] = existing
	return &existing, nil
}

// DeleteTask implements store.TaskStore.
func (f *FakeTaskStore) DeleteTask(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("deleting task %d: %w", id, model.ErrNotFound)
	}
	delete(f.tasks, id)
	return nil
}

// ReorderTasks implements store.TaskStore.
func (f *FakeTaskStore) ReorderTasks(ctx context.Context, tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.ReorderTaskErr != nil {
		return f.ReorderTaskErr
	}
	seen := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if _, ok := f.tasks[t.ID]; !ok || seen[t.ID] {
			return fmt.Errorf("%w: %w", model.ErrReorderFailed, model.ErrUnknownTaskIDs)
		}
		seen[t.ID] = true
	}
	for _, t := range tasks {
		existing := f.tasks[t.ID]
		existing.Position = t.Position
		f.tasks[t.ID] = existing
	}
	return nil
}
