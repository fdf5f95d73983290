package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskapi/internal/model"
)

const selectTask = `
	SELECT id, title, description, is_completed, position,
	       created_at, updated_at, version
	FROM tasks`

// GetTasks retrieves tasks matching the completion filter, ordered for display.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	filter model.StatusFilter,
) ([]model.Task, error) {
	query := selectTask
	var args []interface{}

	if filter.Completed != nil {
		query += " WHERE is_completed = ?"
		args = append(args, boolToInt(*filter.Completed))
	}
	query += " ORDER BY position ASC, id ASC"

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its primary key.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	return getTask(ctx, s.db, id)
}

// CreateTask inserts a new task at the end of the display order.
// Timestamps, position and version are assigned here; caller values for
// them are ignored.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	var created *model.Task
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var maxPosition int64
		err := tx.GetContext(ctx, &maxPosition,
			"SELECT COALESCE(MAX(position), 0) FROM tasks")
		if err != nil {
			return fmt.Errorf("getting max position: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				title, description, is_completed, position,
				created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, NULL, 1)`,
			task.Title, task.Description, boolToInt(task.IsCompleted),
			maxPosition+1, s.now(),
		)
		if err != nil {
			return fmt.Errorf("inserting task: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading inserted task id: %w", err)
		}

		created, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return created, nil
}

// UpdateTask replaces title, description and completion of an existing task,
// stamps updated_at and bumps the version. Position is left untouched.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	var updated *model.Task
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				title = ?, description = ?, is_completed = ?,
				updated_at = ?, version = version + 1
			WHERE id = ? AND (? = 0 OR version = ?)`,
			task.Title, task.Description, boolToInt(task.IsCompleted),
			s.now(),
			task.ID, task.Version, task.Version,
		)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			var count int
			err := tx.GetContext(ctx, &count,
				"SELECT COUNT(*) FROM tasks WHERE id = ?", task.ID)
			if err != nil {
				return err
			}
			if count == 0 {
				return model.ErrNotFound
			}
			return model.ErrConflict
		}

		updated, err = getTask(ctx, tx, task.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	return updated, nil
}

// DeleteTask removes a task by ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting task %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ReorderTasks sets the position of every listed task. The batch is applied
// only if every id exists; otherwise nothing is written. Only position
// changes, so version and updated_at are left alone and edits opened
// before a reorder still apply.
func (s *SQLiteStore) ReorderTasks(ctx context.Context, tasks []model.Task) error {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In("SELECT id FROM tasks WHERE id IN (?)", ids)
		if err != nil {
			return fmt.Errorf("building id lookup: %w", err)
		}

		var existing []int64
		if err := tx.SelectContext(ctx, &existing, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("looking up tasks: %w", err)
		}
		if len(existing) != len(tasks) {
			return fmt.Errorf("%w: %d of %d found",
				model.ErrUnknownTaskIDs, len(existing), len(tasks))
		}

		stmt, err := tx.PreparexContext(ctx,
			"UPDATE tasks SET position = ? WHERE id = ?")
		if err != nil {
			return fmt.Errorf("preparing reorder statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range tasks {
			if _, err := stmt.ExecContext(ctx, t.Position, t.ID); err != nil {
				return fmt.Errorf("setting position of task %d: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrReorderFailed, err)
	}
	return nil
}

// getTask loads one task through either the pool or an open transaction.
func getTask(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Task, error) {
	var task model.Task
	err := sqlx.GetContext(ctx, q, &task, selectTask+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting task %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return &task, nil
}
