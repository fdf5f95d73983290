package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskapi/internal/client"
	"github.com/nhle/taskapi/internal/model"
)

const requestTimeout = 10 * time.Second

// tasksLoadedMsg carries a list response for the filter it was requested
// with, so answers for an abandoned filter can be dropped.
type tasksLoadedMsg struct {
	tasks    []model.Task
	filter   string
	selectID int64
	err      error
}

// taskChangedMsg is sent after any write. selectID keeps the cursor on the
// task that was touched.
type taskChangedMsg struct {
	selectID int64
	notice   string
	err      error
}

func (m Model) loadTasks(selectID int64) tea.Cmd {
	c, filter := m.client, m.taskList.Filter()
	if c == nil {
		return nil
	}
	if m.poller != nil {
		m.poller.SetFilter(filter)
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tasks, err := c.ListTasks(ctx, filter)
		return tasksLoadedMsg{tasks: tasks, filter: filter, selectID: selectID, err: err}
	}
}

func (m Model) createTask(t model.Task) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		created, err := c.CreateTask(ctx, t)
		if err != nil {
			return taskChangedMsg{err: err}
		}
		return taskChangedMsg{selectID: created.ID, notice: "added " + created.Title}
	}
}

// updateTask sends t with the version it was listed with, so a concurrent
// edit elsewhere surfaces as a conflict instead of being overwritten.
func (m Model) updateTask(t model.Task) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := c.UpdateTask(ctx, t); err != nil {
			return taskChangedMsg{err: err}
		}
		return taskChangedMsg{selectID: t.ID, notice: "saved " + t.Title}
	}
}

func (m Model) deleteTask(id int64) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := c.DeleteTask(ctx, id); err != nil {
			return taskChangedMsg{err: err}
		}
		return taskChangedMsg{notice: "task deleted"}
	}
}

func (m Model) reorder(tasks []model.Task, selectID int64) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := c.ReorderTasks(ctx, tasks); err != nil {
			return taskChangedMsg{err: err}
		}
		return taskChangedMsg{selectID: selectID}
	}
}

// handleError shows err in the status bar and decides how to recover.
func (m *Model) handleError(err error) tea.Cmd {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		m.stopPolling()
		m.client = nil
		return m.showLogin(m.username, "session rejected, sign in again")
	case errors.Is(err, model.ErrConflict):
		m.errMsg = "task was changed elsewhere; list reloaded"
		return m.loadTasks(0)
	case errors.Is(err, model.ErrNotFound):
		m.errMsg = "task no longer exists; list reloaded"
		return m.loadTasks(0)
	default:
		m.errMsg = err.Error()
		return nil
	}
}
