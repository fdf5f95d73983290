// Package api exposes the task service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nhle/taskapi/internal/logger"
	"github.com/nhle/taskapi/internal/model"
)

// TaskService is what the handler needs from the service layer.
type TaskService interface {
	GetAll(ctx context.Context, status string) ([]model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Add(ctx context.Context, task model.Task) (*model.Task, error)
	Update(ctx context.Context, id int64, task model.Task) (*model.Task, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, tasks []model.Task) error
}

// TaskHandler serves the task routes.
type TaskHandler struct {
	service TaskService
}

// NewTaskHandler returns a handler backed by service.
func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// RegisterRoutes mounts the task routes on mux under prefix ("" or "/api").
func (h *TaskHandler) RegisterRoutes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix+"/tasks", h.getTasks)
	mux.HandleFunc("POST "+prefix+"/tasks", h.createTask)
	mux.HandleFunc("POST "+prefix+"/tasks/reorder", h.reorderTasks)
	mux.HandleFunc("GET "+prefix+"/tasks/{id}", h.getTaskByID)
	mux.HandleFunc("PUT "+prefix+"/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE "+prefix+"/tasks/{id}", h.deleteTask)
}

func (h *TaskHandler) getTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")
	status := r.URL.Query().Get("status")

	tasks, err := h.service.GetAll(r.Context(), status)
	if err != nil {
		log.Error("handler: error getting tasks", "error", err)
		WriteError(w, http.StatusInternalServerError, "error getting tasks")
		return
	}
	log.Info("handler: tasks retrieved", "count", len(tasks), "status", status)
	if tasks == nil {
		tasks = []model.Task{}
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) getTaskByID(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "getting task", err)
		return
	}
	log.Info("handler: task retrieved", "id", t.ID)
	WriteJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")

	var t model.Task
	if err := decodeJSON(w, r, &t); err != nil {
		log.Debug("handler: error decoding request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Add(r.Context(), t)
	if err != nil {
		h.fail(w, r, "creating task", err)
		return
	}
	log.Info("handler: task created", "id", created.ID)
	w.Header().Set("Location", fmt.Sprintf("%s/%d", tasksPath(r), created.ID))
	WriteJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var t model.Task
	if err := decodeJSON(w, r, &t); err != nil {
		log.Debug("handler: error decoding request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), id, t)
	if errors.Is(err, model.ErrValidation) {
		// A rejected update is reported like a missing target.
		log.Debug("handler: update rejected", "id", id, "error", err)
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.fail(w, r, "updating task", err)
		return
	}
	log.Info("handler: task updated", "id", updated.ID, "version", updated.Version)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "deleting task", err)
		return
	}
	log.Info("handler: task deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) reorderTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("where", "handler")

	var tasks []model.Task
	if err := decodeJSON(w, r, &tasks); err != nil {
		log.Debug("handler: error decoding request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Reorder(r.Context(), tasks); err != nil {
		h.fail(w, r, "reordering tasks", err)
		return
	}
	log.Info("handler: tasks reordered", "count", len(tasks))
	WriteJSON(w, http.StatusOK, map[string]int{"reordered": len(tasks)})
}

// fail maps a service error onto a status code and writes it.
func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	log := logger.FromContext(r.Context()).With("where", "handler")
	status := statusFor(err)

	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusNotFound:
		msg = model.ErrNotFound.Error()
	case http.StatusConflict:
		msg = model.ErrConflict.Error()
	default:
		msg = "error " + action
		if errors.Is(err, model.ErrUnknownTaskIDs) {
			msg = model.ErrUnknownTaskIDs.Error()
		}
		log.Error("handler: error "+action, "error", err)
		WriteError(w, status, msg)
		return
	}
	log.Debug("handler: rejected "+action, "status", status, "error", err)
	WriteError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid task ID")
		return 0, false
	}
	return id, true
}

// tasksPath returns the collection path the request came in on, keeping an
// /api prefix when present.
func tasksPath(r *http.Request) string {
	p := r.URL.Path
	if len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
