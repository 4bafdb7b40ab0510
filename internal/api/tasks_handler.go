package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rmoldovan/taskgate/internal/auth"
	"github.com/rmoldovan/taskgate/internal/metrics"
	"github.com/rmoldovan/taskgate/internal/policy"
	"github.com/rmoldovan/taskgate/internal/task"
	"github.com/rmoldovan/taskgate/internal/user"
)

// tasksHandler groups the task HTTP handlers.
type tasksHandler struct {
	service *task.Service
	metrics *metrics.Metrics
}

func newTasksHandler(service *task.Service, m *metrics.Metrics) *tasksHandler {
	return &tasksHandler{service: service, metrics: m}
}

// userDTO is the response shape for assignable users; it omits the
// password hash and timestamps.
type userDTO struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// List handles GET /api/tasks.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListForCaller(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeTaskError(w, "list", err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /api/tasks/{id}.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.writeTaskError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Create handles POST /api/tasks.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AssignTo    string `json:"assign_to"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	t, err := h.service.Create(r.Context(), auth.IdentityFromContext(r.Context()),
		req.Title, req.Description, req.AssignTo)
	if err != nil {
		// An unknown assignee is a client error, not a denial.
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "user not found: "+req.AssignTo)
			return
		}
		h.writeTaskError(w, "create", err)
		return
	}

	if h.metrics != nil {
		h.metrics.TasksCreatedTotal.Inc()
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateCompletion handles PATCH /api/tasks/{id}/complete.
func (h *tasksHandler) UpdateCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	t, err := h.service.SetCompletion(r.Context(), auth.IdentityFromContext(r.Context()), id, req.Completed)
	if err != nil {
		h.writeTaskError(w, "complete", err)
		return
	}

	if h.metrics != nil && req.Completed {
		h.metrics.TasksCompletedTotal.Inc()
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/tasks/{id}.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	t, err := h.service.UpdateDetails(r.Context(), auth.IdentityFromContext(r.Context()), id, req.Title, req.Description)
	if err != nil {
		h.writeTaskError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		h.writeTaskError(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// AssignableUsers handles GET /api/tasks/assignable-users.
func (h *tasksHandler) AssignableUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.AssignableUsers(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeTaskError(w, "assignable-users", err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, userDTO{ID: u.ID, Username: u.Username, Roles: u.Roles})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Stats handles GET /api/tasks/stats.
func (h *tasksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.StatsForCaller(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeTaskError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// taskID parses the {id} route parameter, writing a 400 on garbage.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

// writeTaskError maps service errors to transport responses. Denials become
// 403 with the policy's reason. A missing task on a protected route also
// becomes 403: not-found and forbidden are conflated on purpose so the
// response shape does not depend on the caller's relationship to the record.
func (h *tasksHandler) writeTaskError(w http.ResponseWriter, operation string, err error) {
	switch {
	case policy.IsDenied(err):
		if h.metrics != nil {
			h.metrics.AuthzDenialsTotal.WithLabelValues(operation).Inc()
		}
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusForbidden, "task not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
