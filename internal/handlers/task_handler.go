package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/services"
)

// TaskEngine is the subset of the engine the task endpoints need.
type TaskEngine interface {
	CreateTask(ctx context.Context, req services.CreateTaskRequest) (*models.Task, error)
	ListTasks(ctx context.Context) []models.Task
	CompleteTask(ctx context.Context, req services.CompleteRequest) (*services.CompletionResult, error)
	History(ctx context.Context, status string) []models.Task
}

// TaskHandler serves /api/tasks endpoints.
type TaskHandler struct {
	Engine    TaskEngine
	Validator *services.Validator
	Logger    *slog.Logger
}

// --- POST /api/tasks ---

// Create queues a task. The response reflects the immediate dispatch attempt,
// so the task may already be assigned.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTaskRequest
	if err := decodeBody(r, h.Validator, services.SchemaCreateTask, &req); err != nil {
		writeError(w, h.Logger, "decode create task request", err)
		return
	}
	task, err := h.Engine.CreateTask(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": task})
}

// --- GET /api/tasks ---

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": h.Engine.ListTasks(r.Context())})
}

// --- POST /api/tasks/complete ---

// Complete records the assigned agent's outcome report.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req services.CompleteRequest
	if err := decodeBody(r, h.Validator, services.SchemaCompleteTask, &req); err != nil {
		writeError(w, h.Logger, "decode complete request", err)
		return
	}
	res, err := h.Engine.CompleteTask(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, "complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- GET /api/tasks/history ---

func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": h.Engine.History(r.Context(), status)})
}
