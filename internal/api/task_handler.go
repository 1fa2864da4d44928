package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasklane-api/internal/api/middleware"
	"github.com/phrazzld/tasklane-api/internal/api/shared"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/phrazzld/tasklane-api/internal/service"
)

// TaskHandler serves the task routes.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// Routes mounts the task routes on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/", h.ListTasks)
	r.Get("/query", h.QueryTasks)
	r.Get("/counter", h.GetCounters)
	r.Get("/export", h.ExportTasks)
	r.Post("/make-cover", h.MakeCover)
}

// ListTasks handles GET /api/project/task?projectId=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListTasks(r.Context(), r.URL.Query().Get(paramProjectID))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithData(w, r, nonNilTasks(tasks), nil)
}

// QueryTasks handles GET /api/project/task/query
func (h *TaskHandler) QueryTasks(w http.ResponseWriter, r *http.Request) {
	q, err := parseTaskQuery(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if q.Filter.ProjectID == "" {
		HandleAPIError(w, r, domain.NewValidationError(paramProjectID, "is required", domain.ErrProjectIDEmpty), "")
		return
	}

	result, err := h.taskService.QueryTasks(r.Context(), service.TaskQuery{
		ProjectID: q.Filter.ProjectID,
		Params:    q.Params,
		Filter:    q.Filter,
		Counter:   q.Counter,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to query tasks")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("task query served",
		slog.String("project_id", q.Filter.ProjectID),
		slog.Bool("cached", result.Cached),
		slog.Int("items", len(result.Items)))

	shared.RespondWithData(w, r, nonNilTasks(result.Items), result.Total)
}

// GetCounters handles GET /api/project/task/counter?projectIds=
func (h *TaskHandler) GetCounters(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	q, err := parseTaskQuery(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	results := h.taskService.CountOpenTasks(r.Context(), userID, q.Filter.ProjectIDs)
	shared.RespondWithData(w, r, newCounterItems(results), nil)
}

// ExportTasks handles GET /api/project/task/export?projectIds=
func (h *TaskHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	q, err := parseTaskQuery(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if len(q.Filter.ProjectIDs) == 0 {
		HandleAPIError(w, r, domain.NewValidationError(paramProjectIDs, "is required", domain.ErrProjectIDEmpty), "")
		return
	}

	result, err := h.taskService.ExportTasks(r.Context(), userID, q.Filter, q.Counter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export tasks")
		return
	}

	items := result.Items
	if items == nil {
		items = []domain.TaskWithStatus{}
	}
	shared.RespondWithData(w, r, items, result.Total)
}

// MakeCover handles POST /api/project/task/make-cover
func (h *TaskHandler) MakeCover(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req MakeCoverRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	task, err := h.taskService.SetCover(r.Context(), userID, req.TaskID, req.ProjectID, req.URL)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to set task cover")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("task cover updated",
		slog.String("task_id", task.ID),
		slog.String("project_id", req.ProjectID),
		slog.String("user_id", userID))

	shared.RespondWithData(w, r, task, nil)
}

func nonNilTasks(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}
