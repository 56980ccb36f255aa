package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/httperr"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/middleware"
)

type createTodoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type updateTodoRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

// todoResponse — представление задачи в API.
// Description — указатель: для чужих задач в листинге поле зануляется.
type todoResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type listTodosResponse struct {
	Todos      []todoResponse `json:"todos"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func toTodoResponse(t *models.Todo) todoResponse {
	resp := todoResponse{
		ID:        t.ID.String(),
		UserID:    t.UserID.String(),
		Title:     t.Title,
		Completed: t.Completed,
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}

	description := t.Description
	resp.Description = &description

	if t.Priority != nil {
		p := string(*t.Priority)
		resp.Priority = &p
	}

	return resp
}

// redactTodoResponse убирает приватные поля из представления чужой задачи.
func redactTodoResponse(resp todoResponse) todoResponse {
	resp.Description = nil

	return resp
}

// CreateTodo обрабатывает POST /todos.
func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	var req createTodoRequest
	if err := decodeStrict(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")

		return
	}

	priority, err := parsePriority(req.Priority)
	if err != nil {
		badRequest(w, r, "invalid priority")

		return
	}

	todo, err := h.svc.CreateTodo(r.Context(), user.ID, service.CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusCreated, toTodoResponse(todo))
}

// TodoByID обрабатывает GET /todos/{id}.
func (h *Handlers) TodoByID(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	todoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid todo id")

		return
	}

	todo, err := h.svc.TodoByID(r.Context(), user.ID, todoID)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, toTodoResponse(todo))
}

// ListTodos обрабатывает GET /todos: страница задач всех пользователей,
// чужие задачи отдаются в редуцированном виде.
func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	input, err := parseListInput(r)
	if err != nil {
		badRequest(w, r, "invalid query parameters")

		return
	}

	result, err := h.svc.ListTodos(r.Context(), input)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	todos := make([]todoResponse, 0, len(result.Todos))
	for i := range result.Todos {
		todo := &result.Todos[i]
		resp := toTodoResponse(todo)

		if service.Decide(service.OpList, user.ID, todo.UserID) == service.DecisionRedacted {
			resp = redactTodoResponse(resp)
		}

		todos = append(todos, resp)
	}

	writeJSON(w, r, http.StatusOK, listTodosResponse{
		Todos:      todos,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

// UpdateTodo обрабатывает PATCH /todos/{id}.
func (h *Handlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	todoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid todo id")

		return
	}

	var req updateTodoRequest
	if err := decodeStrict(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")

		return
	}

	priority, err := parsePriority(req.Priority)
	if err != nil {
		badRequest(w, r, "invalid priority")

		return
	}

	todo, err := h.svc.UpdateTodo(r.Context(), user.ID, todoID, service.UpdateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	})
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, toTodoResponse(todo))
}

// DeleteTodo обрабатывает DELETE /todos/{id}.
func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	todoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid todo id")

		return
	}

	if err := h.svc.DeleteTodo(r.Context(), user.ID, todoID); err != nil {
		httperr.FromError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTodo обрабатывает PATCH /todos/{id}/complete:
// инвертирует признак completed.
func (h *Handlers) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	todoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, r, "invalid todo id")

		return
	}

	todo, err := h.svc.ToggleTodo(r.Context(), user.ID, todoID)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, toTodoResponse(todo))
}

// TodoStats обрабатывает GET /todos/stats — агрегаты по задачам субъекта.
func (h *Handlers) TodoStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	stats, err := h.svc.TodoStats(r.Context(), user.ID)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, struct {
		Total      int64            `json:"total"`
		Completed  int64            `json:"completed"`
		Pending    int64            `json:"pending"`
		ByPriority map[string]int64 `json:"by_priority"`
	}{
		Total:      stats.Total,
		Completed:  stats.Completed,
		Pending:    stats.Pending,
		ByPriority: stats.ByPriority,
	})
}

func parsePriority(s *string) (*models.Priority, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	p := models.Priority(*s)
	if !p.Valid() {
		return nil, service.ErrInvalidArgument
	}

	return &p, nil
}

func parseListInput(r *http.Request) (service.ListTodosInput, error) {
	var input service.ListTodosInput

	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return input, err
		}

		input.Page = page
	}

	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return input, err
		}

		input.PageSize = size
	}

	if raw := q.Get("priority"); raw != "" {
		p, err := parsePriority(&raw)
		if err != nil {
			return input, err
		}

		input.Priority = p
	}

	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return input, err
		}

		input.Completed = &completed
	}

	input.Search = q.Get("search")

	return input, nil
}
