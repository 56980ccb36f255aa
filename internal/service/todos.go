package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

const (
	maxTitleLen = 200

	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateTodoInput — входные данные создания задачи.
type CreateTodoInput struct {
	Title       string
	Description string
	Priority    *models.Priority
	DueDate     *time.Time
}

// UpdateTodoInput — частичное обновление: nil-поля не трогаются.
type UpdateTodoInput struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	DueDate     *time.Time
	Completed   *bool
}

// ListTodosInput — параметры листинга задач.
type ListTodosInput struct {
	// Page нумеруется с 1; PageSize в диапазоне 1..100 (0 — значение по умолчанию).
	Page     int
	PageSize int

	Priority  *models.Priority
	Completed *bool
	Search    string
}

// ListTodosResult — страница задач с метаданными пагинации.
type ListTodosResult struct {
	Todos      []models.Todo
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// CreateTodo создаёт задачу от имени субъекта.
func (s *Service) CreateTodo(ctx context.Context, subject uuid.UUID, input CreateTodoInput) (*models.Todo, error) {
	const op = "service.todos.CreateTodo"

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if input.Priority != nil && !input.Priority.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	todo := &models.Todo{
		ID:          uuid.New(),
		UserID:      subject,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		DueDate:     input.DueDate,
	}

	created, err := s.storage.SaveTodo(ctx, todo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("todo created",
		"todo_id", created.ID.String(),
		"user_id", subject.String(),
	)

	return created, nil
}

// TodoByID возвращает задачу по ID с проверкой владения:
// чужая задача даёт ErrNotOwner, несуществующая — ErrNotFound.
func (s *Service) TodoByID(ctx context.Context, subject, todoID uuid.UUID) (*models.Todo, error) {
	const op = "service.todos.TodoByID"

	todo, err := s.fetchOwned(ctx, subject, todoID, OpGet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todo, nil
}

// ListTodos возвращает страницу задач всех пользователей.
// Редуцирование чужих задач выполняет транспорт по решению Decide(OpList, ...).
func (s *Service) ListTodos(ctx context.Context, input ListTodosInput) (*ListTodosResult, error) {
	const op = "service.todos.ListTodos"

	page := input.Page
	if page == 0 {
		page = 1
	}

	pageSize := input.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if input.Priority != nil && !input.Priority.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	opts := storage.ListTodosOptions{
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		Priority:  input.Priority,
		Completed: input.Completed,
		Search:    strings.TrimSpace(input.Search),
	}

	todos, total, err := s.storage.ListTodos(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &ListTodosResult{
		Todos:      todos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateTodo выполняет частичное обновление задачи владельца.
func (s *Service) UpdateTodo(ctx context.Context, subject, todoID uuid.UUID, input UpdateTodoInput) (*models.Todo, error) {
	const op = "service.todos.UpdateTodo"

	if _, err := s.fetchOwned(ctx, subject, todoID, OpUpdate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	update := storage.TodoUpdate{
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		Completed:   input.Completed,
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxTitleLen {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		update.Title = &title
	}

	if input.Priority != nil && !input.Priority.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	updated, err := s.storage.UpdateTodo(ctx, todoID, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// DeleteTodo удаляет задачу владельца.
func (s *Service) DeleteTodo(ctx context.Context, subject, todoID uuid.UUID) error {
	const op = "service.todos.DeleteTodo"

	if _, err := s.fetchOwned(ctx, subject, todoID, OpDelete); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteTodo(ctx, todoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("todo deleted",
		"todo_id", todoID.String(),
		"user_id", subject.String(),
	)

	return nil
}

// ToggleTodo инвертирует признак completed задачи владельца.
func (s *Service) ToggleTodo(ctx context.Context, subject, todoID uuid.UUID) (*models.Todo, error) {
	const op = "service.todos.ToggleTodo"

	todo, err := s.fetchOwned(ctx, subject, todoID, OpToggle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	completed := !todo.Completed

	updated, err := s.storage.UpdateTodo(ctx, todoID, storage.TodoUpdate{Completed: &completed})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// TodoStats считает агрегаты по задачам субъекта.
func (s *Service) TodoStats(ctx context.Context, subject uuid.UUID) (*models.TodoStats, error) {
	const op = "service.todos.TodoStats"

	stats, err := s.storage.TodoStatsByUser(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

// fetchOwned загружает задачу и проверяет право субъекта на операцию.
func (s *Service) fetchOwned(ctx context.Context, subject, todoID uuid.UUID, operation Operation) (*models.Todo, error) {
	todo, err := s.storage.TodoByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if Decide(operation, subject, todo.UserID) != DecisionFull {
		return nil, ErrNotOwner
	}

	return todo, nil
}
