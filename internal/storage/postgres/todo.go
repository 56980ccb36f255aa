package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

const todoColumns = `
id, user_id, title, description, priority, due_date, completed, created_at, updated_at
`

func scanTodo(row pgx.Row) (*models.Todo, error) {
	var todo models.Todo
	var priority *string

	if err := row.Scan(
		&todo.ID,
		&todo.UserID,
		&todo.Title,
		&todo.Description,
		&priority,
		&todo.DueDate,
		&todo.Completed,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if priority != nil {
		p := models.Priority(*priority)
		todo.Priority = &p
	}
	if todo.DueDate != nil {
		due := todo.DueDate.UTC()
		todo.DueDate = &due
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()

	return &todo, nil
}

// SaveTodo создаёт новую задачу и возвращает строку из БД
// (с серверными timestamps).
func (s *Storage) SaveTodo(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	const op = "storage.postgres.SaveTodo"

	query := `
	INSERT INTO todos (id, user_id, title, description, priority, due_date, completed)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING
	` + todoColumns

	var priority *string
	if todo.Priority != nil {
		p := string(*todo.Priority)
		priority = &p
	}

	row := s.db.QueryRow(ctx, query,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Description,
		priority,
		todo.DueDate,
		todo.Completed,
	)

	result, err := scanTodo(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// TodoByID находит задачу по ID.
func (s *Storage) TodoByID(ctx context.Context, id uuid.UUID) (*models.Todo, error) {
	const op = "storage.postgres.TodoByID"

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`

	todo, err := scanTodo(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todo, nil
}

// ListTodos возвращает страницу задач всех пользователей и общее число строк,
// удовлетворяющих фильтрам. Сортировка фиксирована: created_at DESC, id DESC.
func (s *Storage) ListTodos(ctx context.Context, opts storage.ListTodosOptions) ([]models.Todo, int64, error) {
	const op = "storage.postgres.ListTodos"

	limit := opts.Limit
	if limit <= 0 {
		// Защита от нуля/отрицательного значения.
		limit = 1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildTodoFilters(opts)

	countQuery := `SELECT count(*) FROM todos` + where

	var total int64
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	listQuery := `SELECT ` + todoColumns + ` FROM todos` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Todo
	for rows.Next() {
		todo, scanErr := scanTodo(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}
		items = append(items, *todo)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	return items, total, nil
}

// buildTodoFilters собирает WHERE-часть и аргументы под фильтры выборки.
func buildTodoFilters(opts storage.ListTodosOptions) (string, []any) {
	conds := []string{}
	args := make([]any, 0, 3)

	if opts.Priority != nil {
		args = append(args, string(*opts.Priority))
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}

	if opts.Completed != nil {
		args = append(args, *opts.Completed)
		conds = append(conds, fmt.Sprintf("completed = $%d", len(args)))
	}

	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}

	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}

	return where, args
}

// UpdateTodo выполняет частичный апдейт: обновляет только поля,
// указанные непустыми pointer-полями, и всегда сдвигает updated_at = now().
// Ошибки: storage.ErrNotFound при отсутствии записи.
func (s *Storage) UpdateTodo(ctx context.Context, id uuid.UUID, update storage.TodoUpdate) (*models.Todo, error) {
	const op = "storage.postgres.UpdateTodo"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 6)

	if update.Title != nil {
		args = append(args, *update.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if update.Description != nil {
		args = append(args, *update.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if update.Priority != nil {
		args = append(args, string(*update.Priority))
		sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
	}
	if update.DueDate != nil {
		args = append(args, *update.DueDate)
		sets = append(sets, fmt.Sprintf("due_date = $%d", len(args)))
	}
	if update.Completed != nil {
		args = append(args, *update.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}

	args = append(args, id)

	query := `UPDATE todos SET ` + joinSets(sets) +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + todoColumns

	todo, err := scanTodo(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todo, nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// DeleteTodo удаляет задачу.
// Ошибки: storage.ErrNotFound, если строка отсутствует.
func (s *Storage) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteTodo"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// TodoStatsByUser считает агрегаты по задачам одного пользователя
// одним сгруппированным запросом.
func (s *Storage) TodoStatsByUser(ctx context.Context, userID uuid.UUID) (*models.TodoStats, error) {
	const op = "storage.postgres.TodoStatsByUser"

	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE completed),
			count(*) FILTER (WHERE priority = 'LOW'),
			count(*) FILTER (WHERE priority = 'MEDIUM'),
			count(*) FILTER (WHERE priority = 'HIGH')
		FROM todos
		WHERE user_id = $1
	`

	var total, completed, low, medium, high int64
	err := s.db.QueryRow(ctx, query, userID).Scan(&total, &completed, &low, &medium, &high)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TodoStats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
		ByPriority: map[string]int64{
			string(models.PriorityLow):    low,
			string(models.PriorityMedium): medium,
			string(models.PriorityHigh):   high,
		},
	}, nil
}
