package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-todo-api/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/задача).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по username (без учёта регистра).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен в БД.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken пытается отозвать refresh-токен, если он ещё не отозван.
	// Возвращает:
	//   (true, nil)  — токен был активен и отозван сейчас;
	//   (false, nil) — токен существует, но уже был отозван;
	//   (false, ErrNotFound) — токен не найден.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)
	// RevokeAllUserTokens отзывает все ещё не отозванные токены пользователя
	// и возвращает хэши отозванных токенов.
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error)
	// DeleteExpiredTokens жёстко удаляет токены, срок которых истёк раньше
	// olderThan, и возвращает число удалённых строк.
	DeleteExpiredTokens(ctx context.Context, olderThan time.Time) (int64, error)
}

// ListTodosOptions — параметры выборки списка задач.
type ListTodosOptions struct {
	// Limit/Offset — страничная выборка; Limit > 0.
	Limit  int
	Offset int
	// Priority/Completed — опциональные фильтры.
	Priority  *models.Priority
	Completed *bool
	// Search — подстрока для регистронезависимого поиска по title/description.
	Search string
}

// TodoUpdate — частичное обновление задачи: обновляются только поля
// с ненулевыми указателями; updated_at сдвигается всегда.
type TodoUpdate struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	DueDate     *time.Time
	Completed   *bool
}

// TodoStorage выполняет операции над задачами.
type TodoStorage interface {
	// SaveTodo создаёт новую задачу.
	SaveTodo(ctx context.Context, todo *models.Todo) (*models.Todo, error)
	// TodoByID находит задачу по ID.
	TodoByID(ctx context.Context, id uuid.UUID) (*models.Todo, error)
	// ListTodos возвращает страницу задач всех пользователей и общее число
	// строк, удовлетворяющих фильтрам.
	ListTodos(ctx context.Context, opts ListTodosOptions) ([]models.Todo, int64, error)
	// UpdateTodo выполняет частичное обновление и возвращает свежую строку.
	UpdateTodo(ctx context.Context, id uuid.UUID, update TodoUpdate) (*models.Todo, error)
	// DeleteTodo удаляет задачу.
	DeleteTodo(ctx context.Context, id uuid.UUID) error
	// TodoStatsByUser считает агрегаты по задачам одного пользователя.
	TodoStatsByUser(ctx context.Context, userID uuid.UUID) (*models.TodoStats, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	TodoStorage
	Close()
}
