package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

// Интеграционные тесты пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют миграции из ./migrations;
// - проверяют happy-path, уникальность (username/email CITEXT) и сценарии
//   отсутствия записей (storage.ErrNotFound), а также ошибки контекста.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile определяет корень репозитория относительно файла тестов,
// чтобы найти ./migrations независимо от рабочего каталога.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres поднимает временный PostgreSQL, применяет все миграции
// и возвращает инициализированное хранилище с функцией очистки.
// Без GO_TEST_INTEGRATION=1 тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	for _, m := range []string{"1_init_users.up.sql", "2_init_refresh_tokens.up.sql", "3_init_todos.up.sql"} {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, "apply migration %s", m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// mustSaveUser — вспомогательная вставка пользователя для тестов других репозиториев.
func mustSaveUser(t *testing.T, st *Storage, username string) *models.User {
	t.Helper()

	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Status:       models.StatusActive,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))

	return u
}

// TestIntegration_SaveUser_And_ByUsername_And_ByID_OK — happy-path:
// сохранение пользователя и поиск по username (CITEXT, регистронезависимо) и по ID.
func TestIntegration_SaveUser_And_ByUsername_And_ByID_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	email := "user@example.com"
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Username:     "Alice",
		Email:        &email,
		Status:       models.StatusActive,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	require.NoError(t, st.SaveUser(context.Background(), u))

	gotByUsername, err := st.UserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, gotByUsername.ID)
	require.Equal(t, models.StatusActive, gotByUsername.Status)
	require.NotNil(t, gotByUsername.Email)
	require.Equal(t, email, *gotByUsername.Email)
	require.WithinDuration(t, u.CreatedAt, gotByUsername.CreatedAt, time.Second)

	gotByID, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, gotByID.ID)
}

// TestIntegration_SaveUser_UniqueUsername_CaseInsensitive_Violation — конфликт
// уникальности username при различии только в регистре: storage.ErrAlreadyExists.
func TestIntegration_SaveUser_UniqueUsername_CaseInsensitive_Violation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	mustSaveUser(t, st, "alice")

	now := time.Now().UTC()
	b := &models.User{
		ID:           uuid.New(),
		Username:     "ALICE", // тот же username, другой регистр
		Status:       models.StatusActive,
		PasswordHash: "h2",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := st.SaveUser(context.Background(), b)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_SaveUser_UniqueEmail_Violation — конфликт уникальности e-mail.
func TestIntegration_SaveUser_UniqueEmail_Violation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	email := "shared@example.com"
	now := time.Now().UTC()

	a := &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        &email,
		Status:       models.StatusActive,
		PasswordHash: "h1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), a))

	b := &models.User{
		ID:           uuid.New(),
		Username:     "bob",
		Email:        &email,
		Status:       models.StatusActive,
		PasswordHash: "h2",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := st.SaveUser(context.Background(), b)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_SaveUser_NilEmail_NoConflict — NULL e-mail не конфликтует
// между несколькими пользователями.
func TestIntegration_SaveUser_NilEmail_NoConflict(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	mustSaveUser(t, st, "alice")
	mustSaveUser(t, st, "bob")
}

// TestIntegration_UserByUsername_NotFound — поиск отсутствующего username.
func TestIntegration_UserByUsername_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.UserByUsername(context.Background(), "absent")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_UserByID_NotFound — поиск отсутствующего ID.
func TestIntegration_UserByID_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.UserByID(context.Background(), uuid.New())
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_UserQueries_ContextCanceled — отменённый контекст должен
// «просочиться» в ошибки чтения как context.Canceled.
func TestIntegration_UserQueries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // отменяем заранее

	_, err := st.UserByUsername(ctx, "alice")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.UserByID(ctx, uuid.New())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
