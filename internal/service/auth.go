package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/pkg/redact"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 8
)

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Username string
	Email    *string
	Password string
}

// Register создаёт нового пользователя и сразу выпускает пару токенов.
//
// Валидация: username 3..30 символов из [a-z0-9_] без учёта регистра,
// e-mail (если задан) — по RFC 5322, пароль не короче 8 символов.
// Конфликты уникальности различимы: ErrUsernameTaken / ErrEmailTaken.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Register"

	username := strings.TrimSpace(input.Username)
	if err := validateUsername(username); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	var email *string
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		normalized := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(normalized); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
		}

		email = &normalized
	}

	if err := validatePassword(input.Password); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	// Предварительная проверка username даёт различимую ошибку до вставки;
	// гонку закрывает уникальный индекс в БД.
	if _, err := s.storage.UserByUsername(ctx, username); err == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		Status:       models.StatusActive,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Username проверен выше, значит сработал индекс по e-mail.
			return nil, nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)

	return user, pair, nil
}

// Login аутентифицирует пользователя по username/password и выпускает
// пару токенов. "Пользователь не найден" и "неверный пароль" намеренно
// неразличимы — обе формы дают ErrInvalidCredentials.
// Неактивная учётная запись даёт AccountNotActiveError.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if user.Status != models.StatusActive {
		return nil, nil, fmt.Errorf("%s: %w", op, &AccountNotActiveError{Status: user.Status})
	}

	pair, err := s.issueTokenPair(ctx, user, time.Now().UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user logged in", "user_id", user.ID.String())

	return user, pair, nil
}

// Refresh обменивает действующий refresh-токен на новый access-токен.
// Refresh-токен не ротируется и остаётся действительным до истечения
// или отзыва. Статус учётной записи перепроверяется при каждом обмене.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	const op = "service.auth.Refresh"

	now := time.Now().UTC()

	userID, err := s.validateRefreshToken(ctx, refreshToken, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if user.Status != models.StatusActive {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, &AccountNotActiveError{Status: user.Status})
	}

	accessToken, expiresAt, err := s.generateAccessToken(user, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return accessToken, expiresAt, nil
}

// RevokeToken отзывает refresh-токен (logout). Операция идемпотентна:
// повторный отзыв и отзыв неизвестного токена не являются ошибкой,
// пустая строка — no-op.
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	const op = "service.auth.RevokeToken"

	if refreshToken == "" {
		return nil
	}

	hash := hashRefreshSecret(refreshToken)

	revoked, err := s.storage.RevokeRefreshToken(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
			log.From(ctx).Warn("refresh cache revoke failed", "err", err)
		}
	}

	if revoked {
		log.From(ctx).Info("refresh token revoked", "token", redact.Token())
	}

	return nil
}

// RevokeAllForUser отзывает все активные refresh-токены пользователя
// (например, при смене пароля или блокировке учётной записи).
func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "service.auth.RevokeAllForUser"

	hashes, err := s.storage.RevokeAllUserTokens(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		for _, hash := range hashes {
			if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
				log.From(ctx).Warn("refresh cache revoke failed", "err", err)
			}
		}
	}

	log.From(ctx).Info("all user tokens revoked",
		"user_id", userID.String(),
		"count", len(hashes),
	)

	return len(hashes), nil
}

// CurrentUser резолвит access-токен в пользователя.
// Токен валиден, но учётная запись не ACTIVE — AccountNotActiveError;
// пользователь исчез из БД после выпуска токена — ErrNotFound.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.auth.CurrentUser"

	userID, err := s.validateAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Status != models.StatusActive {
		return nil, fmt.Errorf("%s: %w", op, &AccountNotActiveError{Status: user.Status})
	}

	return user, nil
}

// issueTokenPair выпускает access- и refresh-токены одним вызовом.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, now time.Time) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	accessToken, expiresAt, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: expiresAt,
	}, nil
}

func validateUsername(username string) error {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return ErrInvalidArgument
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return ErrInvalidArgument
		}
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}

	return nil
}
