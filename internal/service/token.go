package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-todo-api/internal/cache"
	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

// refreshSecretLen — длина случайного секрета refresh-токена в байтах
// до base64url-кодирования.
const refreshSecretLen = 32

// maxRefreshAttempts — число попыток пересоздать refresh-токен при
// коллизии уникального индекса по token_hash.
const maxRefreshAttempts = 5

// accessClaims — полезная нагрузка access-токена.
// sub несёт ID пользователя, type отличает access от прочих токенов.
type accessClaims struct {
	Username  string `json:"username,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// generateAccessToken выпускает подписанный JWT для пользователя.
// Возвращает компактную строку токена и момент его истечения.
func (s *Service) generateAccessToken(user *models.User, now time.Time) (string, time.Time, error) {
	const op = "service.token.generateAccessToken"

	method := jwt.GetSigningMethod(s.cfg.Algorithm)
	if method == nil {
		return "", time.Time{}, fmt.Errorf("%s: unknown signing algorithm %q", op, s.cfg.Algorithm)
	}

	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := accessClaims{
		Username:  user.Username,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(method, claims)

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// validateAccessToken проверяет подпись и срок действия access-токена
// и возвращает ID пользователя из claim sub.
// Просрочка и битая подпись различаются: ErrTokenExpired vs ErrInvalidToken.
// Leeway не используется: истёкший токен отклоняется сразу.
func (s *Service) validateAccessToken(tokenString string) (uuid.UUID, error) {
	const op = "service.token.validateAccessToken"

	var claims accessClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{s.cfg.Algorithm}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !token.Valid || claims.TokenType != "access" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return userID, nil
}

// generateRefreshToken выпускает opaque refresh-токен: 32 случайных байта
// в base64url отдаются клиенту, в БД сохраняется только SHA-256 хэш.
// При коллизии уникального индекса секрет генерируется заново,
// после maxRefreshAttempts попыток возвращается ErrRefreshTokenCollision.
func (s *Service) generateRefreshToken(ctx context.Context, userID uuid.UUID, now time.Time) (string, error) {
	const op = "service.token.generateRefreshToken"

	expiresAt := now.Add(s.cfg.RefreshTokenTTL)

	for attempt := 0; attempt < maxRefreshAttempts; attempt++ {
		secret := make([]byte, refreshSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		plaintext := base64.RawURLEncoding.EncodeToString(secret)
		hash := hashRefreshSecret(plaintext)

		record := &models.RefreshToken{
			ID:        uuid.New(),
			TokenHash: hash,
			UserID:    userID,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.storage.SaveRefreshToken(ctx, record); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}

			return "", fmt.Errorf("%s: %w", op, err)
		}

		// Кэш best-effort: промах не критичен, источником истины остаётся БД.
		if s.rcache != nil {
			entry := &cache.RefreshEntry{
				UserID:    userID,
				Revoked:   false,
				ExpiresAt: expiresAt,
			}

			if err := s.rcache.Set(ctx, hash, entry, s.cfg.RefreshTokenTTL); err != nil {
				log.From(ctx).Warn("refresh cache set failed", "err", err)
			}
		}

		return plaintext, nil
	}

	return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// hashRefreshSecret возвращает base64url(SHA-256(plaintext)).
// Именно эта строка хранится в БД и кэше вместо самого секрета.
func hashRefreshSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// validateRefreshToken проверяет opaque refresh-токен и возвращает ID владельца.
// Сначала опрашивается кэш (если сконфигурирован), при промахе — БД с
// дозаполнением кэша. Отзыв и просрочка различимы для вызывающего кода.
func (s *Service) validateRefreshToken(ctx context.Context, plaintext string, now time.Time) (uuid.UUID, error) {
	const op = "service.token.validateRefreshToken"

	if plaintext == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	hash := hashRefreshSecret(plaintext)

	if s.rcache != nil {
		entry, ok, err := s.rcache.Get(ctx, hash)
		if err != nil {
			log.From(ctx).Warn("refresh cache get failed", "err", err)
		} else if ok {
			switch {
			case entry.Revoked:
				return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
			case !entry.ExpiresAt.After(now):
				return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
			default:
				return entry.UserID, nil
			}
		}
	}

	record, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if record.RevokedAt != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if !record.ExpiresAt.After(now) {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	if s.rcache != nil {
		entry := &cache.RefreshEntry{
			UserID:    record.UserID,
			Revoked:   false,
			ExpiresAt: record.ExpiresAt,
		}

		if err := s.rcache.Set(ctx, hash, entry, record.ExpiresAt.Sub(now)); err != nil {
			log.From(ctx).Warn("refresh cache refill failed", "err", err)
		}
	}

	return record.UserID, nil
}
