package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — данные refresh-токена для управления сессиями.
//
// В БД хранится только SHA-256 хэш случайного секрета (TokenHash);
// сам секрет отдаётся клиенту один раз и нигде не сохраняется.
// Токен считается активным, пока RevokedAt == nil и срок не истёк.
type RefreshToken struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active сообщает, действует ли токен в момент now:
// не отозван и не просрочен.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
