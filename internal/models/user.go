package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus — статус учётной записи пользователя.
type UserStatus string

const (
	// StatusActive — активная учётная запись; только с этим статусом
	// пользователь проходит аутентификацию запросов.
	StatusActive UserStatus = "ACTIVE"
	// StatusInactive — учётная запись деактивирована (например, не подтверждена).
	StatusInactive UserStatus = "INACTIVE"
	// StatusSuspended — учётная запись заблокирована администратором.
	StatusSuspended UserStatus = "SUSPENDED"
)

// Valid сообщает, входит ли статус в допустимое множество.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}

	return false
}

// User — модель пользователя в системе.
//
// Username и Email уникальны глобально (уникальные индексы в БД);
// Email опционален, поэтому хранится указателем (NULL в БД).
type User struct {
	ID           uuid.UUID
	Username     string
	Email        *string
	Status       UserStatus
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
