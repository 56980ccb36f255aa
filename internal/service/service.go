// service содержит бизнес-логику todo-api:
// регистрацию/аутентификацию пользователей, выпуск/проверку токенов,
// проверку владения задачами и работу с хранилищем через интерфейсы
// из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются типизированными и далее маппятся
//     транспортом на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-todo-api/internal/cache"
	"github.com/pribylovaa/go-todo-api/internal/config"
	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Формы ошибки намеренно неразличимы (анти-enumeration). Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи
	// или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/mass revoke) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUsernameTaken — username уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// refresh-токен (крайне редкие коллизии хэша в БД). Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidArgument — некорректный вход на границе флоу
	// (пустой title, битые параметры пагинации и т.п.). Транспорт: HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound — пользователь/задача не найдены. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner — аутентифицированный субъект не владеет задачей
	// на owner-only операции. Транспорт: HTTP 403.
	ErrNotOwner = errors.New("not the owner")

	// ErrAccountNotActive — статус учётной записи не ACTIVE.
	// Конкретный статус несёт AccountNotActiveError. Транспорт: HTTP 400
	// (клиентская ошибка, намеренно отличная от 401).
	ErrAccountNotActive = errors.New("account is not active")
)

// AccountNotActiveError несёт фактический статус учётной записи
// (INACTIVE/SUSPENDED). Совместима с errors.Is(err, ErrAccountNotActive).
type AccountNotActiveError struct {
	Status models.UserStatus
}

func (e *AccountNotActiveError) Error() string {
	return fmt.Sprintf("%s account", strings.ToLower(string(e.Status)))
}

func (e *AccountNotActiveError) Is(target error) bool {
	return target == ErrAccountNotActive
}

// Service описывает бизнес-логику todo-api.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
