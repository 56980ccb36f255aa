// httperr — единый формат ошибок публичного HTTP API и маппинг
// ошибок бизнес-логики на HTTP-статусы.
//
// Формат конверта:
//
//	{"error": {"code": "...", "message": "...", "request_id": "..."}}
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/middleware"
)

// Машиночитаемые коды ошибок API.
const (
	CodeInvalidArgument  = "invalid_argument"
	CodeUnauthenticated  = "unauthenticated"
	CodePermissionDenied = "permission_denied"
	CodeNotFound         = "not_found"
	CodeAlreadyExists    = "already_exists"
	CodeAccountNotActive = "account_not_active"
	CodeInternal         = "internal"
)

type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Write пишет конверт ошибки с заданным статусом и кодом.
func Write(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := envelope{Error: body{
		Code:      code,
		Message:   message,
		RequestID: middleware.RequestIDFrom(r.Context()),
	}}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.From(r.Context()).Error("failed to encode error response", "err", err)
	}
}

// FromError транслирует ошибку бизнес-логики в HTTP-ответ.
// Неопознанные ошибки дают 500 с нейтральным сообщением —
// внутренние детали наружу не утекают.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var notActive *service.AccountNotActiveError

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		Write(w, r, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
	case errors.As(err, &notActive):
		Write(w, r, http.StatusBadRequest, CodeAccountNotActive, notActive.Error())
	case errors.Is(err, service.ErrNotOwner):
		Write(w, r, http.StatusForbidden, CodePermissionDenied, "access denied")
	case errors.Is(err, service.ErrNotFound):
		Write(w, r, http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, service.ErrUsernameTaken):
		Write(w, r, http.StatusConflict, CodeAlreadyExists, "username already taken")
	case errors.Is(err, service.ErrEmailTaken):
		Write(w, r, http.StatusConflict, CodeAlreadyExists, "email already taken")
	case errors.Is(err, service.ErrInvalidEmail):
		Write(w, r, http.StatusBadRequest, CodeInvalidArgument, "invalid email format")
	case errors.Is(err, service.ErrWeakPassword):
		Write(w, r, http.StatusBadRequest, CodeInvalidArgument, "password is too weak")
	case errors.Is(err, service.ErrEmptyPassword):
		Write(w, r, http.StatusBadRequest, CodeInvalidArgument, "password is required")
	case errors.Is(err, service.ErrInvalidArgument):
		Write(w, r, http.StatusBadRequest, CodeInvalidArgument, "invalid request")
	default:
		log.From(r.Context()).Error("internal error", "err", err)
		Write(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
