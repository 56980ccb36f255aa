package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/httperr"
)

type registerRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Register обрабатывает POST /auth/register: создаёт пользователя,
// выпускает пару токенов и выставляет обе cookie. Хэш пароля в ответ
// не попадает.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeStrict(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")

		return
	}

	user, pair, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	h.bakeAuthCookies(w, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, h.auth.RefreshTokenTTL)
	writeJSON(w, r, http.StatusCreated, toUserResponse(user))
}

// Login обрабатывает POST /auth/login: проверяет учётные данные и
// выставляет обе cookie. Токены в теле ответа не возвращаются.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")

		return
	}

	_, pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	h.bakeAuthCookies(w, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, h.auth.RefreshTokenTTL)
	writeJSON(w, r, http.StatusOK, sessionResponse{
		Message:   "logged in",
		ExpiresIn: int64(time.Until(pair.AccessExpiresAt).Seconds()),
	})
}

// OAuth2Token обрабатывает POST /auth/oauth2 — password-grant в духе
// OAuth2 для инструментов, ожидающих form-encoded вход (swagger и т.п.).
// Ответ — стандартный token response с access-токеном в теле.
func (h *Handlers) OAuth2Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, "invalid form body")

		return
	}

	if grant := r.PostFormValue("grant_type"); grant != "" && grant != "password" {
		badRequest(w, r, "unsupported grant_type")

		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	_, pair, err := h.svc.Login(r.Context(), username, password)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	h.bakeAuthCookies(w, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, h.auth.RefreshTokenTTL)
	writeJSON(w, r, http.StatusOK, struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(pair.AccessExpiresAt).Seconds()),
	})
}

// Refresh обрабатывает POST /auth/refresh: по refresh-cookie выпускает
// новый access-токен и обновляет только access-cookie. Refresh-токен
// не ротируется.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, h.cookies.RefreshName)
	if refreshToken == "" {
		httperr.Write(w, r, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")

		return
	}

	accessToken, expiresAt, err := h.svc.Refresh(r.Context(), refreshToken)
	if err != nil {
		httperr.FromError(w, r, err)

		return
	}

	h.bakeAccessCookie(w, accessToken, expiresAt)
	writeJSON(w, r, http.StatusOK, sessionResponse{
		Message:   "token refreshed",
		ExpiresIn: int64(time.Until(expiresAt).Seconds()),
	})
}

// Logout обрабатывает POST /auth/logout: отзывает refresh-токен
// (идемпотентно, запрос без cookie ничего не мутирует) и затирает
// обе cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, h.cookies.RefreshName)

	if err := h.svc.RevokeToken(r.Context(), refreshToken); err != nil {
		httperr.FromError(w, r, err)

		return
	}

	h.clearAuthCookies(w)
	writeJSON(w, r, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "logged out"})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}
