// handlers — HTTP-обработчики публичного API todo-api.
// Обработчики декодируют/валидируют DTO, вызывают бизнес-логику и
// транслируют её ошибки в конверт ошибок через httperr.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/pribylovaa/go-todo-api/internal/config"
	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/httperr"
)

// maxBodyBytes ограничивает размер тела запроса (1 MiB).
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости HTTP-обработчиков.
type Handlers struct {
	svc     *service.Service
	auth    config.AuthConfig
	cookies config.CookieConfig
}

// New создаёт набор обработчиков.
func New(svc *service.Service, auth config.AuthConfig, cookies config.CookieConfig) *Handlers {
	return &Handlers{
		svc:     svc,
		auth:    auth,
		cookies: cookies,
	}
}

// writeJSON сериализует ответ с заданным статусом.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.From(r.Context()).Error("failed to encode response", "err", err)
	}
}

// decodeStrict декодирует JSON-тело с запретом неизвестных полей
// и ограничением размера. Ошибка декодирования — ответственность клиента.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	// Мусор после первого JSON-значения также отклоняем.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}

	return nil
}

// bakeAuthCookies выставляет HttpOnly cookie с access- и refresh-токенами.
func (h *Handlers) bakeAuthCookies(w http.ResponseWriter, accessToken string, accessExpires time.Time, refreshToken string, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.AccessName,
		Value:    accessToken,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		Expires:  accessExpires,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSiteMode(),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.RefreshName,
		Value:    refreshToken,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSiteMode(),
	})
}

// bakeAccessCookie обновляет только cookie access-токена (refresh-флоу).
func (h *Handlers) bakeAccessCookie(w http.ResponseWriter, accessToken string, accessExpires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.AccessName,
		Value:    accessToken,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		Expires:  accessExpires,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSiteMode(),
	})
}

// clearAuthCookies затирает обе cookie (logout).
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cookies.AccessName, h.cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     h.cookies.Path,
			Domain:   h.cookies.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: h.cookies.SameSiteMode(),
		})
	}
}

// badRequest — короткий ответ на ошибку декодирования DTO.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	httperr.Write(w, r, http.StatusBadRequest, httperr.CodeInvalidArgument, message)
}
