package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
	"github.com/pribylovaa/go-todo-api/internal/service"
)

type userKey struct{}

// Authenticator резолвит access-токен в пользователя.
type Authenticator interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// Authenticate извлекает access-токен (cookie имеет приоритет над
// заголовком Authorization: Bearer), резолвит его в пользователя и кладёт
// пользователя в контекст. Отсутствие и невалидность токена дают
// одинаковый 401 наружу, но различаются во внутреннем логе.
func Authenticate(auth Authenticator, accessCookie string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessTokenFrom(r, accessCookie)
			if token == "" {
				log.From(r.Context()).Debug("request without access token")
				writeEnvelope(w, r, http.StatusUnauthorized,
					"unauthenticated", "authentication required")

				return
			}

			user, err := auth.CurrentUser(r.Context(), token)
			if err != nil {
				var notActive *service.AccountNotActiveError

				switch {
				case errors.As(err, &notActive):
					writeEnvelope(w, r, http.StatusBadRequest,
						"account_not_active", notActive.Error())
				case errors.Is(err, service.ErrNotFound):
					// Токен валиден, но субъект исчез из БД.
					writeEnvelope(w, r, http.StatusNotFound,
						"not_found", "user not found")
				default:
					log.From(r.Context()).Debug("access token rejected", "err", err)
					writeEnvelope(w, r, http.StatusUnauthorized,
						"unauthenticated", "authentication required")
				}

				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser кладёт аутентифицированного пользователя в контекст.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom достаёт аутентифицированного пользователя из контекста.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)

	return u, ok && u != nil
}

func accessTokenFrom(r *http.Request, accessCookie string) string {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}

	return ""
}
