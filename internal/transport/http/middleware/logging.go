package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст и пишет итоговую
// строку по завершении запроса. Тела запросов и значения cookie
// в лог не попадают.
func Logging(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base.With(
				"request_id", RequestIDFrom(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(log.Into(r.Context(), l)))

			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			l.Info("request completed",
				"status", sw.status,
				"bytes", sw.bytes,
				"duration", time.Since(start).String(),
			)
		})
	}
}
