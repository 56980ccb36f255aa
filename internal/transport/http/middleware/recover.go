package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/go-todo-api/internal/pkg/log"
)

// Recover перехватывает панику обработчика, логирует стек и отвечает 500.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.From(r.Context()).Error("panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
					)

					writeEnvelope(w, r, http.StatusInternalServerError,
						"internal", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
