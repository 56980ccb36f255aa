// Package http собирает маршрутизатор публичного API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-todo-api/internal/config"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/handlers"
	"github.com/pribylovaa/go-todo-api/internal/transport/http/middleware"
)

// Options — зависимости сборки роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Cookies config.CookieConfig
	Auth    config.AuthConfig
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
// Порядок мидлварей: Recover -> RequestID -> Logging -> Timeout;
// группа /todos дополнительно обёрнута в Authenticate.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	h := handlers.New(svc, opts.Auth, opts.Cookies)

	r := chi.NewRouter()

	r.Use(middleware.Recover())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Timeout(opts.Timeout))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/oauth2", h.OAuth2Token)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(middleware.Authenticate(svc, opts.Cookies.AccessName))

		r.Post("/", h.CreateTodo)
		r.Get("/", h.ListTodos)
		r.Get("/stats", h.TodoStats)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.TodoByID)
			r.Patch("/", h.UpdateTodo)
			r.Delete("/", h.DeleteTodo)
			r.Patch("/complete", h.ToggleTodo)
		})
	})

	return r
}
