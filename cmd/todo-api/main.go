// todo-api — точка входа сервиса.
//
// Последовательность запуска:
//  1. загрузка конфигурации (--config / CONFIG_PATH / local.yaml / ENV);
//  2. инициализация логгера по окружению;
//  3. подключение к PostgreSQL (и, опционально, Redis);
//  4. запуск janitor-а просроченных refresh-токенов;
//  5. HTTP-серверы: публичный API и метрики/health;
//  6. graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-todo-api/internal/cache"
	"github.com/pribylovaa/go-todo-api/internal/config"
	"github.com/pribylovaa/go-todo-api/internal/service"
	"github.com/pribylovaa/go-todo-api/internal/storage/postgres"
	transport "github.com/pribylovaa/go-todo-api/internal/transport/http"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	janitorPeriod   = 30 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	log.Info("starting todo-api", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := postgres.New(initCtx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("failed to init storage", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := service.New(db, cfg.Auth)

	if cfg.Redis.RedisURL != "" {
		rcache, err := cache.NewRedisCache(cfg.Redis.RedisURL, "")
		if err != nil {
			log.Error("failed to init refresh cache", "err", err)
			os.Exit(1)
		}
		defer func() {
			if err := rcache.Close(); err != nil {
				log.Error("failed to close refresh cache", "err", err)
			}
		}()

		svc.SetRefreshCache(rcache)
		log.Info("refresh token cache enabled")
	}

	go startRefreshJanitor(ctx, log, db, cfg.Auth.RefreshRetention)

	var ready atomic.Bool

	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr(),
		Handler: metricsMux(&ready),
	}

	go func() {
		log.Info("metrics server listening", "addr", metricsSrv.Addr)

		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "err", err)
		}
	}()

	router := transport.NewRouter(svc, transport.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Cookies: cfg.Cookies,
		Auth:    cfg.Auth,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Timeouts.Service,
		WriteTimeout: cfg.Timeouts.Service,
		IdleTimeout:  time.Minute,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		ready.Store(true)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "err", err)
	}

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "err", err)
	}

	log.Info("stopped")
}

// setupLogger настраивает slog по окружению:
// local — текст/debug, dev — json/debug, prod — json/info.
func setupLogger(env string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case envLocal:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envDev:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// metricsMux — обработчики служебного сервера: метрики и health-пробы.
func metricsMux(ready *atomic.Bool) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// startRefreshJanitor периодически удаляет refresh-токены, истёкшие
// раньше окна retention. Жёсткое удаление не влияет на семантику
// отзыва: активные и недавно истёкшие токены остаются в БД.
func startRefreshJanitor(ctx context.Context, log *slog.Logger, db *postgres.Storage, retention time.Duration) {
	ticker := time.NewTicker(janitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			olderThan := time.Now().UTC().Add(-retention)

			deleted, err := db.DeleteExpiredTokens(ctx, olderThan)
			if err != nil {
				log.Error("refresh janitor failed", "err", err)

				continue
			}

			if deleted > 0 {
				log.Info("expired refresh tokens deleted", "count", deleted)
			}
		}
	}
}
