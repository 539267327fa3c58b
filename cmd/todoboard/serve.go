package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // алиас, чтобы не конфликтовать с internal/middleware
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"todo-board/internal/config"
	"todo-board/internal/db"
	"todo-board/internal/flash"
	"todo-board/internal/middleware"
	"todo-board/internal/telemetry"
	"todo-board/internal/todos"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// Здесь только:
// - создание зависимостей;
// - настройка middleware;
// - запуск HTTP-сервера и его остановка по сигналу.
func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.Log)

	if cfg.Tracing.Enabled {
		shutdownTracing := telemetry.Setup(cfg.Tracing.ServiceName, logger)
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.WithError(err).Warn("tracing shutdown failed")
			}
		}()
	}

	path := databasePath(cfg)
	database, err := openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer database.Close()

	flashStore, closeFlash, err := newFlashStore(ctx, cfg.Flash)
	if err != nil {
		return err
	}
	defer closeFlash()

	opts := []todos.Option{
		todos.WithLogger(logger),
		todos.WithLimits(todos.Limits{
			DefaultSize: cfg.Pagination.DefaultSize,
			MaxSize:     cfg.Pagination.MaxSize,
		}),
	}
	handler := todos.NewHandler(
		todos.NewService(database, opts...),
		todos.NewCommentService(database, opts...),
		flashStore,
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      withMiddleware(handler.Router(), cfg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":    cfg.Server.Addr,
			"db":      path,
			"flash":   cfg.Flash.Backend,
			"version": version,
		}).Info("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// withMiddleware навешивает общесервисные middleware на уже собранный роутер.
// Роуты модуля todos остаются независимыми от них.
func withMiddleware(h http.Handler, cfg config.Config, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestTimeoutMiddleware(cfg.Server.RequestTimeout))

	r.Mount("/", h)
	return r
}

func newLogger(cfg config.Log) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func databasePath(cfg config.Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return db.DefaultPath()
}

func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	database, err := db.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return database, nil
}

// newFlashStore выбирает хранилище flash-сообщений по конфигурации.
// Для redis сразу проверяем соединение: без него редиректы потеряют сообщения.
func newFlashStore(ctx context.Context, cfg config.Flash) (flash.Store, func(), error) {
	switch cfg.Backend {
	case config.FlashRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("flash.redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store := flash.NewRedisStore(client, cfg.TTL)
		store.Secure = cfg.SecureCookie
		return store, func() { _ = client.Close() }, nil
	default:
		store := flash.NewCookieStore(cfg.TTL)
		store.Secure = cfg.SecureCookie
		return store, func() {}, nil
	}
}
