// Package middleware содержит HTTP-middleware: функции-обёртки над http.Handler,
// которые добавляют общий функционал (логирование, id запроса, заголовки)
// вокруг основного обработчика без изменения его кода.
package middleware

import (
	"context"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader — заголовок, в котором id запроса приходит и уходит.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID присваивает запросу id: берёт из заголовка, если он там валидный
// UUID, иначе генерирует новый. id кладётся в контекст и в ответ.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID возвращает id запроса или пустую строку.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// LoggingMiddleware пишет одну запись на запрос после того, как основной
// обработчик завершил работу: в duration входит вся цепочка внутри.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
			})
			if id := GetRequestID(r.Context()); id != "" {
				entry = entry.WithField("request_id", id)
			}

			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("http.request")
			case status >= http.StatusBadRequest:
				entry.Warn("http.request")
			default:
				entry.Info("http.request")
			}
		})
	}
}

// HTMLHeaderMiddleware проставляет Content-Type для HTML-страниц.
// Заголовки нужно выставлять ДО записи тела ответа.
func HTMLHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}
