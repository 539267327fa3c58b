package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeoutMiddleware ограничивает время обработки запроса дедлайном
// в контексте. d <= 0 отключает ограничение.
//
// Хендлер не прерывается принудительно: дедлайн видят только те, кто
// получает ctx (у нас это database/sql). Сервис вернёт DeadlineExceeded,
// handler ответит 408.
func RequestTimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
