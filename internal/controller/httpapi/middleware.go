package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/pkg/metrics"
)

type ctxKeyUserID struct{}

// userIDFrom извлекает аутентифицированного пользователя из контекста
func userIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID{}).(int64)
	return id, ok
}

// authMiddleware вычитывает X-User-ID. Аутентификацию выполняет
// вышестоящий шлюз, сервис доверяет заголовку.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusUnauthorized, "invalid X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observeMiddleware логирует запрос и пишет метрику длительности.
// В метке пути используется шаблон роута, а не сырой URL,
// чтобы не раздувать кардинальность.
func observeMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}

			elapsed := time.Since(start)
			metrics.HTTPDuration.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
				Observe(elapsed.Seconds())

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", elapsed),
			)
		})
	}
}
