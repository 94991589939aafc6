package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter mounts the attendance API. allowedOrigins lists the browser
// origins allowed to call it; empty means any.
func NewRouter(s *AttendanceServer, allowedOrigins []string, logger *zap.Logger) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         3600,
	}))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/validate", s.handleValidate)
		r.Get("/employees/{id}", s.handleEmployee)
		r.Get("/employees/{id}/format", s.handleFormatID)
		r.Get("/reference", s.handleReference)
		r.Post("/submissions", s.handleSubmit)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryEntry)
		r.Get("/pending/{id}", s.handlePending)
		r.Post("/confirmations", s.handleConfirm)
	})

	return r
}

// requestLogger logs one line per request once it has been served
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
