package httputil

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tair/plantops/pkg/logger"
	"github.com/tair/plantops/pkg/tracing"
)

// MiddlewareConfig holds configuration for middlewares
type MiddlewareConfig struct {
	EnableLogging   bool
	EnableTracing   bool
	EnableRecovery  bool
	EnableTimeout   bool
	TimeoutDuration time.Duration
	CORSOptions     cors.Options
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(timeout time.Duration) *MiddlewareConfig {
	return &MiddlewareConfig{
		EnableLogging:   true,
		EnableTracing:   true,
		EnableRecovery:  true,
		EnableTimeout:   timeout > 0,
		TimeoutDuration: timeout,
		CORSOptions: cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		},
	}
}

// RegisterMiddlewares registers all configured middlewares to the router
func RegisterMiddlewares(router *mux.Router, config *MiddlewareConfig) {
	logger.Logger.Info().
		Bool("logging", config.EnableLogging).
		Bool("tracing", config.EnableTracing).
		Bool("recovery", config.EnableRecovery).
		Bool("timeout", config.EnableTimeout).
		Dur("timeout_duration", config.TimeoutDuration).
		Msg("Registering middlewares")

	// Recovery first so it catches panics of every later middleware.
	if config.EnableRecovery {
		router.Use(RecoveryMiddleware())
	}
	if config.EnableTimeout {
		router.Use(TimeoutMiddleware(config.TimeoutDuration))
	}
	if config.EnableTracing {
		router.Use(func(next http.Handler) http.Handler {
			return tracing.Middleware("plantops-http-request", next)
		})
	}
	// Logging after tracing so request logs carry the trace id.
	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}

	router.Use(RequestIDMiddleware())
	router.Use(SecurityHeadersMiddleware())
}

// RecoveryMiddleware recovers from panics and returns 500 error
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(r.Context()).
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					RespondMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// TimeoutMiddleware sets a timeout for HTTP requests
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "Request timeout")
	}
}

// LoggingMiddleware logs every request with its status and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		ctx := r.Context()
		event := logger.WithContext(ctx).Info()
		if rw.statusCode >= 500 {
			event = logger.WithContext(ctx).Error()
		} else if rw.statusCode >= 400 {
			event = logger.WithContext(ctx).Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("HTTP request completed")
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", requestID)
			r.Header.Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// CORS creates the CORS handler wrapping the whole router
func CORS(config *MiddlewareConfig) func(http.Handler) http.Handler {
	return cors.New(config.CORSOptions).Handler
}
