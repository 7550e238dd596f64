package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// LoggingMiddleware provides structured request logging and attaches a
// RequestContext to every request
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.MiddlewareLogger("logging")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCtx := domain.NewRequestContext(r)
			r = r.WithContext(domain.WithRequestContext(r.Context(), requestCtx))
			w.Header().Set("X-Request-ID", requestCtx.RequestID)

			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			requestLogger := log.RequestLogger(
				requestCtx.RequestID,
				requestCtx.Method,
				requestCtx.Path,
				requestCtx.RemoteAddr,
			)
			requestLogger.Debug("Request started")

			next.ServeHTTP(wrappedWriter, r)

			logEntry := requestLogger.WithFields(map[string]interface{}{
				"status_code":   wrappedWriter.statusCode,
				"duration_ms":   time.Since(requestCtx.StartTime).Milliseconds(),
				"response_size": wrappedWriter.size,
			})

			switch {
			case wrappedWriter.statusCode >= 500:
				logEntry.Error("Request completed with error")
			case wrappedWriter.statusCode >= 400:
				logEntry.Warn("Request completed with warning")
			default:
				logEntry.Info("Request completed")
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture response details
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size
func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

// RecoveryMiddleware provides panic recovery with logging
func RecoveryMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.MiddlewareLogger("recovery")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					var requestID string
					if requestCtx, ok := domain.RequestContextFrom(r.Context()); ok {
						requestID = requestCtx.RequestID
					}

					log.WithFields(map[string]interface{}{
						"request_id": requestID,
						"path":       r.URL.Path,
						"method":     r.Method,
						"panic":      recovered,
					}).Error("Panic recovered in request handler")

					err := lberrors.NewError(lberrors.ErrCodeInternalError, "http", fmt.Sprintf("internal error: %v", recovered))
					writeError(w, err.WithRequestID(requestID))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers so a browser front end can drive the API
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      lberrors.ErrorCode `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, err *lberrors.LoadBalancerError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatusCode())
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Code:      err.Code,
		Message:   err.Message,
		RequestID: err.RequestID,
	}})
}
