package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter cache
const maxTrackedClients = 10000

// RateLimiter limits admin commands per client address
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *logger.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
		logger:   log.MiddlewareLogger("rate_limiter"),
	}
}

// getLimiter gets or creates a rate limiter for a client IP
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
			rl.logger.Info("Cleaned up rate limiter cache")
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[ip] = limiter
	}

	return limiter
}

// RateLimitMiddleware rejects clients exceeding their token bucket
func (rl *RateLimiter) RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			limit := fmt.Sprintf("%.2f", float64(rl.rate))

			if !rl.getLimiter(clientIP).Allow() {
				rl.logger.WithFields(map[string]interface{}{
					"client_ip": clientIP,
					"path":      r.URL.Path,
					"method":    r.Method,
				}).Warn("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")

				err := lberrors.NewRateLimitError(clientIP, float64(rl.rate))
				if requestCtx, ok := domain.RequestContextFrom(r.Context()); ok {
					err.WithRequestID(requestCtx.RequestID)
				}
				writeError(w, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"rate_limit":     float64(rl.rate),
		"burst_size":     rl.burst,
		"active_clients": len(rl.limiters),
	}
}
