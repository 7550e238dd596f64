package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
	"github.com/golang-jwt/jwt/v4"
)

// JWTAuthMiddleware guards mutating admin routes with HMAC-signed bearer
// tokens. Read-only requests pass through.
type JWTAuthMiddleware struct {
	config config.AuthConfig
	logger *logger.Logger
}

// JWTClaims represents the operator token claims
type JWTClaims struct {
	Operator string `json:"operator,omitempty"`
	jwt.RegisteredClaims
}

type subjectKey struct{}

// NewJWTAuthMiddleware creates a new JWT authentication middleware
func NewJWTAuthMiddleware(cfg config.AuthConfig, log *logger.Logger) (*JWTAuthMiddleware, error) {
	if cfg.Enabled && cfg.Secret == "" {
		return nil, lberrors.NewInvalidConfigError("jwt_auth", "secret is required")
	}

	m := &JWTAuthMiddleware{
		config: cfg,
		logger: log.MiddlewareLogger("jwt_auth"),
	}
	m.logger.WithFields(map[string]interface{}{
		"enabled": cfg.Enabled,
		"issuer":  cfg.Issuer,
	}).Info("JWT authentication middleware initialized")
	return m, nil
}

// IssueToken signs a token for an operator, valid for ttl
func (m *JWTAuthMiddleware) IssueToken(operator string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
}

// JWTAuth returns the JWT authentication middleware
func (m *JWTAuthMiddleware) JWTAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.config.Enabled || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			var requestID string
			if requestCtx, ok := domain.RequestContextFrom(r.Context()); ok {
				requestID = requestCtx.RequestID
			}

			token := extractToken(r)
			if token == "" {
				m.logger.WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"method": r.Method,
					"ip":     r.RemoteAddr,
				}).Warn("JWT token missing")
				writeError(w, lberrors.NewAuthenticationError("authentication required").WithRequestID(requestID))
				return
			}

			claims, err := m.validateToken(token)
			if err != nil {
				m.logger.WithError(err).WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"method": r.Method,
					"ip":     r.RemoteAddr,
				}).Warn("JWT validation failed")
				writeError(w, lberrors.NewAuthenticationError("invalid token").WithRequestID(requestID))
				return
			}

			m.logger.WithFields(map[string]interface{}{
				"subject": claims.Subject,
				"path":    r.URL.Path,
			}).Debug("JWT authentication successful")

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateToken validates and parses the JWT token
func (m *JWTAuthMiddleware) validateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if m.config.Issuer != "" && !claims.VerifyIssuer(m.config.Issuer, true) {
		return nil, fmt.Errorf("invalid issuer")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing required claim: sub")
	}
	return claims, nil
}

// SubjectFrom returns the authenticated operator stored by JWTAuth
func SubjectFrom(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
