package apiapp

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	ratesvc "github.com/FnipsDanil/crashTest-sub001/internal/services/rate"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

// AuthMiddleware resolves the caller identity from the Telegram init data
// header, a session bearer token, or the init_data query parameter.
func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			initData := strings.TrimSpace(r.Header.Get("X-Telegram-Init-Data"))
			if initData == "" {
				initData = strings.TrimSpace(r.URL.Query().Get("init_data"))
			}
			sessionToken, _ := extractBearerToken(r.Header.Get("Authorization"))

			identity, err := authService.ResolveIdentity(r.Context(), initData, sessionToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware rejected request", zap.Error(err))
				}
				httperrors.WriteUnauthorized(w, "UNAUTHORIZED", "Missing Telegram authentication. Please restart the app.")
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuthMiddleware gates operator endpoints with a static token.
func AdminAuthMiddleware(adminToken string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminToken == "" {
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "ADMIN_DISABLED",
					Message: "admin endpoints are disabled",
				})
				return
			}

			provided := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
				if log != nil {
					log.Warn("admin auth failed", zap.String("path", r.URL.Path))
				}
				httperrors.WriteUnauthorized(w, "UNAUTHORIZED", "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware applies the per-player request budget after auth.
func RateLimitMiddleware(limiter *ratesvc.Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter, allowed, err := limiter.Allow(r.Context(), identity.UserID)
			if err != nil {
				// Rate limiting is best effort, never a hard dependency.
				if log != nil {
					log.Warn("rate limiter unavailable", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "RATE_LIMITED",
					Message:       "too many requests",
					RetryAfterSec: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
