package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс, который реализует и движок, и любой его фронт
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	scopesKey ctxKey = "user_scopes"
)

func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст
			ctx := context.WithValue(r.Context(), scopesKey, claims.Scopes)
			ctx = context.WithValue(ctx, userIDKey, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext безопасно достает ID аутентифицированного пользователя
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// ScopesFromContext достает права из контекста (после Middleware)
func ScopesFromContext(ctx context.Context) map[string]bool {
	if s, ok := ctx.Value(scopesKey).(map[string]bool); ok {
		return s
	}
	return nil
}
