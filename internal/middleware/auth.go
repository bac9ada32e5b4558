package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/scangate/qrlogin-server-go/internal/errors"
	"github.com/scangate/qrlogin-server-go/internal/httputil"
	"github.com/scangate/qrlogin-server-go/internal/token"
)

type contextKey string

const UserContextKey contextKey = "user"

// GetUser returns the verified token subject for the request, or "".
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserContextKey).(string); ok {
		return user
	}
	return ""
}

// AuthMiddleware gates requests on a valid bearer token. Verification never
// mutates state; failures abort the request with 401.
type AuthMiddleware struct {
	tokens *token.Service
}

func NewAuthMiddleware(tokens *token.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		subject, err := m.tokens.Verify(raw)
		if err != nil {
			log.Warn().Msg("auth middleware: invalid token attempt")
			httputil.WriteError(w, apperrors.InvalidToken("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
