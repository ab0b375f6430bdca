package middleware

import (
	"context"
	"net/http"
	"strings"

	"dealfeed/internal/service"

	"go.uber.org/zap"
)

type contextKey string

// AdminUserKey carries the authenticated admin username.
const AdminUserKey contextKey = "admin_user"

// AdminAuthMiddleware rejects requests without a valid admin bearer
// token and stores the admin identity in the request context.
func AdminAuthMiddleware(auth service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := auth.ValidateToken(parts[1])
			if err != nil {
				logger.Warn("Admin token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), AdminUserKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminUser extracts the admin username from the request context.
func GetAdminUser(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(AdminUserKey).(string)
	return username, ok
}
