package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/saransh1220/foodhub/internal/shared/utils"
)

type contextKey string

const (
	ContextKeyUserId contextKey = "user_id"
	ContextKeyRole   contextKey = "role"
)

// Roles issued by the identity service.
const (
	RoleCustomer        = "customer"
	RoleDriver          = "driver"
	RoleRestaurantOwner = "restaurant_owner"
	RoleAdmin           = "admin"
)

type AuthMiddleWare struct {
	jwtSecret string
}

// NewAuthMiddleware validates HS256 tokens signed with jwtSecret.
func NewAuthMiddleware(jwtSecret string) *AuthMiddleWare {
	return &AuthMiddleWare{jwtSecret: jwtSecret}
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller's user ID and role into the request context.
func (m *AuthMiddleWare) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			http.Error(w, `{"error": "missing or invalid authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := utils.ValidateToken(tokenStr, m.jwtSecret)
		if err != nil {
			http.Error(w, `{"error": "invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

// RequireRole must run after RequireAuth. Callers whose role is not in
// roles get 403.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ContextKeyRole).(string)
		for _, allowed := range roles {
			if role == allowed {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, `{"error": "forbidden"}`, http.StatusForbidden)
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func withIdentity(ctx context.Context, claims *utils.Claims) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserId, claims.UserID)
	return context.WithValue(ctx, ContextKeyRole, claims.Role)
}
