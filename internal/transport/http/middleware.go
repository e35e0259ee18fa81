package http

import (
	"context"
	"net/http"
	"strings"

	"topic-quiz-service/internal/domain"
)

const adminCookieName = "admin_token"

type adminUserKey struct{}

// AdminFromContext returns the authenticated admin username, if any.
func AdminFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(adminUserKey{}).(string)
	return username, ok
}

// RequireAdmin gates every mutation route. The token comes from the
// admin cookie or a bearer header; any verification failure is a 403
// before the wrapped handler runs.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := adminToken(r)
		if tokenString == "" {
			writeError(w, domain.ErrForbidden)
			return
		}
		username, err := h.admin.VerifyToken(tokenString)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), adminUserKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminToken(r *http.Request) string {
	if cookie, err := r.Cookie(adminCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
