package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/snapzy-app/snapzy/jwt"
)

type sessionKey struct{}

// requireSession parses the Authorization bearer token and stores the claims
// in the request context. Requests without a valid token get 401.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.engine.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) *jwt.SessionClaims {
	claims, _ := ctx.Value(sessionKey{}).(*jwt.SessionClaims)
	return claims
}
