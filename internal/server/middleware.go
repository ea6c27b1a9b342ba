package server

import (
	"net/http"
	"strings"

	"github.com/rcardoso/zapboard/internal/auth"
)

// RequireAuth guards read endpoints with a Bearer JWT when a manager is
// configured. A nil manager disables auth entirely (the pipeline and the
// dashboard run inside the same trust boundary in that setup).
func RequireAuth(jwtManager *auth.JWTManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if jwtManager == nil {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			ErrorResponse(w, http.StatusUnauthorized, "token de acesso ausente", "")
			return
		}

		if _, err := jwtManager.ValidateToken(token); err != nil {
			ErrorResponse(w, http.StatusUnauthorized, "token de acesso inválido", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
