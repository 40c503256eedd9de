package middleware

import (
	"net/http"
	"strings"

	"github.com/wardscope/wardscope/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards maintenance routes with a single bearer token whose bcrypt
// hash comes from configuration.
type AdminAuth struct {
	tokenHash []byte
}

// NewAdminAuth creates the middleware. With an empty hash every request is rejected.
func NewAdminAuth(tokenHash string) *AdminAuth {
	return &AdminAuth{tokenHash: []byte(tokenHash)}
}

// Enabled reports whether an admin token is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.tokenHash) > 0
}

// Authenticate validates the Bearer token against the configured hash.
func (a *AdminAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Admin access is not configured", nil)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Missing or invalid Authorization header", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Invalid admin token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(setAdmin(r.Context())))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
