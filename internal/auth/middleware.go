package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/hamropasal/backend-storefront/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware resolves the authenticated user from a signed bearer token
// issued by the storefront's identity service.
type Middleware struct {
	Secret       []byte
	AccessCookie string
}

// RequireAuth enforces that a valid token is present before executing the
// next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate attaches the user identifier when a valid token is present but
// lets anonymous requests through untouched.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	token := m.extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	parsed, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256, m.Secret), jwt.WithValidate(true))
	if err != nil {
		return r.Context(), err
	}
	subject := strings.TrimSpace(parsed.Subject())
	if subject == "" {
		return r.Context(), errors.New("auth: token carries no subject")
	}
	return common.WithUserID(r.Context(), subject), nil
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
