package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/platform/auth/tokens"
)

// TokenVerifier validates a bearer token and returns the identity it carries.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (tokens.Identity, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <token>.
//
// On success, it stores the subject (token `sub`) and role in request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			id, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			ctx := WithSubject(r.Context(), id.Subject)
			ctx = WithRole(ctx, domain.Role(id.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit subject via X-Debug-Subject and a role via
// X-Debug-Role (default admin). If the subject header is absent, it falls back
// to defaultSubject.
//
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}
			role := domain.Role(strings.TrimSpace(r.Header.Get("X-Debug-Role")))
			if role == "" {
				role = domain.RoleAdmin
			}

			ctx := WithSubject(r.Context(), sub)
			ctx = WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not one of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	msg := "requires role " + strings.Join(names, " or ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := RoleFromContext(r.Context())
			if !ok || !slices.Contains(roles, got) {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", msg, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
