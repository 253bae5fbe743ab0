package httpapi

import (
	"net/http"
	"strings"

	"vbsplatform.org/internal/auth"
)

// publicPath reports whether a request may pass without a bearer token.
func publicPath(path string) bool {
	switch path {
	case "/", "/api/health", "/readyz", "/metrics", "/api/auth/login", "/api/auth/logout":
		return true
	}
	return false
}

// withAuth decodes the bearer token on protected paths and attaches the
// verified claims to the request context. Handlers never see a protected
// request without claims.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := extractBearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := a.auth.Codec().Decode(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := auth.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// requireTenant returns the request claims after checking the token tenant
// against the path tenant. A mismatch is a 403 regardless of whether the
// target tenant exists, so the response never leaks tenant ids.
func (a *API) requireTenant(w http.ResponseWriter, r *http.Request, tenantID string) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	if !claims.TenantMatch(tenantID) {
		writeError(w, r, http.StatusForbidden, "Access denied to this tenant")
		return nil, false
	}
	return claims, true
}

// requirePermission enforces an endpoint permission on already tenant-checked
// claims.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, claims *auth.Claims, perm string) bool {
	if !claims.HasPermission(perm) {
		writeError(w, r, http.StatusForbidden, "Insufficient permissions")
		return false
	}
	return true
}
