package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"vbsplatform.org/internal/audit"
	"vbsplatform.org/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"username": req.Username,
			"reason":   loginFailureReason(err),
		})
		a.writeLoginError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username":  res.User.Username,
		"tenant_id": res.User.TenantID,
		"user_id":   res.User.UserID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"access_token": res.Token,
		"token_type":   "bearer",
		"user":         res.User,
	})
}

func (a *API) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMalformedUsername):
		writeError(w, r, http.StatusBadRequest, "Invalid username format. Use: username@tenant_id")
	case errors.Is(err, auth.ErrTenantNotFound):
		writeError(w, r, http.StatusNotFound, "Tenant not found")
	case errors.Is(err, auth.ErrTenantInactive):
		writeError(w, r, http.StatusForbidden, "Tenant account is inactive")
	case errors.Is(err, auth.ErrUserInactive):
		writeError(w, r, http.StatusForbidden, "User account is inactive")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMalformedUsername):
		return "malformed_username"
	case errors.Is(err, auth.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, auth.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, auth.ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal_error"
	}
}

// handleLogout acknowledges logout. Tokens are stateless, so the server keeps
// no session to invalidate; clients discard the token.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := extractBearerToken(r); !ok {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"user_id":     claims.UserID,
			"tenant_id":   claims.TenantID,
			"username":    claims.Username,
			"role":        claims.Role,
			"permissions": claims.Permissions,
		},
	})
}
