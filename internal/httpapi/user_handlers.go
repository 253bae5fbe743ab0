package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"vbsplatform.org/internal/audit"
	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/store"
)

// sanitizeUser clears the stored password before a record leaves the API.
func sanitizeUser(u store.User) store.User {
	u.Credentials.Password = ""
	return u
}

func sanitizeUsers(users []store.User) []store.User {
	out := make([]store.User, len(users))
	for i, u := range users {
		out[i] = sanitizeUser(u)
	}
	return out
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request, claims *auth.Claims, tenantID string) {
	if !a.requirePermission(w, r, claims, auth.PermUserManagement) {
		return
	}
	users, err := a.store.GetTenantUsers(r.Context(), tenantID)
	if err != nil {
		a.writeStoreError(w, r, err, "User not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"users": sanitizeUsers(users),
		"count": len(users),
	})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request, tenantID string, userID int) {
	user, err := a.store.GetUser(r.Context(), tenantID, userID)
	if err != nil {
		a.writeStoreError(w, r, err, "User not found")
		return
	}
	writeData(w, http.StatusOK, sanitizeUser(*user))
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims, tenantID string) {
	if !a.requirePermission(w, r, claims, auth.PermUserManagement) {
		return
	}
	var in store.UserCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Username) == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	if strings.Contains(in.Username, "@") {
		writeError(w, r, http.StatusBadRequest, "username must not contain @; the tenant suffix is added automatically")
		return
	}
	if len(in.Password) < 6 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hashed, err := a.auth.HashPassword(in.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	in.Password = hashed

	user, err := a.store.CreateUser(r.Context(), tenantID, in)
	if err != nil {
		a.writeStoreError(w, r, err, "User not found")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.created", map[string]any{
		"created_user_id": user.UserID,
		"username":        user.Credentials.Username,
	})
	writeData(w, http.StatusOK, sanitizeUser(*user))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims, tenantID string, userID int) {
	if !a.requirePermission(w, r, claims, auth.PermUserManagement) {
		return
	}
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Identity fields are never patchable.
	delete(patch, "user_id")
	delete(patch, "tenant_id")

	user, err := a.store.UpdateUser(r.Context(), tenantID, userID, patch)
	if err != nil {
		a.writeStoreError(w, r, err, "User not found")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.updated", map[string]any{
		"updated_user_id": user.UserID,
	})
	writeData(w, http.StatusOK, sanitizeUser(*user))
}

// writeStoreError maps store sentinel errors to API responses. notFoundMsg is
// the resource-specific 404 message.
func (a *API) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		writeError(w, r, http.StatusNotFound, "Tenant not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFoundMsg)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
