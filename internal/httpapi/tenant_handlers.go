package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/store"
)

// handleAdminTenants lists the tenant registry. Any authenticated user may
// read it; there is no role gate on this path.
func (a *API) handleAdminTenants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}
	tenants, err := a.store.ListTenants(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// handleTenantScoped dispatches /api/tenants/{tenant_id}/... by path segment.
// The tenant check runs before any store access so a cross-tenant request is
// rejected without touching the target tenant's data.
func (a *API) handleTenantScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tenants/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(rest, "/")
	tenantID := parts[0]

	claims, ok := a.requireTenant(w, r, tenantID)
	if !ok {
		return
	}

	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.handleGetTenant(w, r, tenantID)
	case 2:
		switch parts[1] {
		case "users":
			switch r.Method {
			case http.MethodGet:
				a.handleListUsers(w, r, claims, tenantID)
			case http.MethodPost:
				a.handleCreateUser(w, r, claims, tenantID)
			default:
				methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
			}
		case "equipment":
			switch r.Method {
			case http.MethodGet:
				a.handleListEquipment(w, r, tenantID)
			case http.MethodPost:
				a.handleCreateEquipment(w, r, claims, tenantID)
			default:
				methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
			}
		case "crm", "productions", "dashboard-config":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			a.handleTenantDocument(w, r, tenantID, parts[1])
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	case 3:
		switch parts[1] {
		case "users":
			userID, err := strconv.Atoi(parts[2])
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid user id")
				return
			}
			switch r.Method {
			case http.MethodGet:
				a.handleGetUser(w, r, tenantID, userID)
			case http.MethodPut:
				a.handleUpdateUser(w, r, claims, tenantID, userID)
			default:
				methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
			}
		case "equipment":
			equipmentID, err := strconv.Atoi(parts[2])
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid equipment id")
				return
			}
			switch r.Method {
			case http.MethodGet:
				a.handleGetEquipment(w, r, tenantID, equipmentID)
			case http.MethodPut:
				a.handleUpdateEquipment(w, r, claims, tenantID, equipmentID)
			default:
				methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
			}
		case "export":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, r, http.MethodGet)
				return
			}
			a.handleExport(w, r, tenantID, parts[2])
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleGetTenant(w http.ResponseWriter, r *http.Request, tenantID string) {
	tenant, err := a.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			writeError(w, r, http.StatusNotFound, "Tenant not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, tenant)
}
