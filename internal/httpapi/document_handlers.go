package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vbsplatform.org/internal/store"
)

// docRoute maps a URL segment to the stored document name.
var docRoute = map[string]string{
	"crm":              store.DocCRM,
	"productions":      store.DocProduction,
	"dashboard-config": store.DocDashboardConfig,
}

// handleTenantDocument serves an auxiliary document verbatim. When the tenant
// has not saved one yet an empty default is returned instead of a 404, so
// frontends can always render.
func (a *API) handleTenantDocument(w http.ResponseWriter, r *http.Request, tenantID, segment string) {
	name, ok := docRoute[segment]
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	doc, err := a.store.GetDocument(r.Context(), tenantID, name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTenantNotFound):
			writeError(w, r, http.StatusNotFound, "Tenant not found")
			return
		case errors.Is(err, store.ErrNotFound):
			doc = defaultDocument(name, tenantID)
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func defaultDocument(name, tenantID string) json.RawMessage {
	var v any
	switch name {
	case store.DocCRM:
		v = map[string]any{
			"customers":      []any{},
			"communications": []any{},
			"quotes":         []any{},
			"invoices":       []any{},
		}
	case store.DocProduction:
		v = map[string]any{
			"productions": []any{},
		}
	case store.DocDashboardConfig:
		v = map[string]any{
			"tenant_id": tenantID,
			"widgets":   []any{},
			"branding":  map[string]any{},
		}
	default:
		v = map[string]any{}
	}
	data, _ := json.Marshal(v)
	return data
}

// handleExport serves a point-in-time snapshot of tenant data. Passwords are
// stripped from user records before export.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request, tenantID, which string) {
	ctx := r.Context()
	switch which {
	case "users":
		users, err := a.store.GetTenantUsers(ctx, tenantID)
		if err != nil {
			a.writeStoreError(w, r, err, "User not found")
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"users": sanitizeUsers(users),
		})
	case "equipment":
		equipment, err := a.store.GetTenantEquipment(ctx, tenantID)
		if err != nil {
			a.writeStoreError(w, r, err, "Equipment not found")
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"equipment": equipment,
		})
	case "full":
		tenant, err := a.store.GetTenant(ctx, tenantID)
		if err != nil {
			a.writeStoreError(w, r, err, "Tenant not found")
			return
		}
		users, err := a.store.GetTenantUsers(ctx, tenantID)
		if err != nil {
			a.writeStoreError(w, r, err, "User not found")
			return
		}
		equipment, err := a.store.GetTenantEquipment(ctx, tenantID)
		if err != nil {
			a.writeStoreError(w, r, err, "Equipment not found")
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"exported_at": time.Now().UTC().Format(time.RFC3339),
			"tenant":      tenant,
			"users":       map[string]any{"users": sanitizeUsers(users)},
			"equipment":   map[string]any{"equipment": equipment},
		})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
