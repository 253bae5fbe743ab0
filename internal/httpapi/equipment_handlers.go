package httpapi

import (
	"net/http"
	"strings"

	"vbsplatform.org/internal/audit"
	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/store"
)

func (a *API) handleListEquipment(w http.ResponseWriter, r *http.Request, tenantID string) {
	equipment, err := a.store.GetTenantEquipment(r.Context(), tenantID)
	if err != nil {
		a.writeStoreError(w, r, err, "Equipment not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"equipment": equipment,
		"count":     len(equipment),
	})
}

func (a *API) handleGetEquipment(w http.ResponseWriter, r *http.Request, tenantID string, equipmentID int) {
	eq, err := a.store.GetEquipment(r.Context(), tenantID, equipmentID)
	if err != nil {
		a.writeStoreError(w, r, err, "Equipment not found")
		return
	}
	writeData(w, http.StatusOK, eq)
}

func (a *API) handleCreateEquipment(w http.ResponseWriter, r *http.Request, claims *auth.Claims, tenantID string) {
	if !a.requirePermission(w, r, claims, auth.PermEquipmentManagement) {
		return
	}
	var in store.EquipmentCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	eq, err := a.store.CreateEquipment(r.Context(), tenantID, in)
	if err != nil {
		a.writeStoreError(w, r, err, "Equipment not found")
		return
	}
	_ = audit.LogEvent(r.Context(), "equipment.created", map[string]any{
		"equipment_id": eq.ID,
		"name":         eq.Name,
	})
	writeData(w, http.StatusOK, eq)
}

func (a *API) handleUpdateEquipment(w http.ResponseWriter, r *http.Request, claims *auth.Claims, tenantID string, equipmentID int) {
	if !a.requirePermission(w, r, claims, auth.PermEquipmentManagement) {
		return
	}
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	delete(patch, "id")
	delete(patch, "tenant_id")

	eq, err := a.store.UpdateEquipment(r.Context(), tenantID, equipmentID, patch)
	if err != nil {
		a.writeStoreError(w, r, err, "Equipment not found")
		return
	}
	_ = audit.LogEvent(r.Context(), "equipment.updated", map[string]any{
		"equipment_id": eq.ID,
	})
	writeData(w, http.StatusOK, eq)
}
