package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// NextUserID assigns the next integer id: max existing + 1, starting at 1.
func NextUserID(users []User) int {
	max := 0
	for _, u := range users {
		if u.UserID > max {
			max = u.UserID
		}
	}
	return max + 1
}

// NextEquipmentID assigns the next integer id: max existing + 1, starting at 1.
func NextEquipmentID(items []Equipment) int {
	max := 0
	for _, e := range items {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

// BuildUser materializes a new user record from a create request. The
// composite username is local@tenant_id; the caller supplies the (already
// hashed) password.
func BuildUser(tenantID string, id int, in UserCreate, now time.Time) User {
	userType := in.UserType
	if userType == "" {
		userType = "employee"
	}
	role := in.Role
	if role == "" {
		role = "editor"
	}
	perms := in.Permissions
	if perms == nil {
		perms = []string{}
	}
	return User{
		UserID:       id,
		TenantID:     tenantID,
		UserType:     userType,
		PersonalInfo: in.PersonalInfo,
		ContactInfo:  in.ContactInfo,
		Credentials: Credentials{
			Username:    in.Username + "@" + tenantID,
			Password:    in.Password,
			Role:        role,
			Permissions: perms,
			IsActive:    true,
			CreatedAt:   now.UTC().Format(time.RFC3339),
		},
		Notes: in.Notes,
	}
}

// BuildEquipment materializes a new equipment record from a create request.
func BuildEquipment(tenantID string, id int, in EquipmentCreate) Equipment {
	status := in.Status
	if status == "" {
		status = "available"
	}
	return Equipment{
		ID:            id,
		TenantID:      tenantID,
		Name:          in.Name,
		Type:          in.Type,
		Status:        status,
		Location:      in.Location,
		Description:   in.Description,
		UsageInfo:     in.UsageInfo,
		TechnicalData: in.TechnicalData,
	}
}

// ApplyPatch performs a shallow merge of patch keys over a record: the record
// is flattened to a JSON object, top-level keys from patch replace existing
// ones, and the result is decoded back into dst. Because the merged object
// decodes into the existing record, nested fields the patch omits keep their
// stored values; a partial access_credentials patch cannot wipe the password
// hash or active flag. dst must be a pointer.
func ApplyPatch(dst any, patch map[string]any) error {
	raw, err := json.Marshal(dst)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	for k, v := range patch {
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode merged record: %w", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		return fmt.Errorf("decode merged record: %w", err)
	}
	return nil
}
