package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrTenantNotFound is returned when the addressed tenant is not in the
	// registry.
	ErrTenantNotFound = errors.New("store: tenant not found")
	// ErrNotFound is returned when a resource is absent within a known tenant.
	ErrNotFound = errors.New("store: not found")
)

// Named auxiliary documents served per tenant.
const (
	DocCRM             = "crm"
	DocProduction      = "production"
	DocDashboardConfig = "dashboard-config"
)

// Store is the tenant-scoped document store the API runs on. All writes are
// whole-document rewrites; implementations must guarantee that concurrent
// reads observe a consistent snapshot of a document.
type Store interface {
	ListTenants(ctx context.Context) ([]Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)

	GetTenantUsers(ctx context.Context, tenantID string) ([]User, error)
	GetUser(ctx context.Context, tenantID string, userID int) (*User, error)
	CreateUser(ctx context.Context, tenantID string, in UserCreate) (*User, error)
	UpdateUser(ctx context.Context, tenantID string, userID int, patch map[string]any) (*User, error)

	GetTenantEquipment(ctx context.Context, tenantID string) ([]Equipment, error)
	GetEquipment(ctx context.Context, tenantID string, equipmentID int) (*Equipment, error)
	CreateEquipment(ctx context.Context, tenantID string, in EquipmentCreate) (*Equipment, error)
	UpdateEquipment(ctx context.Context, tenantID string, equipmentID int, patch map[string]any) (*Equipment, error)

	// GetDocument returns a raw auxiliary document (crm, production,
	// dashboard-config) or ErrNotFound if the tenant has none.
	GetDocument(ctx context.Context, tenantID, name string) (json.RawMessage, error)
}
