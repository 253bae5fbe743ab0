package store

import "encoding/json"

// Tenant is one row of the tenant registry. Tenants are provisioned out of
// band; the API treats them as read-only.
type Tenant struct {
	TenantID     string          `json:"tenant_id"`
	TenantName   string          `json:"tenant_name"`
	CompanyInfo  json.RawMessage `json:"company_info,omitempty"`
	Subscription json.RawMessage `json:"subscription,omitempty"`
	DataPath     string          `json:"data_path"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// PersonalInfo holds the employee-facing part of a user record.
type PersonalInfo struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Position       string `json:"position,omitempty"`
	Department     string `json:"department,omitempty"`
	EmployeeNumber string `json:"employee_number,omitempty"`
	Company        string `json:"company,omitempty"`
}

// ContactInfo holds user contact details.
type ContactInfo struct {
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Mobile string `json:"mobile,omitempty"`
}

// Credentials is the access_credentials block embedded in a user record.
// Username is the composite login identifier local@tenant_id; its suffix must
// equal the owning tenant. Password holds either a bcrypt hash or, in legacy
// data, the plaintext password.
type Credentials struct {
	Username    string   `json:"username"`
	Password    string   `json:"password,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// User is a tenant-scoped user record. UserID is unique within a tenant only.
type User struct {
	UserID       int          `json:"user_id"`
	TenantID     string       `json:"tenant_id"`
	UserType     string       `json:"user_type"`
	PersonalInfo PersonalInfo `json:"personal_info"`
	ContactInfo  ContactInfo  `json:"contact_info"`
	Credentials  Credentials  `json:"access_credentials"`
	Notes        string       `json:"notes,omitempty"`
}

// Equipment is a tenant-scoped equipment record. Usage and technical data are
// carried opaquely; the API never interprets them.
type Equipment struct {
	ID            int             `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Location      string          `json:"location"`
	Description   string          `json:"description,omitempty"`
	UsageInfo     json.RawMessage `json:"usage_info,omitempty"`
	TechnicalData json.RawMessage `json:"technical_data,omitempty"`
}

// UserCreate is the input for creating a user. Username is the local part
// only; the store appends @tenant_id. Password must already be hashed by the
// caller.
type UserCreate struct {
	Username     string       `json:"username"`
	Password     string       `json:"password"`
	UserType     string       `json:"user_type"`
	PersonalInfo PersonalInfo `json:"personal_info"`
	ContactInfo  ContactInfo  `json:"contact_info"`
	Role         string       `json:"role"`
	Permissions  []string     `json:"permissions"`
	Notes        string       `json:"notes,omitempty"`
}

// EquipmentCreate is the input for creating equipment.
type EquipmentCreate struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Location      string          `json:"location"`
	Description   string          `json:"description,omitempty"`
	UsageInfo     json.RawMessage `json:"usage_info,omitempty"`
	TechnicalData json.RawMessage `json:"technical_data,omitempty"`
}

// UsersDocument is the on-disk shape of a tenant's users.json.
type UsersDocument struct {
	Users []User `json:"users"`
}

// EquipmentDocument is the on-disk shape of a tenant's equipment.json.
type EquipmentDocument struct {
	Equipment []Equipment `json:"equipment"`
}

// TenantsDocument is the on-disk shape of the tenant registry.
type TenantsDocument struct {
	Tenants []Tenant       `json:"tenants"`
	Config  map[string]any `json:"config,omitempty"`
}
