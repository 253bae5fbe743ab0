// Package pg implements the document store over PostgreSQL. Documents keep
// the same shape as the JSON files: the tenant registry lives in tenants and
// every per-tenant document (users, equipment, crm, ...) is a single JSONB
// row rewritten as a whole, preserving the file-store write semantics.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vbsplatform.org/internal/store"
)

const (
	docUsers     = "users"
	docEquipment = "equipment"
)

var _ store.Store = (*PGStore)(nil)

// PGStore serves tenant documents from PostgreSQL.
type PGStore struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures PGStore behavior.
type Option func(*PGStore)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *PGStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *PGStore {
	s := &PGStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the two document tables if they are missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`create table if not exists tenants (
			tenant_id text primary key,
			doc jsonb not null
		)`,
		`create table if not exists tenant_documents (
			tenant_id text not null,
			name text not null,
			doc jsonb not null,
			updated_at timestamptz not null default now(),
			primary key (tenant_id, name)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pg: ensure schema: %w", err)
		}
	}
	return nil
}

// ListTenants returns the full tenant registry.
func (s *PGStore) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `select doc from tenants order by tenant_id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []store.Tenant{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t store.Tenant
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("pg: decode tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// GetTenant returns the tenant or store.ErrTenantNotFound.
func (s *PGStore) GetTenant(ctx context.Context, tenantID string) (*store.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `select doc from tenants where tenant_id = $1`, tenantID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, err
	}
	var t store.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("pg: decode tenant: %w", err)
	}
	return &t, nil
}

// readDocument fetches one per-tenant document. Missing rows report
// found=false after the tenant itself has been verified to exist.
func (s *PGStore) readDocument(ctx context.Context, tenantID, name string, dst any) (bool, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return false, err
	}
	row := s.db.QueryRowContext(ctx,
		`select doc from tenant_documents where tenant_id = $1 and name = $2`, tenantID, name)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("pg: decode %s document: %w", name, err)
	}
	return true, nil
}

// mutateDocument runs a read-modify-write cycle on one per-tenant document
// inside a transaction, holding a row lock on the document so concurrent
// writers serialize instead of overwriting each other. fn receives the
// current document bytes (found=false when none exists) and returns the
// value to persist.
func (s *PGStore) mutateDocument(ctx context.Context, tenantID, name string, fn func(found bool, raw []byte) (any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var tenantRaw []byte
	if err := tx.QueryRowContext(ctx,
		`select doc from tenants where tenant_id = $1`, tenantID).Scan(&tenantRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTenantNotFound
		}
		return err
	}

	var raw []byte
	found := true
	err = tx.QueryRowContext(ctx,
		`select doc from tenant_documents where tenant_id = $1 and name = $2 for update`,
		tenantID, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		found, err = false, nil
	}
	if err != nil {
		return err
	}

	v, err := fn(found, raw)
	if err != nil {
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`insert into tenant_documents(tenant_id, name, doc, updated_at) values ($1, $2, $3, $4)
		 on conflict (tenant_id, name) do update set doc = excluded.doc, updated_at = excluded.updated_at`,
		tenantID, name, out, s.now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTenantUsers returns all users of the tenant.
func (s *PGStore) GetTenantUsers(ctx context.Context, tenantID string) ([]store.User, error) {
	var doc store.UsersDocument
	if _, err := s.readDocument(ctx, tenantID, docUsers, &doc); err != nil {
		return nil, err
	}
	if doc.Users == nil {
		doc.Users = []store.User{}
	}
	return doc.Users, nil
}

// GetUser returns one user or store.ErrNotFound.
func (s *PGStore) GetUser(ctx context.Context, tenantID string, userID int) (*store.User, error) {
	users, err := s.GetTenantUsers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].UserID == userID {
			return &users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateUser appends a new user and rewrites the users document under the
// document row lock.
func (s *PGStore) CreateUser(ctx context.Context, tenantID string, in store.UserCreate) (*store.User, error) {
	var created store.User
	err := s.mutateDocument(ctx, tenantID, docUsers, func(found bool, raw []byte) (any, error) {
		var doc store.UsersDocument
		if found {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("pg: decode users document: %w", err)
			}
		}
		created = store.BuildUser(tenantID, store.NextUserID(doc.Users), in, s.now())
		doc.Users = append(doc.Users, created)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser shallow-merges patch into the user record and rewrites the
// users document under the document row lock.
func (s *PGStore) UpdateUser(ctx context.Context, tenantID string, userID int, patch map[string]any) (*store.User, error) {
	var updated store.User
	err := s.mutateDocument(ctx, tenantID, docUsers, func(found bool, raw []byte) (any, error) {
		var doc store.UsersDocument
		if found {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("pg: decode users document: %w", err)
			}
		}
		idx := -1
		for i := range doc.Users {
			if doc.Users[i].UserID == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		if err := store.ApplyPatch(&doc.Users[idx], patch); err != nil {
			return nil, err
		}
		updated = doc.Users[idx]
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetTenantEquipment returns all equipment of the tenant.
func (s *PGStore) GetTenantEquipment(ctx context.Context, tenantID string) ([]store.Equipment, error) {
	var doc store.EquipmentDocument
	if _, err := s.readDocument(ctx, tenantID, docEquipment, &doc); err != nil {
		return nil, err
	}
	if doc.Equipment == nil {
		doc.Equipment = []store.Equipment{}
	}
	return doc.Equipment, nil
}

// GetEquipment returns one equipment record or store.ErrNotFound.
func (s *PGStore) GetEquipment(ctx context.Context, tenantID string, equipmentID int) (*store.Equipment, error) {
	items, err := s.GetTenantEquipment(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == equipmentID {
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateEquipment appends a new record and rewrites the equipment document
// under the document row lock.
func (s *PGStore) CreateEquipment(ctx context.Context, tenantID string, in store.EquipmentCreate) (*store.Equipment, error) {
	var created store.Equipment
	err := s.mutateDocument(ctx, tenantID, docEquipment, func(found bool, raw []byte) (any, error) {
		var doc store.EquipmentDocument
		if found {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("pg: decode equipment document: %w", err)
			}
		}
		created = store.BuildEquipment(tenantID, store.NextEquipmentID(doc.Equipment), in)
		doc.Equipment = append(doc.Equipment, created)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEquipment shallow-merges patch into the record and rewrites the
// equipment document under the document row lock.
func (s *PGStore) UpdateEquipment(ctx context.Context, tenantID string, equipmentID int, patch map[string]any) (*store.Equipment, error) {
	var updated store.Equipment
	err := s.mutateDocument(ctx, tenantID, docEquipment, func(found bool, raw []byte) (any, error) {
		var doc store.EquipmentDocument
		if found {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("pg: decode equipment document: %w", err)
			}
		}
		idx := -1
		for i := range doc.Equipment {
			if doc.Equipment[i].ID == equipmentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		if err := store.ApplyPatch(&doc.Equipment[idx], patch); err != nil {
			return nil, err
		}
		updated = doc.Equipment[idx]
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetDocument returns a raw auxiliary document or store.ErrNotFound when the
// tenant has none.
func (s *PGStore) GetDocument(ctx context.Context, tenantID, name string) (json.RawMessage, error) {
	switch name {
	case store.DocCRM, store.DocProduction, store.DocDashboardConfig:
	default:
		return nil, fmt.Errorf("pg: unknown document %q", name)
	}
	var raw json.RawMessage
	found, err := s.readDocument(ctx, tenantID, name, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return raw, nil
}
