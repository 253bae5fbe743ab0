package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vbsplatform.org/internal/store"
)

func writeFixture(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, filepath.Join(dir, "tenants.json"), store.TenantsDocument{
		Tenants: []store.Tenant{
			{TenantID: "tenant_a", TenantName: "Alpha", DataPath: "tenant_a", IsActive: true},
			{TenantID: "tenant_b", TenantName: "Beta", DataPath: "tenant_b", IsActive: false},
		},
	})
	writeFixture(t, filepath.Join(dir, "tenant_a", "users.json"), store.UsersDocument{
		Users: []store.User{
			{
				UserID:   1,
				TenantID: "tenant_a",
				Credentials: store.Credentials{
					Username: "alice@tenant_a",
					Password: "$2a$dummy",
					Role:     "admin",
					IsActive: true,
				},
			},
		},
	})
	writeFixture(t, filepath.Join(dir, "tenant_a", "equipment.json"), store.EquipmentDocument{
		Equipment: []store.Equipment{
			{ID: 1, TenantID: "tenant_a", Name: "Lathe", Type: "machine", Status: "available"},
		},
	})

	fixed := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s, err := New(dir, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func TestGetTenant(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tenant, err := s.GetTenant(ctx, "tenant_a")
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if tenant.TenantName != "Alpha" || !tenant.IsActive {
		t.Errorf("unexpected tenant: %+v", tenant)
	}

	if _, err := s.GetTenant(ctx, "tenant_zzz"); !errors.Is(err, store.ErrTenantNotFound) {
		t.Fatalf("GetTenant unknown = %v, want ErrTenantNotFound", err)
	}
}

func TestListTenants(t *testing.T) {
	s, _ := newTestStore(t)
	tenants, err := s.ListTenants(context.Background())
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("len = %d, want 2", len(tenants))
	}
}

func TestGetTenantUsersMissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	// tenant_b has no users.json yet.
	users, err := s.GetTenantUsers(context.Background(), "tenant_b")
	if err != nil {
		t.Fatalf("GetTenantUsers: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("len = %d, want 0", len(users))
	}
}

func TestGetUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "tenant_a", 1)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Credentials.Username != "alice@tenant_a" {
		t.Errorf("username = %q", u.Credentials.Username)
	}

	if _, err := s.GetUser(ctx, "tenant_a", 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetUser missing = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUser(ctx, "tenant_zzz", 1); !errors.Is(err, store.ErrTenantNotFound) {
		t.Fatalf("GetUser unknown tenant = %v, want ErrTenantNotFound", err)
	}
}

func TestCreateUserAssignsNextIDAndPersists(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "tenant_a", store.UserCreate{
		Username: "bob",
		Password: "$2a$hashed",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.UserID != 2 {
		t.Errorf("user_id = %d, want 2", u.UserID)
	}
	if u.Credentials.Username != "bob@tenant_a" {
		t.Errorf("username = %q", u.Credentials.Username)
	}
	if u.Credentials.CreatedAt != "2025-07-01T09:00:00Z" {
		t.Errorf("created_at = %q", u.Credentials.CreatedAt)
	}

	// The users document on disk now holds both records.
	data, err := os.ReadFile(filepath.Join(dir, "tenant_a", "users.json"))
	if err != nil {
		t.Fatalf("read users.json: %v", err)
	}
	var doc store.UsersDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode users.json: %v", err)
	}
	if len(doc.Users) != 2 {
		t.Fatalf("persisted users = %d, want 2", len(doc.Users))
	}
}

func TestCreateUserFirstUserInEmptyTenant(t *testing.T) {
	s, _ := newTestStore(t)
	u, err := s.CreateUser(context.Background(), "tenant_b", store.UserCreate{
		Username: "first",
		Password: "$2a$hashed",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.UserID != 1 {
		t.Errorf("user_id = %d, want 1", u.UserID)
	}
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.UpdateUser(ctx, "tenant_a", 1, map[string]any{"notes": "updated"})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Notes != "updated" {
		t.Errorf("notes = %q", u.Notes)
	}
	// Reload through the store to check the write stuck.
	u, err = s.GetUser(ctx, "tenant_a", 1)
	if err != nil {
		t.Fatalf("GetUser after update: %v", err)
	}
	if u.Notes != "updated" {
		t.Errorf("persisted notes = %q", u.Notes)
	}

	if _, err := s.UpdateUser(ctx, "tenant_a", 42, map[string]any{"notes": "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateUser missing = %v, want ErrNotFound", err)
	}
}

func TestCreateAndUpdateEquipment(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	eq, err := s.CreateEquipment(ctx, "tenant_a", store.EquipmentCreate{Name: "Press", Type: "machine"})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	if eq.ID != 2 {
		t.Errorf("id = %d, want 2", eq.ID)
	}
	if eq.Status != "available" {
		t.Errorf("status = %q, want available", eq.Status)
	}

	eq, err = s.UpdateEquipment(ctx, "tenant_a", 2, map[string]any{"status": "maintenance"})
	if err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}
	if eq.Status != "maintenance" {
		t.Errorf("status = %q", eq.Status)
	}
}

func TestGetDocument(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetDocument(ctx, "tenant_a", store.DocCRM); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetDocument missing = %v, want ErrNotFound", err)
	}

	writeFixture(t, filepath.Join(dir, "tenant_a", "crm.json"), map[string]any{
		"customers": []any{map[string]any{"name": "ACME"}},
	})
	doc, err := s.GetDocument(ctx, "tenant_a", store.DocCRM)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(doc, &body); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if _, ok := body["customers"]; !ok {
		t.Error("customers key missing")
	}

	if _, err := s.GetDocument(ctx, "tenant_a", "users"); err == nil {
		t.Fatal("expected error for non-auxiliary document name")
	}
	if _, err := s.GetDocument(ctx, "tenant_zzz", store.DocCRM); !errors.Is(err, store.ErrTenantNotFound) {
		t.Fatalf("GetDocument unknown tenant = %v, want ErrTenantNotFound", err)
	}
}

func TestNewRequiresDataDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty data dir")
	}
}

func TestWatcherInvalidatesCacheOnExternalWrite(t *testing.T) {
	s, dir := newTestStore(t)
	if s.watcher == nil {
		t.Skip("watcher unavailable on this system")
	}
	ctx := context.Background()

	// Populate the cache (and register the tenant directory with the
	// watcher as a side effect of the read).
	users, err := s.GetTenantUsers(ctx, "tenant_a")
	if err != nil {
		t.Fatalf("GetTenantUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("len = %d, want 1", len(users))
	}

	// Rewrite users.json behind the store's back, the way hand-edited
	// deployments do.
	writeFixture(t, filepath.Join(dir, "tenant_a", "users.json"), store.UsersDocument{
		Users: []store.User{
			{UserID: 1, TenantID: "tenant_a", Credentials: store.Credentials{Username: "alice@tenant_a", IsActive: true}},
			{UserID: 2, TenantID: "tenant_a", Credentials: store.Credentials{Username: "zoe@tenant_a", IsActive: true}},
		},
	})

	// Event delivery is asynchronous; poll until the eviction lands.
	deadline := time.Now().Add(5 * time.Second)
	for {
		users, err = s.GetTenantUsers(ctx, "tenant_a")
		if err != nil {
			t.Fatalf("GetTenantUsers: %v", err)
		}
		if len(users) == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache never invalidated; still %d users", len(users))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
