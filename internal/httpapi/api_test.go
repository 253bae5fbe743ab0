package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/store"
)

// fakeStore is an in-memory store for handler tests. dataReads counts every
// access to tenant-scoped collections so tests can assert that denied
// requests never touch tenant data.
type fakeStore struct {
	tenants   map[string]store.Tenant
	users     map[string][]store.User
	equipment map[string][]store.Equipment
	documents map[string]map[string]json.RawMessage

	dataReads int
}

func (f *fakeStore) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	out := make([]store.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) GetTenant(ctx context.Context, tenantID string) (*store.Tenant, error) {
	t, ok := f.tenants[tenantID]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	return &t, nil
}

func (f *fakeStore) checkTenant(tenantID string) error {
	if _, ok := f.tenants[tenantID]; !ok {
		return store.ErrTenantNotFound
	}
	return nil
}

func (f *fakeStore) GetTenantUsers(ctx context.Context, tenantID string) ([]store.User, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	f.dataReads++
	return f.users[tenantID], nil
}

func (f *fakeStore) GetUser(ctx context.Context, tenantID string, userID int) (*store.User, error) {
	users, err := f.GetTenantUsers(ctx, tenantID)
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

func (f *fakeStore) CreateUser(ctx context.Context, tenantID string, in store.UserCreate) (*store.User, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	u := store.BuildUser(tenantID, store.NextUserID(f.users[tenantID]), in, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
	f.users[tenantID] = append(f.users[tenantID], u)
	return &u, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, tenantID string, userID int, patch map[string]any) (*store.User, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	users := f.users[tenantID]
	for i := range users {
		if users[i].UserID == userID {
			if err := store.ApplyPatch(&users[i], patch); err != nil {
				return nil, err
			}
			return &users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetTenantEquipment(ctx context.Context, tenantID string) ([]store.Equipment, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	f.dataReads++
	return f.equipment[tenantID], nil
}

func (f *fakeStore) GetEquipment(ctx context.Context, tenantID string, equipmentID int) (*store.Equipment, error) {
	items, err := f.GetTenantEquipment(ctx, tenantID)
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

func (f *fakeStore) CreateEquipment(ctx context.Context, tenantID string, in store.EquipmentCreate) (*store.Equipment, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	eq := store.BuildEquipment(tenantID, store.NextEquipmentID(f.equipment[tenantID]), in)
	f.equipment[tenantID] = append(f.equipment[tenantID], eq)
	return &eq, nil
}

func (f *fakeStore) UpdateEquipment(ctx context.Context, tenantID string, equipmentID int, patch map[string]any) (*store.Equipment, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	items := f.equipment[tenantID]
	for i := range items {
		if items[i].ID == equipmentID {
			if err := store.ApplyPatch(&items[i], patch); err != nil {
				return nil, err
			}
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetDocument(ctx context.Context, tenantID, name string) (json.RawMessage, error) {
	if err := f.checkTenant(tenantID); err != nil {
		return nil, err
	}
	f.dataReads++
	doc, ok := f.documents[tenantID][name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

type testEnv struct {
	api     *API
	handler http.Handler
	store   *fakeStore
	svc     *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	st := &fakeStore{
		tenants: map[string]store.Tenant{
			"tenant_a": {TenantID: "tenant_a", TenantName: "Alpha", DataPath: "tenant_a", IsActive: true},
			"tenant_b": {TenantID: "tenant_b", TenantName: "Beta", DataPath: "tenant_b", IsActive: true},
			"tenant_c": {TenantID: "tenant_c", TenantName: "Gamma", DataPath: "tenant_c", IsActive: false},
		},
		users: map[string][]store.User{
			"tenant_a": {
				{
					UserID:       1,
					TenantID:     "tenant_a",
					PersonalInfo: store.PersonalInfo{FirstName: "Alice", LastName: "Adler"},
					Credentials: store.Credentials{
						Username:    "alice@tenant_a",
						Password:    hash,
						Role:        "admin",
						Permissions: []string{auth.PermUserManagement, auth.PermEquipmentManagement},
						IsActive:    true,
					},
				},
				{
					UserID: 2,
					Credentials: store.Credentials{
						Username: "bob@tenant_a",
						Password: hash,
						Role:     "editor",
						IsActive: true,
					},
				},
			},
		},
		equipment: map[string][]store.Equipment{
			"tenant_a": {
				{ID: 1, TenantID: "tenant_a", Name: "Lathe", Type: "machine", Status: "available"},
			},
		},
		documents: map[string]map[string]json.RawMessage{
			"tenant_a": {
				store.DocProduction: json.RawMessage(`{"productions":[{"id":1}]}`),
			},
		},
	}

	codec, err := auth.NewCodec("httpapi-test-secret", auth.WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := auth.NewService(st, codec, auth.WithBcryptCost(4))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(st, svc, ReadyProbe{}, "test", []string{"http://localhost:3000"})
	return &testEnv{api: api, handler: api.Handler(), store: st, svc: svc}
}

// token mints a signed token for the given identity.
func (e *testEnv) token(t *testing.T, userID int, tenantID, username, role string, perms ...string) string {
	t.Helper()
	tok, _, err := e.svc.Codec().Issue(auth.Claims{
		UserID:      userID,
		TenantID:    tenantID,
		Username:    username,
		Role:        role,
		Permissions: perms,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.token(t, 1, "tenant_a", "alice@tenant_a", auth.RoleAdmin,
		auth.PermUserManagement, auth.PermEquipmentManagement)
}

func (e *testEnv) editorToken(t *testing.T) string {
	return e.token(t, 2, "tenant_a", "bob@tenant_a", auth.RoleEditor)
}

// do issues a request against the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.10:54321"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %q", rec.Body.String())
	}
	msg, _ := errObj["message"].(string)
	return msg
}
