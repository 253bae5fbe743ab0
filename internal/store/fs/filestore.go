// Package fs implements the document store over per-tenant JSON files, the
// platform's primary storage layout:
//
//	<data-dir>/tenants.json
//	<data-dir>/<data_path>/users.json
//	<data-dir>/<data_path>/equipment.json
//	<data-dir>/<data_path>/{crm,production,dashboard-config}.json
//
// Reads go through an in-memory byte cache; a directory watcher evicts
// entries when files change on disk (the dashboards are still edited by
// hand in some deployments). Writes rewrite the whole document.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"

	"vbsplatform.org/internal/store"
)

const cacheTTL = 5 * time.Minute

var _ store.Store = (*FileStore)(nil)

// FileStore serves tenant documents from a data directory.
type FileStore struct {
	dataDir string
	cache   *gocache.Cache
	watcher *fsnotify.Watcher
	now     func() time.Time

	// Serializes read-modify-write cycles. Concurrent reads are safe; the
	// store gives no ordering guarantee across separate requests.
	mu sync.Mutex
}

// Option configures FileStore behavior.
type Option func(*FileStore)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *FileStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New opens a file store rooted at dataDir. The directory watcher is
// best-effort: if it cannot be created the store still works, with cache
// entries expiring on TTL only.
func New(dataDir string, opts ...Option) (*FileStore, error) {
	if dataDir == "" {
		return nil, errors.New("fs: data directory is required")
	}
	s := &FileStore{
		dataDir: filepath.Clean(dataDir),
		cache:   gocache.New(cacheTTL, time.Minute),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		s.watcher = w
		_ = w.Add(s.dataDir)
		go s.watch()
	}
	return s, nil
}

// Close releases the directory watcher.
func (s *FileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileStore) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.cache.Delete(event.Name)
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// readFile returns the file bytes, or nil if the file does not exist.
func (s *FileStore) readFile(path string) ([]byte, error) {
	if v, ok := s.cache.Get(path); ok {
		return v.([]byte), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	s.cache.Set(path, data, gocache.DefaultExpiration)
	if s.watcher != nil {
		_ = s.watcher.Add(filepath.Dir(path))
	}
	return data, nil
}

// readJSON decodes path into dst. Missing files report found=false; dst is
// left untouched.
func (s *FileStore) readJSON(path string, dst any) (bool, error) {
	data, err := s.readFile(path)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return true, nil
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	s.cache.Delete(path)
	return nil
}

func (s *FileStore) tenantsPath() string {
	return filepath.Join(s.dataDir, "tenants.json")
}

func (s *FileStore) tenantFile(t *store.Tenant, name string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(t.DataPath), name+".json")
}

// ListTenants returns the full tenant registry.
func (s *FileStore) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	var doc store.TenantsDocument
	if _, err := s.readJSON(s.tenantsPath(), &doc); err != nil {
		return nil, err
	}
	if doc.Tenants == nil {
		doc.Tenants = []store.Tenant{}
	}
	return doc.Tenants, nil
}

// GetTenant returns the tenant or store.ErrTenantNotFound.
func (s *FileStore) GetTenant(ctx context.Context, tenantID string) (*store.Tenant, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		if tenants[i].TenantID == tenantID {
			return &tenants[i], nil
		}
	}
	return nil, store.ErrTenantNotFound
}

func (s *FileStore) usersDocument(ctx context.Context, tenantID string) (*store.Tenant, store.UsersDocument, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, store.UsersDocument{}, err
	}
	var doc store.UsersDocument
	if _, err := s.readJSON(s.tenantFile(tenant, "users"), &doc); err != nil {
		return nil, store.UsersDocument{}, err
	}
	return tenant, doc, nil
}

// GetTenantUsers returns all users of the tenant, empty when the users file
// does not exist yet.
func (s *FileStore) GetTenantUsers(ctx context.Context, tenantID string) ([]store.User, error) {
	_, doc, err := s.usersDocument(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if doc.Users == nil {
		doc.Users = []store.User{}
	}
	return doc.Users, nil
}

// GetUser returns one user or store.ErrNotFound.
func (s *FileStore) GetUser(ctx context.Context, tenantID string, userID int) (*store.User, error) {
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

// CreateUser appends a new user and rewrites the users document.
func (s *FileStore) CreateUser(ctx context.Context, tenantID string, in store.UserCreate) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, doc, err := s.usersDocument(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	user := store.BuildUser(tenantID, store.NextUserID(doc.Users), in, s.now())
	doc.Users = append(doc.Users, user)
	if err := s.writeJSON(s.tenantFile(tenant, "users"), doc); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser shallow-merges patch into the user record and rewrites the
// users document.
func (s *FileStore) UpdateUser(ctx context.Context, tenantID string, userID int, patch map[string]any) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, doc, err := s.usersDocument(ctx, tenantID)
	if err != nil {
		return nil, err
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
	if err := s.writeJSON(s.tenantFile(tenant, "users"), doc); err != nil {
		return nil, err
	}
	return &doc.Users[idx], nil
}

func (s *FileStore) equipmentDocument(ctx context.Context, tenantID string) (*store.Tenant, store.EquipmentDocument, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, store.EquipmentDocument{}, err
	}
	var doc store.EquipmentDocument
	if _, err := s.readJSON(s.tenantFile(tenant, "equipment"), &doc); err != nil {
		return nil, store.EquipmentDocument{}, err
	}
	return tenant, doc, nil
}

// GetTenantEquipment returns all equipment of the tenant.
func (s *FileStore) GetTenantEquipment(ctx context.Context, tenantID string) ([]store.Equipment, error) {
	_, doc, err := s.equipmentDocument(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if doc.Equipment == nil {
		doc.Equipment = []store.Equipment{}
	}
	return doc.Equipment, nil
}

// GetEquipment returns one equipment record or store.ErrNotFound.
func (s *FileStore) GetEquipment(ctx context.Context, tenantID string, equipmentID int) (*store.Equipment, error) {
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

// CreateEquipment appends a new record and rewrites the equipment document.
func (s *FileStore) CreateEquipment(ctx context.Context, tenantID string, in store.EquipmentCreate) (*store.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, doc, err := s.equipmentDocument(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	item := store.BuildEquipment(tenantID, store.NextEquipmentID(doc.Equipment), in)
	doc.Equipment = append(doc.Equipment, item)
	if err := s.writeJSON(s.tenantFile(tenant, "equipment"), doc); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateEquipment shallow-merges patch into the record and rewrites the
// equipment document.
func (s *FileStore) UpdateEquipment(ctx context.Context, tenantID string, equipmentID int, patch map[string]any) (*store.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, doc, err := s.equipmentDocument(ctx, tenantID)
	if err != nil {
		return nil, err
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
	if err := s.writeJSON(s.tenantFile(tenant, "equipment"), doc); err != nil {
		return nil, err
	}
	return &doc.Equipment[idx], nil
}

// GetDocument returns a raw auxiliary document or store.ErrNotFound when the
// tenant has none.
func (s *FileStore) GetDocument(ctx context.Context, tenantID, name string) (json.RawMessage, error) {
	switch name {
	case store.DocCRM, store.DocProduction, store.DocDashboardConfig:
	default:
		return nil, fmt.Errorf("fs: unknown document %q", name)
	}
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	data, err := s.readFile(s.tenantFile(tenant, name))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, store.ErrNotFound
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON in %s document", name)
	}
	return json.RawMessage(data), nil
}
