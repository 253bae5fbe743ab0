// Package httpapi is the HTTP surface of the platform: route registration,
// the per-request guard, and handlers for tenant-scoped resources.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/obs"
	"vbsplatform.org/internal/store"
)

const serviceName = "vbs-platform-api"

// ReadyProbe checks the backing store: a DB ping when Postgres is in use,
// otherwise presence of the data directory.
type ReadyProbe struct {
	DB      *sql.DB
	DataDir string
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		return rp.DB.PingContext(ctx)
	}
	if rp.DataDir != "" {
		if _, err := os.Stat(rp.DataDir); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	store       store.Store
	auth        *auth.Service
	readyProbe  ReadyProbe
	version     string
	corsOrigins []string
}

// New wires routes to handlers.
func New(st store.Store, authSvc *auth.Service, rp ReadyProbe, version string, corsOrigins []string) *API {
	a := &API{
		mux:         http.NewServeMux(),
		store:       st,
		auth:        authSvc,
		readyProbe:  rp,
		version:     version,
		corsOrigins: corsOrigins,
	}

	a.mux.HandleFunc("/api/health", a.handleHealth)
	a.mux.HandleFunc("/readyz", a.handleReady)

	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)

	a.mux.HandleFunc("/api/admin/tenants", a.handleAdminTenants)
	a.mux.HandleFunc("/api/tenants/", a.handleTenantScoped)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", a.handleRoot)

	return a
}

// Handler returns the fully wrapped handler: metrics instrumentation on the
// outside, then request id, logging, hardening, CORS, body limits, rate
// limiting, and the token guard in front of the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":          "VBS Production Management Platform API",
		"version":       a.version,
		"status":        "operational",
		"multi_tenant":  true,
		"documentation": "/api/docs",
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
