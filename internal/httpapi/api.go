package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/obs"
	"cyimg.org/internal/settings"
)

// ReadyProbe checks backing-store readiness (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tune the outer middleware. Zero values pick the defaults.
type Options struct {
	Version      string
	MaxBodyBytes int64
	RateRPS      float64
	RateBurst    int
}

// API is the HTTP layer over the auth and settings services.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	settings   *settings.Service
	readyProbe ReadyProbe
	opts       Options
}

func New(authSvc *auth.Service, settingsSvc *settings.Service, rp ReadyProbe, opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RateRPS <= 0 {
		opts.RateRPS = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 100
	}
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		settings:   settingsSvc,
		readyProbe: rp,
		opts:       opts,
	}

	// session
	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/register", a.handleRegister)
	a.mux.HandleFunc("/logout", a.handleLogout)
	a.mux.HandleFunc("/userinfo", a.handleUserInfo)
	a.mux.HandleFunc("/protected", a.handleProtected)

	// permissions
	a.mux.HandleFunc("/permissions", a.handlePermissions)
	a.mux.HandleFunc("/permissions/routes", a.handlePermissionRoutes)
	a.mux.HandleFunc("/permissions/validate", a.handlePermissionValidate)

	// admin
	a.mux.HandleFunc("/admin", a.handleAdmin)
	a.mux.HandleFunc("/user", a.handleUser)
	a.mux.HandleFunc("/user/", a.handleUserByID)
	a.mux.HandleFunc("/user/page", a.handleUserPage)

	// settings
	a.mux.HandleFunc("/settings", a.handleSettings)

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		notFoundJSON(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux. Order matters:
// the request id must exist before logging and rate limiting reference it,
// and authentication runs innermost so 429s never leak token validity.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.opts.RateRPS, a.opts.RateBurst)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- probes ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "cyimg-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "cyimg-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}
