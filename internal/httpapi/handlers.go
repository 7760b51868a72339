package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/obs"
	"sheetshare.org/internal/service"
	"sheetshare.org/internal/store"
)

// ReadyProbe checks the backing spreadsheet and, when configured, the audit
// database.
type ReadyProbe struct {
	Grid store.Grid
	DB   *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Grid != nil {
		if _, err := rp.Grid.Sheets(ctx); err != nil {
			return err
		}
	}
	if rp.DB != nil {
		return rp.DB.PingContext(ctx)
	}
	return nil
}

// Services are the domain operations the handlers call.
type Services struct {
	Facilities *service.Facilities
	Users      *service.Users
	Records    *service.Records
	Access     *service.Access
}

// Config tunes the HTTP layer.
type Config struct {
	Version             string
	CookieSecure        bool
	AllowedOrigins      []string
	MaxBodyBytes        int64
	LoginRate           float64
	LoginBurst          int
	ServiceAccountEmail string
	Ready               ReadyProbe
	Logger              *zap.Logger
}

// API is the HTTP layer.
type API struct {
	svc      Services
	sessions *auth.SessionCodec
	cfg      Config
	logger   *zap.Logger
}

func New(svc Services, sessions *auth.SessionCodec, cfg Config) (*API, error) {
	if svc.Facilities == nil || svc.Users == nil || svc.Records == nil || svc.Access == nil {
		return nil, errors.New("httpapi: all services are required")
	}
	if sessions == nil {
		return nil, errors.New("httpapi: session codec is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.LoginRate <= 0 {
		cfg.LoginRate = 1
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obs.Logger()
	}
	return &API{svc: svc, sessions: sessions, cfg: cfg, logger: logger}, nil
}

// Handler returns the routed, instrumented handler.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(CORS(a.cfg.AllowedOrigins))
	r.Use(MaxBodyBytes(a.cfg.MaxBodyBytes))
	r.Use(requestMeta)
	r.Use(a.withSession)

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(a.cfg.LoginBurst, a.cfg.LoginRate)).Post("/login", a.login)
		r.Post("/logout", a.logout)
		r.Get("/me", a.me)
		r.Get("/config", a.serviceConfig)

		r.Group(func(r chi.Router) {
			r.Use(a.requireActor)

			r.Post("/me/google-email", a.linkGoogleEmail)

			r.Get("/records", a.listRecords)
			r.Post("/records", a.createRecord)
			r.Put("/records/{id}", a.updateRecord)
			r.Delete("/records/{id}", a.deleteRecord)

			r.Post("/file/{id}/access", a.grantAccess)
			r.Get("/file/{id}", a.openFile)

			r.Get("/users", a.listUsers)
			r.Post("/users", a.createUser)
			r.Put("/users/{id}", a.updateUser)
			r.Delete("/users/{id}", a.deleteUser)

			r.Get("/admin/facilities", a.listFacilities)
			r.Post("/admin/facilities", a.createFacility)
			r.Put("/admin/facilities/{id}", a.updateFacility)
			r.Delete("/admin/facilities/{id}", a.deleteFacility)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return otelhttp.NewHandler(obs.Instrument(r), "sheetshare-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + obs.CanonicalPath(r.URL.Path)
		}),
	)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "sheetshare-api",
		"version": a.cfg.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.cfg.Ready.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) serviceConfig(w http.ResponseWriter, r *http.Request) {
	email := a.cfg.ServiceAccountEmail
	if email == "" {
		email = "Email unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]any{"systemEmail": email})
}
