package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trafficreg/internal/platform/metrics"
	"trafficreg/internal/platform/middleware"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/middleware/metadata"
	"trafficreg/pkg/platform/middleware/requesttime"
)

// RouterConfig carries the cross-cutting dependencies of the router.
type RouterConfig struct {
	Validator      middleware.JWTValidator
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
	// RateLimit, when set, runs after authentication so budgets are per caller.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter wires every public endpoint. Everything under /v1 requires a
// bearer token whose subject becomes the operation's caller.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(chimw.Timeout(timeout))
		v1.Use(middleware.ContentTypeJSON)
		v1.Use(middleware.RequireAuth(cfg.Validator, logger))
		if cfg.RateLimit != nil {
			v1.Use(cfg.RateLimit)
		}
		v1.Use(requesttime.Middleware)

		v1.Route("/controller", func(c chi.Router) {
			c.Get("/", h.handleGetController)
			c.Put("/peers/{kind}", h.handleSetPeer)
			c.Get("/peers/{kind}/{address}", h.handleIsPeer)
			c.Post("/pause", h.handlePause)
			c.Post("/unpause", h.handleUnpause)
		})

		v1.Route("/roles/{scope}/{role}/{principal}", func(rr chi.Router) {
			rr.Post("/", h.handleGrantRole)
			rr.Delete("/", h.handleRevokeRole)
			rr.Get("/", h.handleHasRole)
		})

		v1.Route("/agencies", func(a chi.Router) {
			a.Post("/", h.handleIssueAgency)
			a.Get("/", h.handleListAgencies)
			a.Get("/{agencyID}", h.handleGetAgency)
			a.Post("/{agencyID}/revoke", h.handleRevokeAgency)
		})

		v1.Route("/licenses", func(l chi.Router) {
			l.Post("/", h.handleIssueLicense)
			l.Get("/", h.handleListLicenses)
			l.Route("/tokens", h.tokenRoutes(h.svc.Licenses))
			l.Post("/reset-points", h.handleResetAllPoints)
			l.Post("/statuses/sweep", h.handleSweepStatuses)
			l.Get("/{licenseNo}", h.handleGetLicense)
			l.Patch("/{licenseNo}", h.handleUpdateLicense)
			l.Post("/{licenseNo}/revoke", h.handleRevokeLicense)
			l.Post("/{licenseNo}/offences", h.handleDeductPoint)
			l.Post("/{licenseNo}/renew", h.handleRenewLicense)
			l.Post("/{licenseNo}/reset-points", h.handleResetPoints)
		})

		v1.Route("/vehicles", func(vr chi.Router) {
			vr.Post("/", h.handleRegisterVehicle)
			vr.Get("/", h.handleListVehicles)
			vr.Route("/tokens", h.tokenRoutes(h.svc.Vehicles))
			vr.Get("/{plateNo}", h.handleGetVehicle)
			vr.Patch("/{plateNo}", h.handleUpdateVehicle)
			vr.Post("/{plateNo}/revoke", h.handleRevokeVehicle)
		})

		v1.Route("/holders/{address}", func(hr chi.Router) {
			hr.Get("/licenses", h.handleLicensesByHolder)
			hr.Get("/vehicles", h.handleVehiclesByHolder)
		})

		v1.Route("/renew-rules", func(rr chi.Router) {
			rr.Post("/", h.handleAddRenewRule)
			rr.Get("/", h.handleListRenewRules)
			rr.Get("/{licenseType}", h.handleGetRenewRule)
			rr.Post("/{licenseType}/revoke", h.handleRevokeRenewRule)
		})
	})
	return r
}
