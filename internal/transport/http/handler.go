package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/pagination"
	"trafficreg/pkg/requestcontext"
)

// Services are the registries the HTTP surface delegates to.
type Services struct {
	Controller ControllerService
	Agencies   AgencyService
	Licenses   LicenseService
	Vehicles   VehicleService
	Offences   OffenceService
	// Roles maps each scope to the registry that guards its role grants.
	Roles map[accessmodels.Scope]RoleService
}

// Handler is the thin HTTP layer. It parses requests, calls a registry and
// renders the result; authorization lives in the registries.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// mutation is the response body of every state-changing route.
type mutation struct {
	Receipt ledger.Receipt `json:"receipt"`
	Record  any            `json:"record,omitempty"`
}

func (h *Handler) writeMutation(w http.ResponseWriter, status int, receipt ledger.Receipt, record any) {
	httputil.WriteJSON(w, status, mutation{Receipt: receipt, Record: record})
}

// fail logs server-side failures and renders the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if dErrors.ToHTTPStatus(err) == http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.DebugContext(ctx, "request rejected",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func addressParam(r *http.Request, name string) (id.Address, error) {
	addr, err := id.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return id.ZeroAddress, dErrors.New(dErrors.CodeBadRequest, "invalid "+name+": "+chi.URLParam(r, name))
	}
	return addr, nil
}

func tokenParam(r *http.Request) (id.TokenID, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, "tokenID"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid token id: "+chi.URLParam(r, "tokenID"))
	}
	return id.TokenID(v), nil
}

func pageParam(r *http.Request) (pagination.Page, error) {
	q := r.URL.Query()
	page := pagination.Page{After: q.Get("after")}
	if raw := q.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return page, dErrors.New(dErrors.CodeBadRequest, "invalid page size: "+raw)
		}
		page.Size = size
	}
	return page, nil
}
