package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	agencymodels "trafficreg/internal/agency/models"
	"trafficreg/internal/ledger"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/pagination"
)

type AgencyService interface {
	IssueAgency(ctx context.Context, in agencymodels.IssueAgencyInput) (*agencymodels.Agency, ledger.Receipt, error)
	GetAgency(ctx context.Context, agencyID string) (*agencymodels.Agency, error)
	ListAgencies(ctx context.Context, page pagination.Page) (pagination.Result[*agencymodels.Agency], error)
	RevokeAgency(ctx context.Context, agencyID string) (*agencymodels.Agency, ledger.Receipt, error)
}

func (h *Handler) handleIssueAgency(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[agencymodels.IssueAgencyInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	agency, receipt, err := h.svc.Agencies.IssueAgency(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusCreated, receipt, agency)
}

func (h *Handler) handleGetAgency(w http.ResponseWriter, r *http.Request) {
	agency, err := h.svc.Agencies.GetAgency(r.Context(), chi.URLParam(r, "agencyID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agency)
}

func (h *Handler) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Agencies.ListAgencies(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRevokeAgency(w http.ResponseWriter, r *http.Request) {
	agency, receipt, err := h.svc.Agencies.RevokeAgency(r.Context(), chi.URLParam(r, "agencyID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, agency)
}
