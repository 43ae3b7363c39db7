package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trafficreg/internal/ledger"
	licensemodels "trafficreg/internal/license/models"
	offencemodels "trafficreg/internal/offence/models"
	"trafficreg/pkg/platform/httputil"
)

type OffenceService interface {
	AddRenewRule(ctx context.Context, in offencemodels.AddRenewRuleInput) (*offencemodels.RenewRule, ledger.Receipt, error)
	GetRenewRule(ctx context.Context, licenseType string) (*offencemodels.RenewRule, error)
	GetAllRenewRules(ctx context.Context) ([]*offencemodels.RenewRule, error)
	RevokeRenewRule(ctx context.Context, licenseType string) (*offencemodels.RenewRule, ledger.Receipt, error)
	DeductPoint(ctx context.Context, licenseNo string, offence offencemodels.Offence) (*licensemodels.DriverLicense, ledger.Receipt, error)
	RenewLicense(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, ledger.Receipt, error)
	ResetPointsToMax(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, ledger.Receipt, error)
	ResetAllPointsToMax(ctx context.Context) (offencemodels.ResetResult, ledger.Receipt, error)
	UpdateAllLicenseStatuses(ctx context.Context) (offencemodels.SweepResult, ledger.Receipt, error)
}

func (h *Handler) handleAddRenewRule(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[offencemodels.AddRenewRuleInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rule, receipt, err := h.svc.Offences.AddRenewRule(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusCreated, receipt, rule)
}

func (h *Handler) handleGetRenewRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.Offences.GetRenewRule(r.Context(), chi.URLParam(r, "licenseType"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleListRenewRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.Offences.GetAllRenewRules(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": rules})
}

func (h *Handler) handleRevokeRenewRule(w http.ResponseWriter, r *http.Request) {
	rule, receipt, err := h.svc.Offences.RevokeRenewRule(r.Context(), chi.URLParam(r, "licenseType"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, rule)
}

func (h *Handler) handleDeductPoint(w http.ResponseWriter, r *http.Request) {
	offence, err := httputil.DecodeJSON[offencemodels.Offence](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	license, receipt, err := h.svc.Offences.DeductPoint(r.Context(), chi.URLParam(r, "licenseNo"), offence)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, license)
}

func (h *Handler) handleRenewLicense(w http.ResponseWriter, r *http.Request) {
	license, receipt, err := h.svc.Offences.RenewLicense(r.Context(), chi.URLParam(r, "licenseNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, license)
}

func (h *Handler) handleResetPoints(w http.ResponseWriter, r *http.Request) {
	license, receipt, err := h.svc.Offences.ResetPointsToMax(r.Context(), chi.URLParam(r, "licenseNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, license)
}

func (h *Handler) handleResetAllPoints(w http.ResponseWriter, r *http.Request) {
	result, receipt, err := h.svc.Offences.ResetAllPointsToMax(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, result)
}

func (h *Handler) handleSweepStatuses(w http.ResponseWriter, r *http.Request) {
	result, receipt, err := h.svc.Offences.UpdateAllLicenseStatuses(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, result)
}
