package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/ledger"
	licensemodels "trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/pagination"
)

// TokenReader is the token-book surface shared by both credential
// registries.
type TokenReader interface {
	Stats(ctx context.Context) (token.Stats, error)
	BalanceOf(ctx context.Context, holder id.Address) (uint64, error)
	OwnerOf(ctx context.Context, tokenID id.TokenID) (id.Address, error)
	IsValid(ctx context.Context, tokenID id.TokenID) (bool, error)
}

type LicenseService interface {
	TokenReader
	IssueLicense(ctx context.Context, in licensemodels.IssueLicenseInput) (*licensemodels.DriverLicense, ledger.Receipt, error)
	GetLicense(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, error)
	GetLicensesByHolder(ctx context.Context, holder id.Address) ([]*licensemodels.DriverLicense, error)
	ListLicenses(ctx context.Context, page pagination.Page) (pagination.Result[*licensemodels.DriverLicense], error)
	UpdateLicense(ctx context.Context, licenseNo string, in licensemodels.UpdateLicenseInput) (*licensemodels.DriverLicense, ledger.Receipt, error)
	RevokeLicense(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, ledger.Receipt, error)
}

type tokenValidity struct {
	TokenID id.TokenID `json:"token_id"`
	Owner   id.Address `json:"owner"`
	Valid   bool       `json:"valid"`
}

type holderCredentials[T any] struct {
	Holder  id.Address `json:"holder"`
	Balance uint64     `json:"balance"`
	Items   []T        `json:"items"`
}

func (h *Handler) handleIssueLicense(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[licensemodels.IssueLicenseInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	license, receipt, err := h.svc.Licenses.IssueLicense(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusCreated, receipt, license)
}

func (h *Handler) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	license, err := h.svc.Licenses.GetLicense(r.Context(), chi.URLParam(r, "licenseNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, license)
}

func (h *Handler) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Licenses.ListLicenses(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdateLicense(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[licensemodels.UpdateLicenseInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	license, receipt, err := h.svc.Licenses.UpdateLicense(r.Context(), chi.URLParam(r, "licenseNo"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, license)
}

func (h *Handler) handleRevokeLicense(w http.ResponseWriter, r *http.Request) {
	license, receipt, err := h.svc.Licenses.RevokeLicense(r.Context(), chi.URLParam(r, "licenseNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, license)
}

func (h *Handler) handleLicensesByHolder(w http.ResponseWriter, r *http.Request) {
	holder, err := addressParam(r, "address")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.svc.Licenses.GetLicensesByHolder(r.Context(), holder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	balance, err := h.svc.Licenses.BalanceOf(r.Context(), holder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, holderCredentials[*licensemodels.DriverLicense]{Holder: holder, Balance: balance, Items: items})
}

// tokenRoutes serves the stats and validity reads of a token book.
func (h *Handler) tokenRoutes(reader TokenReader) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			stats, err := reader.Stats(req.Context())
			if err != nil {
				h.fail(w, req, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, stats)
		})
		r.Get("/{tokenID}/valid", func(w http.ResponseWriter, req *http.Request) {
			tokenID, err := tokenParam(req)
			if err != nil {
				h.fail(w, req, err)
				return
			}
			owner, err := reader.OwnerOf(req.Context(), tokenID)
			if err != nil {
				h.fail(w, req, err)
				return
			}
			valid, err := reader.IsValid(req.Context(), tokenID)
			if err != nil {
				h.fail(w, req, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, tokenValidity{TokenID: tokenID, Owner: owner, Valid: valid})
		})
	}
}
