package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trafficreg/internal/ledger"
	vehiclemodels "trafficreg/internal/vehicle/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/httputil"
	"trafficreg/pkg/platform/pagination"
)

type VehicleService interface {
	TokenReader
	RegisterVehicle(ctx context.Context, in vehiclemodels.RegisterVehicleInput) (*vehiclemodels.VehicleRegistration, ledger.Receipt, error)
	GetVehicle(ctx context.Context, plateNo string) (*vehiclemodels.VehicleRegistration, error)
	GetVehiclesByHolder(ctx context.Context, holder id.Address) ([]*vehiclemodels.VehicleRegistration, error)
	ListVehicles(ctx context.Context, page pagination.Page) (pagination.Result[*vehiclemodels.VehicleRegistration], error)
	UpdateVehicle(ctx context.Context, plateNo string, in vehiclemodels.UpdateVehicleInput) (*vehiclemodels.VehicleRegistration, ledger.Receipt, error)
	RevokeVehicle(ctx context.Context, plateNo string) (*vehiclemodels.VehicleRegistration, ledger.Receipt, error)
}

func (h *Handler) handleRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[vehiclemodels.RegisterVehicleInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	vehicle, receipt, err := h.svc.Vehicles.RegisterVehicle(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusCreated, receipt, vehicle)
}

func (h *Handler) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.svc.Vehicles.GetVehicle(r.Context(), chi.URLParam(r, "plateNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vehicle)
}

func (h *Handler) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Vehicles.ListVehicles(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[vehiclemodels.UpdateVehicleInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	vehicle, receipt, err := h.svc.Vehicles.UpdateVehicle(r.Context(), chi.URLParam(r, "plateNo"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, vehicle)
}

func (h *Handler) handleRevokeVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, receipt, err := h.svc.Vehicles.RevokeVehicle(r.Context(), chi.URLParam(r, "plateNo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, vehicle)
}

func (h *Handler) handleVehiclesByHolder(w http.ResponseWriter, r *http.Request) {
	holder, err := addressParam(r, "address")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.svc.Vehicles.GetVehiclesByHolder(r.Context(), holder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	balance, err := h.svc.Vehicles.BalanceOf(r.Context(), holder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, holderCredentials[*vehiclemodels.VehicleRegistration]{Holder: holder, Balance: balance, Items: items})
}
