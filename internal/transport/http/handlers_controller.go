package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	accessmodels "trafficreg/internal/access/models"
	controllermodels "trafficreg/internal/controller/models"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/httputil"
)

type ControllerService interface {
	GetAllCoreContracts(ctx context.Context) (controllermodels.Record, error)
	SetPeer(ctx context.Context, kind controllermodels.Kind, addr id.Address) (ledger.Receipt, error)
	IsPeer(ctx context.Context, kind controllermodels.Kind, addr id.Address) (bool, error)
	Pause(ctx context.Context) (ledger.Receipt, error)
	Unpause(ctx context.Context) (ledger.Receipt, error)
}

// RoleService is the role surface every registry exposes for its own scope.
type RoleService interface {
	GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	HasRole(ctx context.Context, role accessmodels.Role, principal id.Address) (bool, error)
}

type setPeerRequest struct {
	Address id.Address `json:"address"`
}

func (h *Handler) handleGetController(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Controller.GetAllCoreContracts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleSetPeer(w http.ResponseWriter, r *http.Request) {
	kind, err := controllermodels.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := httputil.DecodeJSON[setPeerRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := h.svc.Controller.SetPeer(r.Context(), kind, req.Address)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, nil)
}

func (h *Handler) handleIsPeer(w http.ResponseWriter, r *http.Request) {
	kind, err := controllermodels.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	addr, err := addressParam(r, "address")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok, err := h.svc.Controller.IsPeer(r.Context(), kind, addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"member": ok})
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.svc.Controller.Pause(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, nil)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.svc.Controller.Unpause(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, nil)
}

func (h *Handler) roleTarget(r *http.Request) (RoleService, accessmodels.Role, id.Address, error) {
	scope, err := accessmodels.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		return nil, accessmodels.Role{}, id.ZeroAddress, err
	}
	svc, ok := h.svc.Roles[scope]
	if !ok {
		return nil, accessmodels.Role{}, id.ZeroAddress, dErrors.New(dErrors.CodeNotFound, "no registry serves scope "+string(scope))
	}
	role, err := accessmodels.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, accessmodels.Role{}, id.ZeroAddress, err
	}
	principal, err := addressParam(r, "principal")
	if err != nil {
		return nil, accessmodels.Role{}, id.ZeroAddress, err
	}
	return svc, role, principal, nil
}

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	svc, role, principal, err := h.roleTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := svc.GrantRole(r.Context(), role, principal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, nil)
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	svc, role, principal, err := h.roleTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := svc.RevokeRole(r.Context(), role, principal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeMutation(w, http.StatusOK, receipt, nil)
}

func (h *Handler) handleHasRole(w http.ResponseWriter, r *http.Request) {
	svc, role, principal, err := h.roleTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	has, err := svc.HasRole(r.Context(), role, principal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"has_role": has})
}
