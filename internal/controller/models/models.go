package models

import (
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
)

// Kind names one of the four peer registries the controller binds.
type Kind string

const (
	KindGovAgency           Kind = "gov-agency"
	KindVehicleRegistration Kind = "vehicle-registration"
	KindOffenceAndRenewal   Kind = "offence-and-renewal"
	KindDriverLicense       Kind = "driver-license"
)

// Kinds lists the peer kinds in the order GetAllCoreContracts reports them.
var Kinds = []Kind{KindGovAgency, KindVehicleRegistration, KindOffenceAndRenewal, KindDriverLicense}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown peer kind: "+s)
}

// Record is the controller's capability table: the bound peer addresses
// and the system-wide pause switch. Field order is the stable order of
// GetAllCoreContracts.
//
// Invariants:
//   - each address is written only by its typed setter
//   - Paused blocks every mutating operation except Unpause
type Record struct {
	GovAgency           id.Address `json:"gov_agency"`
	VehicleRegistration id.Address `json:"vehicle_registration"`
	OffenceAndRenewal   id.Address `json:"offence_and_renewal"`
	DriverLicense       id.Address `json:"driver_license"`
	Paused              bool       `json:"paused"`
}

// Peer returns the address bound for kind.
func (r Record) Peer(kind Kind) id.Address {
	switch kind {
	case KindGovAgency:
		return r.GovAgency
	case KindVehicleRegistration:
		return r.VehicleRegistration
	case KindOffenceAndRenewal:
		return r.OffenceAndRenewal
	case KindDriverLicense:
		return r.DriverLicense
	default:
		return id.ZeroAddress
	}
}

// SetPeer overwrites the address bound for kind.
func (r *Record) SetPeer(kind Kind, addr id.Address) {
	switch kind {
	case KindGovAgency:
		r.GovAgency = addr
	case KindVehicleRegistration:
		r.VehicleRegistration = addr
	case KindOffenceAndRenewal:
		r.OffenceAndRenewal = addr
	case KindDriverLicense:
		r.DriverLicense = addr
	}
}

// IsWired reports whether all four peers are bound.
func (r Record) IsWired() bool {
	for _, k := range Kinds {
		if r.Peer(k).IsZero() {
			return false
		}
	}
	return true
}

// CanPause checks the pause transition.
func (r Record) CanPause() error {
	if r.Paused {
		return dErrors.New(dErrors.CodeInvariantViolation, "system is already paused")
	}
	return nil
}

func (r *Record) ApplyPause() {
	r.Paused = true
}

// CanUnpause checks the unpause transition.
func (r Record) CanUnpause() error {
	if !r.Paused {
		return dErrors.New(dErrors.CodeInvariantViolation, "system is not paused")
	}
	return nil
}

func (r *Record) ApplyUnpause() {
	r.Paused = false
}
