package httptransport

import (
	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/system"
)

// ServicesFor exposes a deployed registry set over HTTP.
func ServicesFor(sys *system.System) Services {
	return Services{
		Controller: sys.Controller,
		Agencies:   sys.Agencies,
		Licenses:   sys.Licenses,
		Vehicles:   sys.Vehicles,
		Offences:   sys.Offences,
		Roles: map[accessmodels.Scope]RoleService{
			accessmodels.ScopeController:    sys.Controller,
			accessmodels.ScopeGovAgency:     sys.Agencies,
			accessmodels.ScopeDriverLicense: sys.Licenses,
			accessmodels.ScopeVehicle:       sys.Vehicles,
			accessmodels.ScopeOffence:       sys.Offences,
		},
	}
}
