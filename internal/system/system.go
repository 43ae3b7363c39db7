// Package system deploys the controller and the four registries over one
// ledger and wires them together.
package system

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	accessmodels "trafficreg/internal/access/models"
	accessservice "trafficreg/internal/access/service"
	accessstore "trafficreg/internal/access/store"
	agencyservice "trafficreg/internal/agency/service"
	agencystore "trafficreg/internal/agency/store"
	controllermodels "trafficreg/internal/controller/models"
	controllerservice "trafficreg/internal/controller/service"
	controllerstore "trafficreg/internal/controller/store"
	"trafficreg/internal/credential/validity"
	"trafficreg/internal/ledger"
	ledgermetrics "trafficreg/internal/ledger/metrics"
	licensemetrics "trafficreg/internal/license/metrics"
	licenseservice "trafficreg/internal/license/service"
	licensestore "trafficreg/internal/license/store"
	offencemetrics "trafficreg/internal/offence/metrics"
	offenceservice "trafficreg/internal/offence/service"
	offencestore "trafficreg/internal/offence/store"
	vehicleservice "trafficreg/internal/vehicle/service"
	vehiclestore "trafficreg/internal/vehicle/store"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	auditmemory "trafficreg/pkg/platform/audit/store/memory"
	auditpostgres "trafficreg/pkg/platform/audit/store/postgres"
	"trafficreg/pkg/requestcontext"
)

// Addresses the registries are deployed at.
var (
	GovAgencyAddress           = id.DeriveAddress("trafficreg/gov-agency")
	VehicleRegistrationAddress = id.DeriveAddress("trafficreg/vehicle-registration")
	OffenceAndRenewalAddress   = id.DeriveAddress("trafficreg/offence-and-renewal")
	DriverLicenseAddress       = id.DeriveAddress("trafficreg/driver-license")
)

var scopes = []accessmodels.Scope{
	accessmodels.ScopeController,
	accessmodels.ScopeGovAgency,
	accessmodels.ScopeDriverLicense,
	accessmodels.ScopeVehicle,
	accessmodels.ScopeOffence,
}

// Options configures Deploy. A nil DB deploys over in-memory stores.
type Options struct {
	Deployer   id.Address
	DB         *sql.DB
	Cache      validity.Cache
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Clock      func() time.Time
}

// System is a deployed registry set.
type System struct {
	Ledger     *ledger.Ledger
	Events     audit.Store
	Roles      *accessservice.Service
	Controller *controllerservice.Service
	Agencies   *agencyservice.Service
	Licenses   *licenseservice.Service
	Vehicles   *vehicleservice.Service
	Offences   *offenceservice.Service
	Deployer   id.Address
}

type stores struct {
	roles      accessservice.Store
	controller controllerservice.Store
	agencies   agencyservice.Store
	licenses   licenseservice.Store
	vehicles   vehicleservice.Store
	rules      offenceservice.Store
	events     audit.Store
	backend    ledger.Backend
}

func memoryStores() stores {
	roles := accessstore.NewInMemory()
	controller := controllerstore.NewInMemory()
	agencies := agencystore.NewInMemory()
	licenses := licensestore.NewInMemory()
	vehicles := vehiclestore.NewInMemory()
	rules := offencestore.NewInMemory()
	return stores{
		roles:      roles,
		controller: controller,
		agencies:   agencies,
		licenses:   licenses,
		vehicles:   vehicles,
		rules:      rules,
		events:     auditmemory.NewInMemoryStore(),
		backend:    ledger.NewMemoryBackend(roles, controller, agencies, licenses, vehicles, rules),
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		roles:      accessstore.NewPostgres(db),
		controller: controllerstore.NewPostgres(db),
		agencies:   agencystore.NewPostgres(db),
		licenses:   licensestore.NewPostgres(db),
		vehicles:   vehiclestore.NewPostgres(db),
		rules:      offencestore.NewPostgres(db),
		events:     auditpostgres.New(db),
		backend:    ledger.NewPostgresBackend(db),
	}
}

// Deploy builds every registry, registers them in the controller's
// directory, binds the peers and grants the deployer GOV_AGENCY in every
// registry. It is safe to run again against an already deployed database.
func Deploy(ctx context.Context, opts Options) (*System, error) {
	if opts.Deployer.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "deployer address is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st := memoryStores()
	if opts.DB != nil {
		st = postgresStores(opts.DB)
	}

	l := ledger.New(st.backend, st.events,
		ledger.WithLogger(logger),
		ledger.WithMetrics(ledgermetrics.New(opts.Registerer)),
		ledger.WithClock(opts.Clock),
	)
	roles := accessservice.New(st.roles, l, accessservice.WithLogger(logger))
	controller := controllerservice.New(st.controller, roles, l, controllerservice.WithLogger(logger))
	agencies := agencyservice.New(st.agencies, roles, controller, l, agencyservice.WithLogger(logger))
	licenses := licenseservice.New(st.licenses, roles, controller,
		func(ctx context.Context) (licenseservice.Authorities, error) {
			return controllerservice.ResolveGovAgency[licenseservice.Authorities](ctx, controller)
		}, l,
		licenseservice.WithLogger(logger),
		licenseservice.WithMetrics(licensemetrics.New(opts.Registerer)),
		licenseservice.WithValidityCache(opts.Cache),
	)
	vehicles := vehicleservice.New(st.vehicles, roles, controller, l,
		vehicleservice.WithLogger(logger),
		vehicleservice.WithValidityCache(opts.Cache),
	)
	offences := offenceservice.New(st.rules, roles, controller,
		func(ctx context.Context) (offenceservice.Licenses, error) {
			return controllerservice.ResolveDriverLicense[offenceservice.Licenses](ctx, controller)
		}, OffenceAndRenewalAddress, l,
		offenceservice.WithLogger(logger),
		offenceservice.WithMetrics(offencemetrics.New(opts.Registerer)),
	)

	sys := &System{
		Ledger:     l,
		Events:     st.events,
		Roles:      roles,
		Controller: controller,
		Agencies:   agencies,
		Licenses:   licenses,
		Vehicles:   vehicles,
		Offences:   offences,
		Deployer:   opts.Deployer,
	}

	dir := controller.Directory()
	dir.Register(controllermodels.KindGovAgency, GovAgencyAddress, agencies)
	dir.Register(controllermodels.KindVehicleRegistration, VehicleRegistrationAddress, vehicles)
	dir.Register(controllermodels.KindOffenceAndRenewal, OffenceAndRenewalAddress, offences)
	dir.Register(controllermodels.KindDriverLicense, DriverLicenseAddress, licenses)

	if err := sys.wire(requestcontext.WithCaller(ctx, opts.Deployer)); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "registries deployed", "deployer", opts.Deployer.Hex(), "durable", opts.DB != nil)
	return sys, nil
}

func (s *System) wire(ctx context.Context) error {
	for _, scope := range scopes {
		if _, err := s.Roles.Initialize(ctx, scope, s.Deployer); err != nil && !dErrors.HasCode(err, dErrors.CodeAlreadyExists) {
			return err
		}
	}

	record, err := s.Controller.GetAllCoreContracts(ctx)
	if err != nil {
		return err
	}
	for kind, addr := range s.Addresses() {
		if record.Peer(kind) == addr {
			continue
		}
		if _, err := s.Controller.SetPeer(ctx, kind, addr); err != nil {
			return err
		}
	}

	registries := []interface {
		HasRole(context.Context, accessmodels.Role, id.Address) (bool, error)
		GrantRole(context.Context, accessmodels.Role, id.Address) (ledger.Receipt, error)
	}{s.Agencies, s.Licenses, s.Vehicles, s.Offences}
	for _, r := range registries {
		has, err := r.HasRole(ctx, accessmodels.RoleGovAgency, s.Deployer)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := r.GrantRole(ctx, accessmodels.RoleGovAgency, s.Deployer); err != nil {
			return err
		}
	}
	return s.Controller.ValidateBindings(ctx)
}

// Addresses returns the deployed address of every peer kind.
func (s *System) Addresses() map[controllermodels.Kind]id.Address {
	return map[controllermodels.Kind]id.Address{
		controllermodels.KindGovAgency:           GovAgencyAddress,
		controllermodels.KindVehicleRegistration: VehicleRegistrationAddress,
		controllermodels.KindOffenceAndRenewal:   OffenceAndRenewalAddress,
		controllermodels.KindDriverLicense:       DriverLicenseAddress,
	}
}
