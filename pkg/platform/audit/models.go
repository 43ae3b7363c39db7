package audit

import (
	"context"
	"time"

	id "trafficreg/pkg/domain"

	"github.com/google/uuid"
)

// EventCategory classifies registry events by their primary purpose so
// observers can route them without knowing every action.
type EventCategory string

const (
	// CategoryCompliance covers credential and issuer lifecycle changes.
	// These have legal significance and are never sampled.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers role changes, peer rebinding and the pause switch.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers rule table changes and batch maintenance.
	CategoryOperations EventCategory = "operations"
)

// Contract names the registry that emitted an event.
type Contract string

const (
	ContractController    Contract = "controller"
	ContractGovAgency     Contract = "gov_agency"
	ContractDriverLicense Contract = "driver_license"
	ContractVehicle       Contract = "vehicle_registration"
	ContractOffence       Contract = "offence_and_renewal"
)

// Event is the structured record every mutating registry operation emits.
// Events are buffered by the ledger and persisted only when the operation
// commits, so observers never see events of a reverted operation.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Seq       uint64        `json:"seq"` // ledger sequence of the committing operation
	Category  EventCategory `json:"category"`
	Contract  Contract      `json:"contract"`
	Action    string        `json:"action"`
	Key       string        `json:"key"` // natural key of the affected record (licenseNo, plate, agencyId, licenseType)
	Actor     id.Address    `json:"actor"`
	Subject   id.Address    `json:"subject"` // holder, agency or role principal
	TokenID   id.TokenID    `json:"token_id,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// Attributes carries action-specific arguments keyed by name,
	// e.g. bonusTime for AddRenewRule or remaining points for PointDeducted.
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

type AuditEvent string

const (
	// Controller events
	EventPeerSet  AuditEvent = "PeerSet"
	EventPaused   AuditEvent = "Paused"
	EventUnpaused AuditEvent = "Unpaused"

	// Role events
	EventRoleGranted      AuditEvent = "RoleGranted"
	EventRoleRevoked      AuditEvent = "RoleRevoked"
	EventAdminInitialized AuditEvent = "AdminInitialized"

	// Agency events
	EventAgencyIssued  AuditEvent = "AgencyIssued"
	EventAgencyRevoked AuditEvent = "AgencyRevoked"

	// Driver license events
	EventLicenseIssued          AuditEvent = "LicenseIssued"
	EventLicenseUpdated         AuditEvent = "LicenseUpdated"
	EventLicenseRevoked         AuditEvent = "LicenseRevoked"
	EventLicenseStandingUpdated AuditEvent = "LicenseStandingUpdated"

	// Vehicle events
	EventVehicleRegistrationIssued AuditEvent = "VehicleRegistrationIssued"
	EventVehicleUpdated            AuditEvent = "VehicleRegistrationUpdated"
	EventVehicleRevoked            AuditEvent = "VehicleRegistrationRevoked"

	// Offence and renewal events
	EventAddRenewRule         AuditEvent = "AddRenewRule"
	EventRenewRuleRevoked     AuditEvent = "RenewRuleRevoked"
	EventPointDeducted        AuditEvent = "PointDeducted"
	EventLicenseRenewed       AuditEvent = "LicenseRenewed"
	EventPointsReset          AuditEvent = "PointsReset"
	EventLicenseStatusUpdated AuditEvent = "LicenseStatusUpdated"
)

// eventCategories maps each registry event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventAgencyIssued:              CategoryCompliance,
	EventAgencyRevoked:             CategoryCompliance,
	EventLicenseIssued:             CategoryCompliance,
	EventLicenseUpdated:            CategoryCompliance,
	EventLicenseRevoked:            CategoryCompliance,
	EventLicenseStandingUpdated:    CategoryCompliance,
	EventVehicleRegistrationIssued: CategoryCompliance,
	EventVehicleUpdated:            CategoryCompliance,
	EventVehicleRevoked:            CategoryCompliance,
	EventPointDeducted:             CategoryCompliance,
	EventLicenseRenewed:            CategoryCompliance,

	EventPeerSet:          CategorySecurity,
	EventPaused:           CategorySecurity,
	EventUnpaused:         CategorySecurity,
	EventRoleGranted:      CategorySecurity,
	EventRoleRevoked:      CategorySecurity,
	EventAdminInitialized: CategorySecurity,

	EventAddRenewRule:         CategoryOperations,
	EventRenewRuleRevoked:     CategoryOperations,
	EventPointsReset:          CategoryOperations,
	EventLicenseStatusUpdated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// New builds an event for action with its category resolved.
func New(contract Contract, action AuditEvent, key string) Event {
	return Event{
		Category: action.Category(),
		Contract: contract,
		Action:   string(action),
		Key:      key,
	}
}

// With returns a copy of e carrying the attribute k=v.
func (e Event) With(k, v string) Event {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for ak, av := range e.Attributes {
		attrs[ak] = av
	}
	attrs[k] = v
	e.Attributes = attrs
	return e
}

// Store persists committed events and exposes them to the outbox relay.
// Append is called inside the committing ledger operation; postgres
// implementations write through the operation's transaction.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByKey(ctx context.Context, contract Contract, key string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	// Pending returns up to limit unpublished events in sequence order.
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}
