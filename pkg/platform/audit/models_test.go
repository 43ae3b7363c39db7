package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEvent_Category(t *testing.T) {
	tests := []struct {
		event    AuditEvent
		expected EventCategory
	}{
		{EventLicenseIssued, CategoryCompliance},
		{EventPointDeducted, CategoryCompliance},
		{EventPaused, CategorySecurity},
		{EventRoleGranted, CategorySecurity},
		{EventAddRenewRule, CategoryOperations},
		{AuditEvent("unknown"), CategoryOperations},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.Category())
		})
	}
}

func TestEvent_WithCopiesAttributes(t *testing.T) {
	base := New(ContractOffence, EventAddRenewRule, "A1").With("bonusTime", "2")
	derived := base.With("description", "two years")

	assert.Equal(t, map[string]string{"bonusTime": "2"}, base.Attributes)
	assert.Equal(t, "two years", derived.Attributes["description"])
	assert.Equal(t, CategoryOperations, derived.Category)
	assert.Equal(t, "AddRenewRule", derived.Action)
}
