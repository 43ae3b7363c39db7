package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	licensemodels "trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNewRenewRule(t *testing.T) {
	r, err := NewRenewRule(AddRenewRuleInput{LicenseType: " a1 ", BonusTime: 2, Description: "two years"}, now)
	require.NoError(t, err)
	assert.Equal(t, "A1", r.LicenseType)
	assert.Equal(t, id.StatusActive, r.Status)
	assert.Equal(t, now, r.CreatedAt)

	_, err = NewRenewRule(AddRenewRuleInput{LicenseType: "A1"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewRenewRule(AddRenewRuleInput{BonusTime: 1}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	r.ApplyRevocation(now)
	assert.False(t, r.IsActive())
	require.NotNil(t, r.RevokedAt)
	c := r.Clone()
	*c.RevokedAt = now.Add(time.Hour)
	assert.Equal(t, now, *r.RevokedAt)
}

func TestRenewRule_Extend(t *testing.T) {
	r := &RenewRule{BonusTime: 5}
	assert.Equal(t, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), r.Extend(now))
}

func TestOffence_Validate(t *testing.T) {
	assert.NoError(t, Offence{ErrorID: "E-1", Point: 3}.Validate())
	assert.Error(t, Offence{Point: 3}.Validate())
	assert.Error(t, Offence{ErrorID: "E-1", Point: 0}.Validate())
}

func TestDeriveStatus(t *testing.T) {
	license := func(point int, status id.Status, expiry time.Time) *licensemodels.DriverLicense {
		return &licensemodels.DriverLicense{Point: point, Status: status, ExpiryDate: expiry}
	}
	later := now.AddDate(1, 0, 0)
	tests := []struct {
		name string
		l    *licensemodels.DriverLicense
		want id.Status
	}{
		{"revoked stays revoked", license(0, id.StatusRevoked, now.AddDate(-1, 0, 0)), id.StatusRevoked},
		{"expiry instant is expired", license(12, id.StatusActive, now), id.StatusExpired},
		{"expiry wins over zero points", license(0, id.StatusSuspended, now.AddDate(0, 0, -1)), id.StatusExpired},
		{"zero points suspends", license(0, id.StatusActive, later), id.StatusSuspended},
		{"restored points reactivate", license(12, id.StatusSuspended, later), id.StatusActive},
		{"renewed expired license reactivates", license(5, id.StatusExpired, later), id.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.l, now))
		})
	}
}

func TestDeduct_FloorsAtZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		point := rapid.IntRange(0, licensemodels.MaxPoint).Draw(t, "point")
		o := Offence{ErrorID: "E", Point: rapid.IntRange(1, 50).Draw(t, "deduct")}
		got := o.Deduct(point)
		if got < 0 || got > point {
			t.Fatalf("deduct %d from %d gave %d", o.Point, point, got)
		}
		if point-o.Point >= 0 && got != point-o.Point {
			t.Fatalf("deduct %d from %d gave %d", o.Point, point, got)
		}
	})
}

func TestDeriveStatus_IsIdempotent(t *testing.T) {
	statuses := []id.Status{id.StatusActive, id.StatusSuspended, id.StatusRevoked, id.StatusExpired}
	rapid.Check(t, func(t *rapid.T) {
		l := &licensemodels.DriverLicense{
			Point:      rapid.IntRange(0, licensemodels.MaxPoint).Draw(t, "point"),
			Status:     rapid.SampledFrom(statuses).Draw(t, "status"),
			ExpiryDate: now.AddDate(0, 0, rapid.IntRange(-400, 400).Draw(t, "days")),
		}
		first := DeriveStatus(l, now)
		l.Status = first
		if second := DeriveStatus(l, now); second != first {
			t.Fatalf("status moved from %s to %s on second pass", first, second)
		}
	})
}
