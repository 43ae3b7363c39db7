package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
)

var owner = id.DeriveAddress("owner")

func validInput() RegisterVehicleInput {
	return RegisterVehicleInput{
		VehiclePlateNo: " 29a-123.45 ",
		AddressUser:    owner,
		IdentityNo:     "079123456789",
		VehicleModel:   "Honda Vision",
		ChassisNo:      "rlhjf1234",
		ColorPlate:     ColorPlateWhite,
	}
}

func TestNewVehicleRegistration(t *testing.T) {
	v, err := NewVehicleRegistration(validInput())
	require.NoError(t, err)
	assert.Equal(t, "29A-123.45", v.VehiclePlateNo)
	assert.Equal(t, "RLHJF1234", v.ChassisNo)
	assert.Equal(t, id.StatusActive, v.Status)
	assert.True(t, v.IsValid())

	in := validInput()
	in.ColorPlate = 9
	_, err = NewVehicleRegistration(in)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	in = validInput()
	in.AddressUser = id.ZeroAddress
	_, err = NewVehicleRegistration(in)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestColorPlate_JSON(t *testing.T) {
	raw, err := json.Marshal(ColorPlateYellow)
	require.NoError(t, err)
	assert.JSONEq(t, `"YELLOW"`, string(raw))

	var c ColorPlate
	require.NoError(t, json.Unmarshal([]byte(`"red"`), &c))
	assert.Equal(t, ColorPlateRed, c)
	assert.Error(t, json.Unmarshal([]byte(`"GREEN"`), &c))
}

func TestVehicleRegistration_Transitions(t *testing.T) {
	v, err := NewVehicleRegistration(validInput())
	require.NoError(t, err)

	next := id.DeriveAddress("next-owner")
	identity := "001099012345"
	in := UpdateVehicleInput{IdentityNo: &identity, AddressUser: &next}
	require.NoError(t, in.Validate())
	require.NoError(t, v.CanMutate())
	v.ApplyUpdate(in)
	assert.Equal(t, next, v.AddressUser)
	assert.Equal(t, identity, v.IdentityNo)
	assert.Equal(t, "Honda Vision", v.VehicleModel)

	v.ApplyRevocation()
	assert.False(t, v.IsValid())
	assert.True(t, dErrors.HasCode(v.CanMutate(), dErrors.CodeInvalidState))

	assert.Error(t, UpdateVehicleInput{}.Validate())
}
