package models

import (
	"fmt"
	"strings"

	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	strutil "trafficreg/pkg/platform/strings"
)

const maxFieldLength = 128

// ColorPlate is the plate colour, which encodes the vehicle's use.
type ColorPlate uint8

const (
	ColorPlateWhite  ColorPlate = 1
	ColorPlateYellow ColorPlate = 2
	ColorPlateBlue   ColorPlate = 3
	ColorPlateRed    ColorPlate = 4
)

var colorPlateNames = map[ColorPlate]string{
	ColorPlateWhite:  "WHITE",
	ColorPlateYellow: "YELLOW",
	ColorPlateBlue:   "BLUE",
	ColorPlateRed:    "RED",
}

func (c ColorPlate) IsValid() bool {
	_, ok := colorPlateNames[c]
	return ok
}

func (c ColorPlate) String() string {
	if name, ok := colorPlateNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ColorPlate(%d)", uint8(c))
}

func ParseColorPlate(s string) (ColorPlate, error) {
	for c, name := range colorPlateNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown plate colour %q", s))
}

func (c ColorPlate) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("vehicle: invalid plate colour %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *ColorPlate) UnmarshalText(text []byte) error {
	parsed, err := ParseColorPlate(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// VehicleRegistration is a non-transferable vehicle ownership credential.
//
// Invariants:
//   - VehiclePlateNo is unique for the lifetime of the registry
//   - TokenID is assigned once at registration and never reused
//   - Status is ACTIVE or REVOKED; REVOKED is terminal
type VehicleRegistration struct {
	TokenID        id.TokenID `json:"token_id"`
	VehiclePlateNo string     `json:"vehicle_plate_no"`
	AddressUser    id.Address `json:"address_user"`
	IdentityNo     string     `json:"identity_no"`
	VehicleModel   string     `json:"vehicle_model"`
	ChassisNo      string     `json:"chassis_no"`
	ColorPlate     ColorPlate `json:"color_plate"`
	Status         id.Status  `json:"status"`
}

// RegisterVehicleInput carries the issuer-supplied registration fields.
type RegisterVehicleInput struct {
	VehiclePlateNo string     `json:"vehicle_plate_no"`
	AddressUser    id.Address `json:"address_user"`
	IdentityNo     string     `json:"identity_no"`
	VehicleModel   string     `json:"vehicle_model"`
	ChassisNo      string     `json:"chassis_no"`
	ColorPlate     ColorPlate `json:"color_plate"`
}

func (in *RegisterVehicleInput) Normalize() {
	in.VehiclePlateNo = strutil.Code(in.VehiclePlateNo)
	in.IdentityNo = strings.TrimSpace(in.IdentityNo)
	in.VehicleModel = strings.TrimSpace(in.VehicleModel)
	in.ChassisNo = strutil.Code(in.ChassisNo)
}

func (in RegisterVehicleInput) Validate() error {
	switch {
	case in.VehiclePlateNo == "":
		return dErrors.New(dErrors.CodeValidation, "plate number is required")
	case in.AddressUser.IsZero():
		return dErrors.New(dErrors.CodeValidation, "holder address is required")
	case in.IdentityNo == "":
		return dErrors.New(dErrors.CodeValidation, "identity number is required")
	case in.VehicleModel == "" || in.ChassisNo == "":
		return dErrors.New(dErrors.CodeValidation, "vehicle model and chassis number are required")
	case !in.ColorPlate.IsValid():
		return dErrors.New(dErrors.CodeValidation, "unknown plate colour")
	}
	for _, f := range []string{in.VehiclePlateNo, in.IdentityNo, in.VehicleModel, in.ChassisNo} {
		if len(f) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "vehicle fields must be at most 128 characters")
		}
	}
	return nil
}

// NewVehicleRegistration builds an ACTIVE registration. The token id is
// assigned by the store.
func NewVehicleRegistration(in RegisterVehicleInput) (*VehicleRegistration, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &VehicleRegistration{
		VehiclePlateNo: in.VehiclePlateNo,
		AddressUser:    in.AddressUser,
		IdentityNo:     in.IdentityNo,
		VehicleModel:   in.VehicleModel,
		ChassisNo:      in.ChassisNo,
		ColorPlate:     in.ColorPlate,
		Status:         id.StatusActive,
	}, nil
}

// UpdateVehicleInput changes the registered owner. Vehicle identity fields
// are immutable.
type UpdateVehicleInput struct {
	IdentityNo  *string     `json:"identity_no,omitempty"`
	AddressUser *id.Address `json:"address_user,omitempty"`
}

func (in UpdateVehicleInput) Validate() error {
	if in.IdentityNo == nil && in.AddressUser == nil {
		return dErrors.New(dErrors.CodeValidation, "update sets no fields")
	}
	if in.IdentityNo != nil && (strings.TrimSpace(*in.IdentityNo) == "" || len(*in.IdentityNo) > maxFieldLength) {
		return dErrors.New(dErrors.CodeValidation, "identity number must be 1-128 characters")
	}
	if in.AddressUser != nil && in.AddressUser.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "holder address cannot be cleared")
	}
	return nil
}

func (v *VehicleRegistration) CanMutate() error {
	if v.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "vehicle registration is revoked: "+v.VehiclePlateNo)
	}
	return nil
}

func (v *VehicleRegistration) ApplyUpdate(in UpdateVehicleInput) {
	if in.IdentityNo != nil {
		v.IdentityNo = strings.TrimSpace(*in.IdentityNo)
	}
	if in.AddressUser != nil {
		v.AddressUser = *in.AddressUser
	}
}

func (v *VehicleRegistration) ApplyRevocation() {
	v.Status = id.StatusRevoked
}

func (v *VehicleRegistration) IsValid() bool {
	return v.Status == id.StatusActive
}

func (v *VehicleRegistration) Clone() *VehicleRegistration {
	c := *v
	return &c
}
