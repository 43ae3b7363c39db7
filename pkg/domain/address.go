package domain

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "trafficreg/pkg/domain-errors"
)

// AddressLength is the byte length of a principal or registry address.
const AddressLength = 20

// Address identifies a principal (holder, agency, operator) or a deployed
// registry. The zero value means "unset".
//
// Usage: construct via ParseAddress at trust boundaries; String renders the
// EIP-55 mixed-case form, MarshalText the lowercase form.
type Address [AddressLength]byte

// ZeroAddress is the unset address.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit address. Case is ignored.
//
// Errors: returns CodeInvalidInput for anything else.
func ParseAddress(s string) (Address, error) {
	var a Address
	trimmed, ok := strings.CutPrefix(s, "0x")
	if !ok {
		trimmed, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x-prefixed")
	}
	if len(trimmed) != 2*AddressLength {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 40 hex digits")
	}
	if _, err := hex.Decode(a[:], []byte(trimmed)); err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(fmt.Sprintf("domain: invalid address %q: %v", s, err))
	}
	return a
}

// DeriveAddress returns the last 20 bytes of keccak256(seed). The system
// deployment uses it to give each registry instance a stable address.
func DeriveAddress(seed string) Address {
	var a Address
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum(nil)
	copy(a[:], sum[len(sum)-AddressLength:])
	return a
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase 0x form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the EIP-55 checksummed form.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the address as its lowercase hex form.
func (a Address) Value() (driver.Value, error) {
	return a.Hex(), nil
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		*a = ZeroAddress
		return nil
	default:
		return fmt.Errorf("domain: cannot scan %T into Address", src)
	}
}
