package domain

import (
	"fmt"

	dErrors "trafficreg/pkg/domain-errors"
)

// Status is the lifecycle status shared by agencies, credentials and renew
// rules. Each record type accepts a subset.
//
// The ordinals are canonical and persisted: ACTIVE=0, SUSPENDED=1,
// REVOKED=2, EXPIRED=3. New statuses are appended, never reordered.
type Status uint8

const (
	StatusActive Status = iota
	StatusSuspended
	StatusRevoked
	StatusExpired
)

var statusNames = [...]string{
	StatusActive:    "ACTIVE",
	StatusSuspended: "SUSPENDED",
	StatusRevoked:   "REVOKED",
	StatusExpired:   "EXPIRED",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) IsValid() bool {
	return int(s) < len(statusNames)
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusRevoked
}

// ParseStatus accepts the status name ("ACTIVE", ...).
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", name))
}

// StatusFromOrdinal converts a persisted ordinal, rejecting unknown values.
func StatusFromOrdinal(v uint8) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status ordinal %d", v))
	}
	return s, nil
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("domain: invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
