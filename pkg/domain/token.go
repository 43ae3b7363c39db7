package domain

import (
	"strconv"

	dErrors "trafficreg/pkg/domain-errors"
)

// TokenID numbers a non-transferable credential token. Ids start at 1 and
// are never reused; zero means "not issued".
type TokenID uint64

func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

func (t TokenID) IsZero() bool {
	return t == 0
}

// ParseTokenID parses a decimal token id.
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "token id must be a positive integer")
	}
	return TokenID(v), nil
}
