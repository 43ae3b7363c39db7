package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: no record under the natural key / token id
//   - ErrAlreadyUsed: natural key already taken (uniqueness is for the
//     lifetime of the registry, revoked records included)
//   - ErrInvalidState: record exists but its status forbids the mutation
//   - ErrUnavailable: backing store temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
