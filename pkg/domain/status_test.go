package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatus_CanonicalOrdinals pins the persisted encoding. ACTIVE is 0;
// an ordinal of 3 is EXPIRED, never an alternate spelling of ACTIVE.
func TestStatus_CanonicalOrdinals(t *testing.T) {
	assert.Equal(t, uint8(0), uint8(StatusActive))
	assert.Equal(t, uint8(1), uint8(StatusSuspended))
	assert.Equal(t, uint8(2), uint8(StatusRevoked))
	assert.Equal(t, uint8(3), uint8(StatusExpired))

	s, err := StatusFromOrdinal(3)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, s)

	_, err = StatusFromOrdinal(4)
	assert.Error(t, err)
}

func TestStatus_Text(t *testing.T) {
	b, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{StatusSuspended})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SUSPENDED"}`, string(b))

	var out struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"REVOKED"}`), &out))
	assert.Equal(t, StatusRevoked, out.Status)
	assert.True(t, out.Status.IsTerminal())

	assert.Error(t, json.Unmarshal([]byte(`{"status":"active"}`), &out))
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("42")
	require.NoError(t, err)
	assert.Equal(t, TokenID(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParseTokenID(bad)
		assert.Error(t, err, bad)
	}
}
