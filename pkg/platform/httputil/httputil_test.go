package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "trafficreg/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{"duplicate license", dErrors.New(dErrors.CodeAlreadyExists, "license already exists: DL-001"),
			http.StatusConflict, "already_exists", "license already exists: DL-001"},
		{"second active renew rule", dErrors.New(dErrors.CodeRuleAlreadyActive, "Renew rule already ACTIVE: A1"),
			http.StatusConflict, "rule_already_active", "Renew rule already ACTIVE: A1"},
		{"deduct from suspended license", dErrors.New(dErrors.CodeInvalidState, "license is SUSPENDED: DL-001"),
			http.StatusUnprocessableEntity, "invalid_state", "license is SUSPENDED: DL-001"},
		{"paused system", dErrors.New(dErrors.CodeUnauthorized, "system is paused"),
			http.StatusUnauthorized, "unauthorized", "system is paused"},
		{"unknown agency", dErrors.New(dErrors.CodeNotFound, "agency not found: AG-404"),
			http.StatusNotFound, "not_found", "agency not found: AG-404"},
		{"wrapped coded error keeps its code", fmt.Errorf("renew: %w", dErrors.New(dErrors.CodeInvalidState, "no ACTIVE renew rule for license type B2")),
			http.StatusUnprocessableEntity, "invalid_state", "no ACTIVE renew rule for license type B2"},
		{"internal error omits description", dErrors.New(dErrors.CodeInternal, "db failed"),
			http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body["error"] != tt.code {
				t.Fatalf("expected error code %s, got %q", tt.code, body["error"])
			}
			if got := body["error_description"]; got != tt.description {
				t.Fatalf("expected error_description %q, got %q", tt.description, got)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type renewRule struct {
		LicenseType string `json:"license_type"`
		BonusTime   int    `json:"bonus_time"`
	}
	decode := func(body string) (renewRule, error) {
		r := httptest.NewRequest(http.MethodPost, "/v1/renew-rules", strings.NewReader(body))
		return DecodeJSON[renewRule](r)
	}

	got, err := decode(`{"license_type":"A1","bonus_time":2}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LicenseType != "A1" || got.BonusTime != 2 {
		t.Fatalf("unexpected rule %+v", got)
	}

	for _, body := range []string{
		`{"license_type":"A1","bonus_years":2}`,
		`{"license_type":"A1"}{"license_type":"B2"}`,
		`not json`,
	} {
		if _, err := decode(body); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("body %s: expected bad_request, got %v", body, err)
		}
	}
}
