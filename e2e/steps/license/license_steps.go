package license

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Expand(s string) string
	Request(ctx context.Context, method, path string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(path string) (any, error)
}

// RegisterSteps registers agency and driver license steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &licenseSteps{tc: tc}

	ctx.Step(`^agency "([^"]*)" is issued to "([^"]*)"$`, s.issueAgency)
	ctx.Step(`^license "([^"]*)" of type "([^"]*)" is issued to "([^"]*)" by agency "([^"]*)"$`, s.issueLicense)
	ctx.Step(`^license "([^"]*)" should have (\d+) points?$`, s.shouldHavePoints)
	ctx.Step(`^license "([^"]*)" should have status "([^"]*)"$`, s.shouldHaveStatus)
	ctx.Step(`^"([^"]*)" should hold (\d+) licenses?$`, s.shouldHold)
}

type licenseSteps struct {
	tc TestContext
}

func (s *licenseSteps) expect(status int) error {
	if got := s.tc.LastStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.LastBody())
	}
	return nil
}

func (s *licenseSteps) issueAgency(ctx context.Context, agencyID, principal string) error {
	err := s.tc.Request(ctx, http.MethodPost, "/v1/agencies", map[string]string{
		"address":   s.tc.Expand("${" + principal + "}"),
		"agency_id": s.tc.Expand(agencyID),
		"name":      "Cuc Canh sat giao thong",
		"location":  "Ha Noi",
	})
	if err != nil {
		return err
	}
	return s.expect(http.StatusCreated)
}

func (s *licenseSteps) issueLicense(ctx context.Context, licenseNo, licenseType, principal, agencyID string) error {
	issued := time.Now().UTC().Truncate(24 * time.Hour)
	err := s.tc.Request(ctx, http.MethodPost, "/v1/licenses", map[string]any{
		"license_no":     s.tc.Expand(licenseNo),
		"holder_address": s.tc.Expand("${" + principal + "}"),
		"holder_id":      "079123456789",
		"name":           "Nguyen Van A",
		"license_type":   s.tc.Expand(licenseType),
		"issue_date":     issued,
		"expiry_date":    issued.AddDate(5, 0, 0),
		"authority_id":   s.tc.Expand(agencyID),
	})
	if err != nil {
		return err
	}
	return s.expect(http.StatusCreated)
}

func (s *licenseSteps) get(ctx context.Context, licenseNo string) error {
	if err := s.tc.Request(ctx, http.MethodGet, "/v1/licenses/"+licenseNo, nil); err != nil {
		return err
	}
	return s.expect(http.StatusOK)
}

func (s *licenseSteps) shouldHavePoints(ctx context.Context, licenseNo string, want int) error {
	if err := s.get(ctx, licenseNo); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("point")
	if err != nil {
		return err
	}
	if n, ok := got.(float64); !ok || int(n) != want {
		return fmt.Errorf("license %s: expected %d points, got %v", licenseNo, want, got)
	}
	return nil
}

func (s *licenseSteps) shouldHaveStatus(ctx context.Context, licenseNo, want string) error {
	if err := s.get(ctx, licenseNo); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("status")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("license %s: expected status %s, got %v", licenseNo, want, got)
	}
	return nil
}

func (s *licenseSteps) shouldHold(ctx context.Context, principal string, want int) error {
	path := "/v1/holders/${" + principal + "}/licenses"
	if err := s.tc.Request(ctx, http.MethodGet, path, nil); err != nil {
		return err
	}
	if err := s.expect(http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("balance")
	if err != nil {
		return err
	}
	if n, ok := got.(float64); !ok || int(n) != want {
		return fmt.Errorf("%s: expected balance %d, got %v", principal, want, got)
	}
	return nil
}
