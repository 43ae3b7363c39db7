package offence

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
}

// RegisterSteps registers demerit point and renewal steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &offenceSteps{tc: tc}

	ctx.Step(`^the renew rule for "([^"]*)" grants (\d+) years?$`, s.addRule)
	ctx.Step(`^I record offence "([^"]*)" costing (\d+) points? on license "([^"]*)"$`, s.deduct)
	ctx.Step(`^I renew license "([^"]*)"$`, s.renew)
	ctx.Step(`^I reset the points of license "([^"]*)"$`, s.reset)
}

type offenceSteps struct {
	tc TestContext
}

func (s *offenceSteps) addRule(ctx context.Context, licenseType string, years int) error {
	err := s.tc.Request(ctx, http.MethodPost, "/v1/renew-rules", map[string]any{
		"license_type": s.tc.Expand(licenseType),
		"bonus_time":   years,
		"description":  fmt.Sprintf("Gia han %d nam", years),
	})
	if err != nil {
		return err
	}
	if got := s.tc.LastStatus(); got != http.StatusCreated {
		return fmt.Errorf("adding renew rule: status %d: %s", got, s.tc.LastBody())
	}
	return nil
}

func (s *offenceSteps) deduct(ctx context.Context, errorID string, points int, licenseNo string) error {
	return s.tc.Request(ctx, http.MethodPost, "/v1/licenses/"+licenseNo+"/offences", map[string]any{
		"error_id":    errorID,
		"point":       points,
		"description": "recorded by e2e",
		"location":    "Hoan Kiem",
		"timestamp":   time.Now().UTC(),
	})
}

func (s *offenceSteps) renew(ctx context.Context, licenseNo string) error {
	return s.tc.Request(ctx, http.MethodPost, "/v1/licenses/"+licenseNo+"/renew", nil)
}

func (s *offenceSteps) reset(ctx context.Context, licenseNo string) error {
	return s.tc.Request(ctx, http.MethodPost, "/v1/licenses/"+licenseNo+"/reset-points", nil)
}
