package e2e

import (
	"github.com/cucumber/godog"

	"trafficreg/e2e/steps/common"
	"trafficreg/e2e/steps/license"
	"trafficreg/e2e/steps/offence"
	"trafficreg/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	license.RegisterSteps(ctx, tc)
	offence.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
