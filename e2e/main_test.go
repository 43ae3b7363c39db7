package e2e

import (
	"os"
	"testing"

	"github.com/cucumber/godog"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestFeatures runs the feature files against a server already listening
// on E2E_BASE_URL.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set")
	}
	cfg := Config{
		BaseURL:    baseURL,
		SigningKey: getenv("E2E_SIGNING_KEY", "dev-signing-key"),
		Issuer:     getenv("E2E_ISSUER", "trafficreg"),
		Deployer:   getenv("E2E_DEPLOYER", "0x00000000000000000000000000000000000000d1"),
	}

	tags := "~@ratelimit"
	if os.Getenv("E2E_RATELIMIT") != "" {
		tags = ""
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			RegisterSteps(sc, NewTestContext(cfg))
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     tags,
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
