package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Request(ctx context.Context, method, path string, body any) error
	LastStatus() int
	LastHeader() http.Header
}

// RegisterSteps registers rate limiting steps. They need a server started
// with a small TRAFFICREG_RATELIMIT_READ_REQUESTS.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) GET requests to "([^"]*)"$`, s.sendMany)
	ctx.Step(`^at least one request should be rate limited$`, s.someLimited)
	ctx.Step(`^the limited response should carry a Retry-After header$`, s.retryAfter)
}

type ratelimitSteps struct {
	tc       TestContext
	limited  int
	limitHdr http.Header
}

func (s *ratelimitSteps) sendMany(ctx context.Context, n int, path string) error {
	for range n {
		if err := s.tc.Request(ctx, http.MethodGet, path, nil); err != nil {
			return err
		}
		if s.tc.LastStatus() == http.StatusTooManyRequests {
			s.limited++
			s.limitHdr = s.tc.LastHeader()
		}
	}
	return nil
}

func (s *ratelimitSteps) someLimited() error {
	if s.limited == 0 {
		return fmt.Errorf("no request was rate limited")
	}
	return nil
}

func (s *ratelimitSteps) retryAfter() error {
	if s.limitHdr == nil || s.limitHdr.Get("Retry-After") == "" {
		return fmt.Errorf("limited response has no Retry-After header")
	}
	return nil
}
