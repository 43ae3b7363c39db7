package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is what the generic steps need from the suite.
type TestContext interface {
	SetPrincipal(name, address string)
	As(name string) error
	Expand(s string) string
	Request(ctx context.Context, method, path string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(path string) (any, error)
}

// RegisterSteps registers principals, raw requests and response assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}

	ctx.Step(`^"([^"]*)" has address "([^"]*)"$`, s.hasAddress)
	ctx.Step(`^I am "([^"]*)"$`, s.iAm)
	ctx.Step(`^I send (GET|POST|PUT|PATCH|DELETE) "([^"]*)"$`, s.send)
	ctx.Step(`^I send (POST|PUT|PATCH) "([^"]*)" with:$`, s.sendWith)
	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBeString)
	ctx.Step(`^the response field "([^"]*)" should be (-?\d+)$`, s.fieldShouldBeNumber)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, s.fieldShouldBeBool)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) hasAddress(name, address string) error {
	s.tc.SetPrincipal(name, address)
	return nil
}

func (s *commonSteps) iAm(name string) error {
	return s.tc.As(name)
}

func (s *commonSteps) send(ctx context.Context, method, path string) error {
	return s.tc.Request(ctx, method, path, nil)
}

func (s *commonSteps) sendWith(ctx context.Context, method, path string, body *godog.DocString) error {
	return s.tc.Request(ctx, method, path, body.Content)
}

func (s *commonSteps) statusShouldBe(want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBeString(path, want string) error {
	got, err := s.tc.ResponseField(path)
	if err != nil {
		return err
	}
	want = s.tc.Expand(want)
	if str, ok := got.(string); !ok || str != want {
		return fmt.Errorf("%s: expected %q, got %v", path, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeNumber(path string, want int) error {
	got, err := s.tc.ResponseField(path)
	if err != nil {
		return err
	}
	if n, ok := got.(float64); !ok || int(n) != want {
		return fmt.Errorf("%s: expected %d, got %v", path, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(path, want string) error {
	got, err := s.tc.ResponseField(path)
	if err != nil {
		return err
	}
	b, _ := strconv.ParseBool(want)
	if v, ok := got.(bool); !ok || v != b {
		return fmt.Errorf("%s: expected %s, got %v", path, want, got)
	}
	return nil
}
