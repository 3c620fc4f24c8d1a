package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(method, path, caller string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the gateway is running$`, steps.gatewayIsRunning)
	ctx.Step(`^I GET "([^"]*)" without authorization$`, steps.getWithoutAuth)
	ctx.Step(`^I POST to "([^"]*)" without authorization$`, steps.postWithoutAuth)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) gatewayIsRunning(_ context.Context) error {
	if err := s.tc.Request("GET", "/health/live", "", nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("gateway not live: status %d", s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *commonSteps) getWithoutAuth(_ context.Context, path string) error {
	return s.tc.Request("GET", path, "", nil)
}

func (s *commonSteps) postWithoutAuth(_ context.Context, path string) error {
	return s.tc.Request("POST", path, "", map[string]any{})
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	if actual := s.tc.GetLastResponseStatus(); actual != expected {
		return fmt.Errorf("expected status %d but got %d. Body: %s", expected, actual, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprintf("%v", value); actual != expected {
		return fmt.Errorf("expected field %q to equal %q but got %q", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	if err := s.responseFieldShouldEqual(ctx, "error", code); err != nil {
		return fmt.Errorf("%w (body: %s)", err, strings.TrimSpace(string(s.tc.GetLastResponseBody())))
	}
	return nil
}
