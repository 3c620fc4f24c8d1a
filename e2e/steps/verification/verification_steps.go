package verification

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(method, path, caller string, body any) error
	DigestOf(document string) (string, error)
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers verification step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^"([^"]*)" verifies document "([^"]*)" for "([^"]*)"$`, steps.verifyDocument)
	ctx.Step(`^"([^"]*)" verifies document "([^"]*)" for "([^"]*)" (\d+) times$`, steps.verifyRepeatedly)
	ctx.Step(`^the document should be verified$`, steps.shouldBeVerified(true))
	ctx.Step(`^the document should not be verified$`, steps.shouldBeVerified(false))
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) verifyDocument(_ context.Context, verifier, document, holder string) error {
	d, err := s.tc.DigestOf(document)
	if err != nil {
		return err
	}
	return s.tc.Request("POST", "/verifications", verifier, map[string]string{
		"holder": holder,
		"digest": d,
	})
}

func (s *verificationSteps) verifyRepeatedly(ctx context.Context, verifier, document, holder string, times int) error {
	for range times {
		if err := s.verifyDocument(ctx, verifier, document, holder); err != nil {
			return err
		}
	}
	return nil
}

func (s *verificationSteps) shouldBeVerified(expected bool) func(context.Context) error {
	return func(context.Context) error {
		if status := s.tc.GetLastResponseStatus(); status != 200 {
			return fmt.Errorf("expected status 200 but got %d. Body: %s", status, string(s.tc.GetLastResponseBody()))
		}
		value, err := s.tc.GetResponseField("verified")
		if err != nil {
			return err
		}
		if value != expected {
			return fmt.Errorf("expected verified=%v but got %v", expected, value)
		}
		return nil
	}
}
