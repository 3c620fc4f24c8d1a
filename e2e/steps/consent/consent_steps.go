package consent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(method, path, caller string, body any) error
	GetLastResponseBody() []byte
}

// RegisterSteps registers consent step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^"([^"]*)" grants consent to "([^"]*)"$`, steps.grant)
	ctx.Step(`^"([^"]*)" revokes consent from "([^"]*)"$`, steps.revoke)
	ctx.Step(`^"([^"]*)" sets consent of "([^"]*)" for "([^"]*)" to (true|false)$`, steps.setOnBehalf)
	ctx.Step(`^"([^"]*)" checks consent of "([^"]*)" for "([^"]*)"$`, steps.check)
	ctx.Step(`^"([^"]*)" lists the consents of "([^"]*)"$`, steps.list)
	ctx.Step(`^the consent list should contain (\d+) records?$`, steps.listShouldContain)
}

type consentSteps struct {
	tc TestContext
}

func (s *consentSteps) grant(ctx context.Context, holder, verifier string) error {
	return s.setOnBehalf(ctx, holder, holder, verifier, "true")
}

func (s *consentSteps) revoke(ctx context.Context, holder, verifier string) error {
	return s.setOnBehalf(ctx, holder, holder, verifier, "false")
}

func (s *consentSteps) setOnBehalf(_ context.Context, caller, holder, verifier, granted string) error {
	return s.tc.Request("PUT", "/holders/"+holder+"/consents/"+verifier, caller, map[string]bool{
		"granted": granted == "true",
	})
}

func (s *consentSteps) check(_ context.Context, caller, holder, verifier string) error {
	return s.tc.Request("GET", "/holders/"+holder+"/consents/"+verifier, caller, nil)
}

func (s *consentSteps) list(_ context.Context, caller, holder string) error {
	return s.tc.Request("GET", "/holders/"+holder+"/consents", caller, nil)
}

func (s *consentSteps) listShouldContain(_ context.Context, expected int) error {
	var resp struct {
		Consents []json.RawMessage `json:"consents"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return fmt.Errorf("failed to parse consent list: %w", err)
	}
	if len(resp.Consents) != expected {
		return fmt.Errorf("expected %d consent records but got %d", expected, len(resp.Consents))
	}
	return nil
}
