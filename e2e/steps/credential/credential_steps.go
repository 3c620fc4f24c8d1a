package credential

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
}

// RegisterSteps registers credential issuance step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &credentialSteps{tc: tc}

	ctx.Step(`^"([^"]*)" issues document "([^"]*)" to "([^"]*)"$`, steps.issueDocument)
	ctx.Step(`^"([^"]*)" issues the raw digest "([^"]*)" to "([^"]*)"$`, steps.issueRawDigest)
	ctx.Step(`^"([^"]*)" reads the credential of "([^"]*)"$`, steps.readCredential)
	ctx.Step(`^the credential digest should match document "([^"]*)"$`, steps.credentialDigestShouldMatch)
}

type credentialSteps struct {
	tc TestContext
}

func (s *credentialSteps) issueDocument(_ context.Context, issuer, document, holder string) error {
	d, err := s.tc.DigestOf(document)
	if err != nil {
		return err
	}
	return s.issueRawDigest(context.Background(), issuer, d, holder)
}

func (s *credentialSteps) issueRawDigest(_ context.Context, issuer, digest, holder string) error {
	return s.tc.Request("POST", "/credentials", issuer, map[string]string{
		"holder": holder,
		"digest": digest,
	})
}

func (s *credentialSteps) readCredential(_ context.Context, caller, holder string) error {
	return s.tc.Request("GET", "/holders/"+holder+"/credential", caller, nil)
}

func (s *credentialSteps) credentialDigestShouldMatch(_ context.Context, document string) error {
	want, err := s.tc.DigestOf(document)
	if err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("digest")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected digest %s but got %v", want, got)
	}
	return nil
}
