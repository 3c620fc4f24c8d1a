package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"kycgate/internal/identity"
	"kycgate/internal/platform/config"
	"kycgate/pkg/digest"
	"kycgate/pkg/domain"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	provider *identity.JWTProvider
	tokens   map[string]string
}

// NewTestContext creates a new test context. Tokens are minted with the
// signing key the target server was started with.
func NewTestContext(baseURL string) *TestContext {
	key := os.Getenv("KYCGATE_IDENTITY_SIGNING_KEY")
	if key == "" {
		key = config.DevSigningKey
	}
	return &TestContext{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		provider:   identity.NewJWTProvider(key, "kycgate", "kycgate-api", time.Hour),
		tokens:     make(map[string]string),
	}
}

// Request sends a JSON request as caller. An empty caller sends no token.
func (tc *TestContext) Request(method, path, caller string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := tc.tokenFor(caller)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) tokenFor(caller string) (string, error) {
	if token, ok := tc.tokens[caller]; ok {
		return token, nil
	}
	id, err := domain.ParseIdentity(caller)
	if err != nil {
		return "", fmt.Errorf("invalid identity %q: %w", caller, err)
	}
	token, err := tc.provider.Mint(context.Background(), id)
	if err != nil {
		return "", fmt.Errorf("failed to mint token: %w", err)
	}
	tc.tokens[caller] = token
	return token, nil
}

// DigestOf hashes a named document the way an issuer or verifier would locally.
func (tc *TestContext) DigestOf(document string) (string, error) {
	d, err := digest.Keccak256Bytes([]byte(document))
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// GetResponseField extracts a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response", field)
	}
	return value, nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
