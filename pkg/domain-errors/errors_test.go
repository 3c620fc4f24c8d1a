package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFallsBackToCode(t *testing.T) {
	assert.Equal(t, "no credential on record", New(CodeNoCredential, "no credential on record").Error())
	assert.Equal(t, "invalid_digest", (&Error{Code: CodeInvalidDigest}).Error())
}

func TestWrapKeepsTheFirstCode(t *testing.T) {
	root := errors.New("connection reset")
	ledgerErr := Wrap(root, CodeInternal, "ledger update")
	serviceErr := Wrap(ledgerErr, CodeBadRequest, "grant consent")

	var de *Error
	require.ErrorAs(t, serviceErr, &de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "grant consent", de.Message)
	assert.ErrorIs(t, serviceErr, root)
}

func TestIsMatchesOnCode(t *testing.T) {
	target := &Error{Code: CodeUnauthorized}

	assert.ErrorIs(t, New(CodeUnauthorized, "caller is not the issuer"), target)
	assert.ErrorIs(t, fmt.Errorf("handler: %w", New(CodeUnauthorized, "")), target)
	assert.NotErrorIs(t, New(CodeNoCredential, ""), target)
	assert.NotErrorIs(t, errors.New("unauthorized"), target)
}

func TestHasCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"direct", New(CodeRateLimited, "slow down"), CodeRateLimited, true},
		{"other code", New(CodeRateLimited, "slow down"), CodeTimeout, false},
		{"through fmt wrap", fmt.Errorf("verify: %w", New(CodeInvalidDigest, "")), CodeInvalidDigest, true},
		{"plain error", errors.New("boom"), CodeInternal, false},
		{"nil", nil, CodeInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasCode(tc.err, tc.code))
		})
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("consent: %w", New(CodeTimeout, "ledger busy")))
	assert.True(t, ok)
	assert.Equal(t, CodeTimeout, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}
