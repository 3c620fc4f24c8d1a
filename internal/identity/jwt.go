// Package identity mints and verifies the bearer tokens that carry a caller
// identity. The subject claim is the identity; nothing else is trusted.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kycgate/internal/platform/config"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/middleware/auth"
	"kycgate/pkg/requestcontext"
)

// TokenClaims are the claims carried by identity tokens.
type TokenClaims struct {
	Env string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider issues and validates HS256 identity tokens.
type JWTProvider struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	env        string
}

var _ auth.IdentityResolver = (*JWTProvider)(nil)

func NewJWTProvider(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTProvider {
	return &JWTProvider{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// FromConfig builds a provider from the identity configuration.
func FromConfig(cfg config.IdentityConfig, env string) *JWTProvider {
	p := NewJWTProvider(cfg.SigningKey, cfg.Issuer, cfg.Audience, cfg.TokenTTL)
	p.env = env
	return p
}

// Mint signs a token whose subject is the given identity.
func (p *JWTProvider) Mint(ctx context.Context, subject domain.Identity) (string, error) {
	if subject.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
	}
	jti, err := newJTI()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token id")
	}
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Env: p.env,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    p.issuer,
			Audience:  []string{p.audience},
			ID:        jti,
		},
	})
	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Resolve validates signature, algorithm, expiry, issuer and audience.
func (p *JWTProvider) Resolve(tokenString string) (*auth.Claims, error) {
	claims := new(TokenClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.signingKey, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &auth.Claims{Subject: claims.Subject, JTI: claims.ID}, nil
}

func newJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
