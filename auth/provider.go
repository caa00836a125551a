package auth

import (
	"context"

	"github.com/upb/orders-backend/cognito"
)

// ProviderTokenValidator verifies tokens issued by the managed identity provider
type ProviderTokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*cognito.ParsedClaims, error)
}

// ProviderVerifier adapts a ProviderTokenValidator to the Verifier interface
type ProviderVerifier struct {
	validator ProviderTokenValidator
}

// NewProviderVerifier wraps validator. The validator is built once at
// startup and shared by every request.
func NewProviderVerifier(validator ProviderTokenValidator) *ProviderVerifier {
	return &ProviderVerifier{validator: validator}
}

// Scheme implements Verifier
func (p *ProviderVerifier) Scheme() Scheme {
	return SchemeProvider
}

// Verify implements Verifier. This performs a key fetch on a cold cache.
func (p *ProviderVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UID:    claims.UID,
		Email:  claims.Email,
		Name:   claims.Name,
		Scheme: SchemeProvider,
	}, nil
}
