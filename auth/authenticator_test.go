package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/orders-backend/cognito"
	"go.uber.org/zap"
)

// MockProviderValidator is a mock implementation of ProviderTokenValidator
type MockProviderValidator struct {
	mock.Mock
}

func (m *MockProviderValidator) ValidateToken(ctx context.Context, token string) (*cognito.ParsedClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cognito.ParsedClaims), args.Error(1)
}

func newCascade(t *testing.T, provider ProviderTokenValidator) (*Authenticator, *SelfIssuedTokens) {
	t.Helper()
	tokens := NewSelfIssuedTokens("test-secret", "orders-backend", time.Hour)
	return NewAuthenticator(zap.NewNop(), tokens, NewProviderVerifier(provider)), tokens
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer tok", "tok", false},
		{"extra whitespace", "  Bearer   tok  ", "tok", false},
		{"empty", "", "", true},
		{"no token", "Bearer", "", true},
		{"blank token", "Bearer    ", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no scheme", "abc.def.ghi", "", true},
		{"two tokens", "Bearer a b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingCredential)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate_MissingCredential(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator, _ := newCascade(t, provider)

	for _, header := range []string{"", "Token abc", "Bearer"} {
		id, err := authenticator.Authenticate(context.Background(), header)
		assert.Nil(t, id)
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
	provider.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestAuthenticate_SelfIssuedSkipsProvider(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator, tokens := newCascade(t, provider)

	token, err := tokens.Sign("user-1", "a@b.com")
	require.NoError(t, err)

	id, err := authenticator.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UID)
	assert.Equal(t, "a@b.com", id.Email)
	assert.Equal(t, SchemeSelfIssued, id.Scheme)
	provider.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestAuthenticate_FallsBackToProvider(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator, _ := newCascade(t, provider)

	provider.On("ValidateToken", mock.Anything, "provider-token").Return(&cognito.ParsedClaims{
		UID:   "sub-42",
		Email: "p@example.com",
		Name:  "Pat",
	}, nil)

	id, err := authenticator.Authenticate(context.Background(), "Bearer provider-token")
	require.NoError(t, err)
	assert.Equal(t, &Identity{UID: "sub-42", Email: "p@example.com", Name: "Pat", Scheme: SchemeProvider}, id)
	provider.AssertExpectations(t)
}

func TestAuthenticate_BothFailCarriesProviderError(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator, _ := newCascade(t, provider)

	providerErr := errors.New("provider: signature mismatch")
	provider.On("ValidateToken", mock.Anything, "garbage").Return(nil, providerErr)

	id, err := authenticator.Authenticate(context.Background(), "Bearer garbage")
	assert.Nil(t, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, providerErr)
	assert.NotErrorIs(t, err, ErrInvalidToken, "self-issued failure must not surface")

	var credErr *CredentialError
	require.True(t, errors.As(err, &credErr))
	assert.Equal(t, providerErr, credErr.Cause)
	assert.Contains(t, err.Error(), "signature mismatch")
}

func TestAuthenticate_ExpiredSelfIssuedFallsThrough(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator, tokens := newCascade(t, provider)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tokens.Sign("user-1", "a@b.com")
	require.NoError(t, err)
	tokens.now = time.Now

	provider.On("ValidateToken", mock.Anything, expired).Return(nil, cognito.ErrInvalidToken)

	_, err = authenticator.Authenticate(context.Background(), "Bearer "+expired)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, cognito.ErrInvalidToken)
	provider.AssertExpectations(t)
}

func TestAuthenticate_ProviderOnly(t *testing.T) {
	provider := new(MockProviderValidator)
	authenticator := NewAuthenticator(zap.NewNop(), nil, NewProviderVerifier(provider))
	assert.Equal(t, []Scheme{SchemeProvider}, authenticator.Schemes())

	provider.On("ValidateToken", mock.Anything, "tok").Return(&cognito.ParsedClaims{UID: "u"}, nil)

	id, err := authenticator.AuthenticateToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, SchemeProvider, id.Scheme)
}

func TestAuthenticate_NoVerifiers(t *testing.T) {
	authenticator := NewAuthenticator(zap.NewNop())

	_, err := authenticator.AuthenticateToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrInvalidCredential)

	// A missing header is still reported as such
	_, err = authenticator.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCredential)
}
