package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Verifier checks a token under one credential scheme
type Verifier interface {
	// Scheme identifies the credential scheme this verifier accepts
	Scheme() Scheme

	// Verify returns the identity carried by token, or an error when the
	// token is not valid under this scheme
	Verify(ctx context.Context, token string) (*Identity, error)
}

// CredentialError reports that every configured verifier rejected a token.
// Cause is the error of the last verifier tried; earlier rejections are
// expected (a provider token never verifies as self-issued) and dropped.
type CredentialError struct {
	Cause error
}

func (e *CredentialError) Error() string {
	if e.Cause == nil {
		return ErrInvalidCredential.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidCredential, e.Cause)
}

// Unwrap exposes the last verifier's error
func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// Is matches ErrInvalidCredential
func (e *CredentialError) Is(target error) bool {
	return target == ErrInvalidCredential
}

// Authenticator resolves bearer tokens by trying verifiers in order
type Authenticator struct {
	verifiers []Verifier
	logger    *zap.Logger
}

// NewAuthenticator creates an Authenticator. Verifiers are tried in the
// order given; nil entries are skipped.
func NewAuthenticator(logger *zap.Logger, verifiers ...Verifier) *Authenticator {
	a := &Authenticator{logger: logger}
	for _, v := range verifiers {
		if v != nil {
			a.verifiers = append(a.verifiers, v)
		}
	}
	return a
}

// Schemes lists the configured schemes in the order they are tried
func (a *Authenticator) Schemes() []Scheme {
	schemes := make([]Scheme, len(a.verifiers))
	for i, v := range a.verifiers {
		schemes[i] = v.Scheme()
	}
	return schemes
}

// Authenticate verifies the token in an Authorization header value.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}
	return a.AuthenticateToken(ctx, token)
}

// AuthenticateToken verifies a raw token. It returns the first identity a
// verifier accepts; otherwise a *CredentialError wrapping the last failure.
// With no verifiers configured it returns ErrConfiguration.
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string) (*Identity, error) {
	if len(a.verifiers) == 0 {
		return nil, ErrConfiguration
	}

	var lastErr error
	for _, v := range a.verifiers {
		id, err := v.Verify(ctx, token)
		if err == nil && id == nil {
			err = fmt.Errorf("%s verifier returned no identity", v.Scheme())
		}
		if err == nil {
			id.Scheme = v.Scheme()
			return id, nil
		}
		a.logger.Debug("verifier rejected token",
			zap.String("scheme", string(v.Scheme())),
			zap.Error(err))
		lastErr = err
	}
	return nil, &CredentialError{Cause: lastErr}
}
