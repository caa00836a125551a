// Package auth turns bearer credentials into a verified caller identity.
//
// Two credential schemes are supported: tokens minted by this service's own
// login endpoint (self-issued, HS256) and tokens minted by the managed
// identity provider. An Authenticator tries its verifiers in a fixed order
// and stops at the first one that accepts the token.
package auth

import (
	"errors"
	"strings"
)

// Scheme names the credential scheme that produced an Identity
type Scheme string

const (
	SchemeProvider   Scheme = "provider"
	SchemeSelfIssued Scheme = "self_issued"
)

// Identity is the verified caller of a request. Email and Name are empty
// when the credential did not carry them.
type Identity struct {
	UID    string `json:"uid"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Scheme Scheme `json:"authScheme"`
}

var (
	// ErrMissingCredential is returned when the Authorization header is absent
	// or is not of the form "Bearer <token>"
	ErrMissingCredential = errors.New("missing bearer token")

	// ErrInvalidCredential is returned when no verifier accepts the token
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrConfiguration is returned when no usable scheme or secret is configured
	ErrConfiguration = errors.New("authentication not configured")
)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(parts[1])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMissingCredential
	}
	return token, nil
}
