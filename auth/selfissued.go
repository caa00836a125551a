package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of a self-issued token
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrTokenExpired is returned when a self-issued token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when a self-issued token fails verification
	ErrInvalidToken = errors.New("invalid token")
)

// SelfIssuedClaims are the claims of tokens minted by the login endpoint
type SelfIssuedClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// SelfIssuedTokens signs and verifies HS256 tokens with a server-held secret
type SelfIssuedTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSelfIssuedTokens creates a signer/verifier. An empty secret is allowed
// here so misconfiguration surfaces as ErrConfiguration at call time.
func NewSelfIssuedTokens(secret, issuer string, ttl time.Duration) *SelfIssuedTokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SelfIssuedTokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Configured reports whether a signing secret is present
func (s *SelfIssuedTokens) Configured() bool {
	return s != nil && len(s.secret) > 0
}

// Scheme implements Verifier
func (s *SelfIssuedTokens) Scheme() Scheme {
	return SchemeSelfIssued
}

// Sign mints a token for uid/email expiring after the configured TTL
func (s *SelfIssuedTokens) Sign(uid, email string) (string, error) {
	if !s.Configured() {
		return "", ErrConfiguration
	}

	now := s.now()
	claims := SelfIssuedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID:   uid,
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify implements Verifier. It never performs network I/O.
func (s *SelfIssuedTokens) Verify(_ context.Context, token string) (*Identity, error) {
	if !s.Configured() {
		return nil, ErrConfiguration
	}

	claims := &SelfIssuedClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UID == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}

	return &Identity{
		UID:    claims.UID,
		Email:  claims.Email,
		Scheme: SchemeSelfIssued,
	}, nil
}
