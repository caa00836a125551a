package cognito

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingClaim is returned when a required claim is missing
var ErrMissingClaim = errors.New("missing required claim")

// Claims represents the claims carried by Cognito ID and access tokens
type Claims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	EmailVerified   bool   `json:"email_verified"`
	Name            string `json:"name"`
	TokenUse        string `json:"token_use"`
	ClientID        string `json:"client_id"`
	AuthTime        int64  `json:"auth_time"`
	CognitoUsername string `json:"cognito:username"`
}

// ParsedClaims is the verified subset of a provider token the rest of the
// service relies on. UID is the pool's opaque subject.
type ParsedClaims struct {
	UID           string
	Email         string
	Name          string
	Audience      []string
	EmailVerified bool
	Username      string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// parseClaims converts verified Claims to ParsedClaims
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		UID:           claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Audience:      claims.Audience,
		EmailVerified: claims.EmailVerified,
		Username:      claims.CognitoUsername,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}
