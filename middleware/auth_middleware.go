package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/orders-backend/auth"
	"github.com/upb/orders-backend/services"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
)

// Authenticator resolves an Authorization header to an identity
type Authenticator interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*auth.Identity, error)
}

// AuthFailureRecorder counts rejected requests by reason
type AuthFailureRecorder interface {
	AuthFailed(reason string)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator Authenticator
	recorder      AuthFailureRecorder
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. recorder may be nil.
func NewAuthMiddleware(authenticator Authenticator, recorder AuthFailureRecorder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		recorder:      recorder,
		logger:        logger,
	}
}

// RequireAuth is a middleware that requires a bearer token accepted by
// one of the configured schemes
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		identity, err := m.authenticator.Authenticate(ctx, r.Header.Get("Authorization"))
		if err != nil {
			reason := failureReason(err)
			m.recordFailure(reason)

			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.String("reason", reason),
				zap.Error(err))

			domainErr := services.FromAuthError(err).(*services.DomainError)
			if domainErr.Type == services.ErrorTypeConfiguration {
				_ = utils.WriteInternalServerError(w, domainErr.Message, "configuration_error")
				return
			}
			_ = utils.WriteUnauthorized(w, domainErr.Message)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("uid", identity.UID),
			zap.String("scheme", string(identity.Scheme)))

		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, auth.ErrConfiguration):
		return "configuration"
	default:
		return "invalid_credential"
	}
}

func (m *AuthMiddleware) recordFailure(reason string) {
	if m.recorder != nil {
		m.recorder.AuthFailed(reason)
	}
}
