package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/upb/orders-backend/services/ratelimit"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
)

// RateLimiter counts attempts per scope key
type RateLimiter interface {
	Check(ctx context.Context, scopeKey string) (*ratelimit.Result, error)
	Record(ctx context.Context, scopeKey string) error
}

// RateLimitRecorder counts refused attempts by action
type RateLimitRecorder interface {
	Throttled(action string)
}

// Throttle limits attempts at action per client address. Limiter failures
// let the request through. recorder may be nil.
func Throttle(limiter RateLimiter, action string, recorder RateLimitRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := ratelimit.ScopeKey(action, clientIP(r))

			result, err := limiter.Check(ctx, key)
			if err != nil {
				logger.Error("rate limit check failed",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("action", action),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				if recorder != nil {
					recorder.Throttled(action)
				}
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("scope", key),
					zap.String("window", string(result.ViolatedWindow)))

				if retry := time.Until(result.ResetAt); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				}
				_ = utils.WriteTooManyRequests(w, "Too many attempts, try again later", map[string]interface{}{
					"window": string(result.ViolatedWindow),
				})
				return
			}

			if err := limiter.Record(ctx, key); err != nil {
				logger.Error("failed to record attempt",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("action", action),
					zap.Error(err))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP may already have
// replaced it with a bare address taken from a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
