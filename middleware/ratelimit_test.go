package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/orders-backend/services/ratelimit"
	"go.uber.org/zap"
)

// MockRateLimiter is a mock implementation of RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Check(ctx context.Context, scopeKey string) (*ratelimit.Result, error) {
	args := m.Called(ctx, scopeKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimit.Result), args.Error(1)
}

func (m *MockRateLimiter) Record(ctx context.Context, scopeKey string) error {
	return m.Called(ctx, scopeKey).Error(0)
}

type throttleCounter struct {
	actions []string
}

func (c *throttleCounter) Throttled(action string) {
	c.actions = append(c.actions, action)
}

func TestThrottle(t *testing.T) {
	logger := zap.NewNop()
	// httptest.NewRequest uses 192.0.2.1:1234 as the remote address
	const key = "login:ip:192.0.2.1"

	serve := func(limiter RateLimiter, counter *throttleCounter) (*httptest.ResponseRecorder, bool) {
		reached := false
		handler := Throttle(limiter, "login", counter, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		return w, reached
	}

	t.Run("allowed attempt is recorded", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{Allowed: true, Remaining: 4}, nil)
		limiter.On("Record", mock.Anything, key).Return(nil)
		counter := &throttleCounter{}

		w, reached := serve(limiter, counter)

		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, counter.actions)
		limiter.AssertExpectations(t)
	})

	t.Run("exceeded window returns 429", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{
			Allowed:        false,
			ResetAt:        time.Now().Add(30 * time.Second),
			ViolatedWindow: ratelimit.WindowMinute,
		}, nil)
		counter := &throttleCounter{}

		w, reached := serve(limiter, counter)

		assert.False(t, reached)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "rate_limit_exceeded", body["error"])
		assert.Equal(t, "minute", body["details"].(map[string]interface{})["window"])
		assert.Equal(t, []string{"login"}, counter.actions)
		limiter.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Check", mock.Anything, key).Return(nil, errors.New("connection refused"))

		w, reached := serve(limiter, nil)

		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("record failure does not block", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{Allowed: true}, nil)
		limiter.On("Record", mock.Anything, key).Return(errors.New("insert failed"))

		w, reached := serve(limiter, nil)

		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
