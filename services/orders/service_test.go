package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/orders-backend/config"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/services"
	"go.uber.org/zap"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) ListByOwner(ctx context.Context, ownerUID string, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, ownerUID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

type recorderStub struct {
	items int
	total float64
	calls int
}

func (r *recorderStub) OrderPlaced(items int, total float64) {
	r.items = items
	r.total = total
	r.calls++
}

func newTestService(repo *MockOrderRepository, recorder Recorder) *Service {
	return NewService(repo, nil, recorder, config.OrdersConfig{DefaultLimit: 20, MaxLimit: 100}, zap.NewNop())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("places a priced order", func(t *testing.T) {
		repo := new(MockOrderRepository)
		recorder := &recorderStub{}
		svc := newTestService(repo, recorder)

		created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		repo.On("Create", ctx, mock.MatchedBy(func(o *models.Order) bool {
			return o.OwnerUID == "user-1" && o.Status == models.OrderStatusPlaced && o.Total == 9.54
		})).Run(func(args mock.Arguments) {
			o := args.Get(1).(*models.Order)
			o.ID = uuid.New()
			o.CreatedAt = created
		}).Return(nil)

		order, err := svc.Create(ctx, "user-1", decode(t, `[{"name":"Latte","price":4.5,"qty":2}]`))
		require.NoError(t, err)
		assert.Equal(t, "user-1", order.OwnerUID)
		assert.Equal(t, 9.0, order.Subtotal)
		assert.Equal(t, 0.54, order.Tax)
		assert.Equal(t, created, order.CreatedAt)
		assert.Equal(t, 1, recorder.calls)
		assert.Equal(t, 9.54, recorder.total)
		repo.AssertExpectations(t)
	})

	t.Run("invalid items never reach the repository", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)

		_, err := svc.Create(ctx, "user-1", decode(t, `[{"name":"Latte","qty":100}]`))
		assert.True(t, services.IsValidationError(err))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		dbErr := errors.New("pq: connection refused")

		repo.On("Create", ctx, mock.Anything).Return(dbErr)

		_, err := svc.Create(ctx, "user-1", decode(t, `[{"name":"Latte","qty":1}]`))
		assert.True(t, services.IsPersistenceError(err))
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("owner required", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)

		_, err := svc.Create(ctx, "", decode(t, `[{"name":"Latte","qty":1}]`))
		assert.True(t, services.IsUnauthorizedError(err))
	})
}

func TestService_ListRecent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"default when zero", 0, 20},
		{"default when negative", -5, 20},
		{"as requested", 7, 7},
		{"capped", 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOrderRepository)
			svc := newTestService(repo, nil)

			repo.On("ListByOwner", ctx, "user-1", tt.want).Return([]*models.Order{}, nil)

			orders, err := svc.ListRecent(ctx, "user-1", tt.requested)
			require.NoError(t, err)
			assert.Empty(t, orders)
			repo.AssertExpectations(t)
		})
	}

	t.Run("persistence failure", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)

		repo.On("ListByOwner", ctx, "user-1", 20).Return(nil, errors.New("timeout"))

		_, err := svc.ListRecent(ctx, "user-1", 0)
		assert.True(t, services.IsPersistenceError(err))
	})
}

func TestNewService_LimitDefaults(t *testing.T) {
	svc := NewService(new(MockOrderRepository), nil, nil, config.OrdersConfig{}, zap.NewNop())
	assert.Equal(t, 20, svc.clampLimit(0))
	assert.Equal(t, 20, svc.clampLimit(50))
}
