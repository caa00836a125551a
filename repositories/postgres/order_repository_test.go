package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/orders-backend/models"
	"go.uber.org/zap"
)

var orderColumns = []string{"id", "owner_uid", "items", "subtotal", "tax_rate", "tax", "total", "status", "created_at"}

func TestOrderRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop())

	order := &models.Order{
		OwnerUID: "user-1",
		Items:    []models.LineItem{{Name: "Latte", Qty: 2, Price: 4.5, LineTotal: 9}},
		Subtotal: 9,
		TaxRate:  models.TaxRate,
		Tax:      0.54,
		Total:    9.54,
		Status:   models.OrderStatusPlaced,
	}
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "user-1", []byte(`[{"name":"Latte","qty":2,"price":4.5,"lineTotal":9}]`),
			9.0, 0.06, 0.54, 9.54, "PLACED").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, created, order.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateWritesUnroundedAmounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop())

	order := &models.Order{
		OwnerUID: "user-1",
		Items: []models.LineItem{
			{Name: "Clip", Qty: 1, Price: 0.333, LineTotal: 0.333},
			{Name: "Yacht", Qty: 1, Price: 1e10, LineTotal: 1e10},
		},
		Subtotal: 10000000000.333,
		TaxRate:  models.TaxRate,
		Tax:      600000000.01998,
		Total:    10600000000.35298,
		Status:   models.OrderStatusPlaced,
	}

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(),
			10000000000.333, 0.06, 600000000.01998, 10600000000.35298, "PLACED").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	require.NoError(t, repo.Create(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_MoneyColumnsAreUnbounded(t *testing.T) {
	for _, column := range []string{"subtotal", "tax_rate", "tax", "total"} {
		assert.Regexp(t, `(?m)^\s*`+column+` DOUBLE PRECISION NOT NULL`, schema, column)
	}
	assert.NotContains(t, schema, "NUMERIC(")
}

func TestOrderRepository_CreateError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, zap.NewNop())

	mock.ExpectQuery("INSERT INTO orders").WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), &models.Order{OwnerUID: "u", Status: models.OrderStatusPlaced})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestOrderRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first with decoded items", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, zap.NewNop())

		newer := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
		older := newer.Add(-time.Hour)
		id1, id2 := uuid.New(), uuid.New()

		mock.ExpectQuery("ORDER BY created_at DESC, seq DESC").
			WithArgs("user-1", 20).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(id1.String(), "user-1", []byte(`[{"name":"Latte","qty":2,"price":4.5,"lineTotal":9}]`), 9.0, 0.06, 0.54, 9.54, "PLACED", newer).
				AddRow(id2.String(), "user-1", []byte(`[{"name":"Tea","qty":1,"price":2,"lineTotal":2}]`), 2.0, 0.06, 0.12, 2.12, "PLACED", older))

		orders, err := repo.ListByOwner(ctx, "user-1", 20)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, id1, orders[0].ID)
		assert.Equal(t, "Latte", orders[0].Items[0].Name)
		assert.Equal(t, 9.54, orders[0].Total)
		assert.Equal(t, 0.54, orders[0].Tax)
		assert.Equal(t, models.OrderStatusPlaced, orders[1].Status)
		assert.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, zap.NewNop())

		mock.ExpectQuery("FROM orders").
			WithArgs("user-2", 5).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		orders, err := repo.ListByOwner(ctx, "user-2", 5)
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	t.Run("corrupt items column", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, zap.NewNop())

		mock.ExpectQuery("FROM orders").
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(uuid.New().String(), "u", []byte(`not json`), 0.0, 0.06, 0.0, 0.0, "PLACED", time.Now()))

		_, err := repo.ListByOwner(ctx, "u", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode items")
	})
}
