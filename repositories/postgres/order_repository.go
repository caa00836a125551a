package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/repositories"
	"go.uber.org/zap"
)

// OrderRepository implements the repositories.OrderRepository interface
type OrderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DB, logger *zap.Logger) repositories.OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an order and reads back the server-assigned created_at
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, owner_uid, items, subtotal, tax_rate, tax, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	executor := GetExecutor(ctx, r.db)
	err = executor.QueryRowContext(ctx, query,
		order.ID,
		order.OwnerUID,
		items,
		order.Subtotal,
		order.TaxRate,
		order.Tax,
		order.Total,
		order.Status,
	).Scan(&order.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug("order created",
		zap.String("id", order.ID.String()),
		zap.String("owner_uid", order.OwnerUID),
		zap.Int("items", len(order.Items)))
	return nil
}

// ListByOwner returns the owner's most recent orders
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerUID string, limit int) ([]*models.Order, error) {
	query := `
		SELECT id, owner_uid, items, subtotal, tax_rate, tax, total, status, created_at
		FROM orders
		WHERE owner_uid = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order := &models.Order{}
		var items []byte

		if err := rows.Scan(
			&order.ID,
			&order.OwnerUID,
			&items,
			&order.Subtotal,
			&order.TaxRate,
			&order.Tax,
			&order.Total,
			&order.Status,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of order %s: %w", order.ID, err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}
