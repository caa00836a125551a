package orders

import (
	"context"

	"github.com/upb/orders-backend/config"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/repositories"
	"github.com/upb/orders-backend/services"
	"go.uber.org/zap"
)

// Recorder observes placed orders. Implemented by the metrics registry.
type Recorder interface {
	OrderPlaced(items int, total float64)
}

// Service places and lists orders for an authenticated owner
type Service struct {
	orders       repositories.OrderRepository
	normalizer   *Normalizer
	recorder     Recorder
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// NewService creates a new order service. recorder may be nil.
func NewService(orders repositories.OrderRepository, normalizer *Normalizer, recorder Recorder, cfg config.OrdersConfig, logger *zap.Logger) *Service {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &Service{
		orders:       orders,
		normalizer:   normalizer,
		recorder:     recorder,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       logger,
	}
}

// Create normalizes rawItems and persists a PLACED order owned by ownerUID.
// Nothing is written when any item is invalid.
func (s *Service) Create(ctx context.Context, ownerUID string, rawItems any) (*models.Order, error) {
	if ownerUID == "" {
		return nil, services.ErrMissingCredential
	}

	pricing, err := s.normalizer.Normalize(rawItems)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OwnerUID: ownerUID,
		Items:    pricing.Items,
		Subtotal: pricing.Subtotal,
		TaxRate:  pricing.TaxRate,
		Tax:      pricing.Tax,
		Total:    pricing.Total,
		Status:   models.OrderStatusPlaced,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("failed to save order",
			zap.String("owner_uid", ownerUID),
			zap.Error(err))
		return nil, services.WrapPersistence("failed to save order", err)
	}

	if s.recorder != nil {
		s.recorder.OrderPlaced(len(order.Items), order.Total)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("owner_uid", ownerUID),
		zap.Float64("total", order.Total))

	return order, nil
}

// ListRecent returns the owner's newest orders. A non-positive limit uses
// the default; larger limits are capped.
func (s *Service) ListRecent(ctx context.Context, ownerUID string, limit int) ([]*models.Order, error) {
	if ownerUID == "" {
		return nil, services.ErrMissingCredential
	}

	orders, err := s.orders.ListByOwner(ctx, ownerUID, s.clampLimit(limit))
	if err != nil {
		return nil, services.WrapPersistence("failed to list orders", err)
	}
	return orders, nil
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}
