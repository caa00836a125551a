package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/orders-backend/middleware"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/services"
	"github.com/upb/orders-backend/services/orders"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
)

// OrderService defines the order operations
type OrderService interface {
	// Create prices rawItems and stores an order owned by ownerUID
	Create(ctx context.Context, ownerUID string, rawItems any) (*models.Order, error)

	// ListRecent returns the owner's newest orders
	ListRecent(ctx context.Context, ownerUID string, limit int) ([]*models.Order, error)
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	orders OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// HandleCreateOrder handles POST /api/orders
func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		HandleServiceError(w, services.ErrMissingCredential, h.logger)
		return
	}

	// Items stay untyped; the normalizer coerces them
	body, err := orders.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, errInvalidBody.Error(), nil)
		return
	}

	var rawItems any
	if obj, ok := body.(map[string]any); ok {
		rawItems = obj["items"]
	}

	order, err := h.orders.Create(ctx, identity.UID, rawItems)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("order created",
		zap.String("request_id", requestID),
		zap.String("order_id", order.ID.String()),
		zap.String("scheme", string(identity.Scheme)))

	_ = utils.WriteCreated(w, utils.Payload{"order": order})
}

// HandleListOrders handles GET /api/orders
func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		HandleServiceError(w, services.ErrMissingCredential, h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	list, err := h.orders.ListRecent(ctx, identity.UID, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, utils.Payload{"orders": list})
}
