package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/events"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/store"
)

type CheckoutService struct {
	db        *sql.DB
	publisher events.Publisher
	logger    *zap.Logger
}

func NewCheckoutService(db *sql.DB, publisher events.Publisher, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *CheckoutService) CreateOrder(ctx context.Context, owner models.Owner, ship models.ShippingDetails, requestID string) (*models.Order, error) {
	order, err := store.CreateOrderFromCart(ctx, s.db, owner, ship)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("request_id", requestID))

	events.Emit(ctx, s.publisher, s.logger, events.TypeOrderCreated, requestID, events.OrderCreated{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
	})

	return order, nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	return store.GetOrderByNumber(ctx, s.db, orderNumber)
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}
