package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/config"
)

const (
	TypeOrderCreated         = "order.created"
	TypeBookingStatusChanged = "booking.status_changed"
	TypePaymentApplied       = "payment.applied"
	TypePaymentVerified      = "payment.verified"
)

// Event is the envelope written to the broker.
type Event struct {
	ID        string          `json:"event_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type OrderCreated struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      *int64          `json:"user_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

type BookingStatusChanged struct {
	BookingID int64  `json:"booking_id"`
	UserID    int64  `json:"user_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type PaymentApplied struct {
	BookingID     int64           `json:"booking_id"`
	UserID        int64           `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus string          `json:"payment_status"`
}

type PaymentVerified struct {
	BookingID     int64           `json:"booking_id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus string          `json:"payment_status"`
}

// New wraps payload in an envelope with a fresh id.
func New(eventType, requestID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Payload:   body,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// NewPublisher builds the publisher selected by cfg.Broker.
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return NopPublisher{}, nil
	case "rabbitmq", "amqp":
		return NewAMQPPublisher(cfg.RabbitMQURL, cfg.Topic, logger), nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic, logger), nil
	}
	return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
}

// Emit builds and publishes an event after a commit. Failures are logged
// only.
func Emit(ctx context.Context, pub Publisher, logger *zap.Logger, eventType, requestID string, payload any) {
	ev, err := New(eventType, requestID, payload)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err = pub.Publish(ctx, ev)
	}
	if err != nil {
		logger.Error("Failed to publish event",
			zap.String("type", eventType),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
