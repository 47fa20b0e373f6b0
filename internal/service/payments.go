package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/events"
	"github.com/safar/go-travel-store/internal/payment"
	"github.com/safar/go-travel-store/internal/store"
)

type PaymentService struct {
	db        *sql.DB
	gateway   payment.Gateway
	publisher events.Publisher
	logger    *zap.Logger
}

func NewPaymentService(db *sql.DB, gateway payment.Gateway, publisher events.Publisher, logger *zap.Logger) *PaymentService {
	if gateway == nil {
		gateway = payment.Unavailable()
	}
	return &PaymentService{
		db:        db,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *PaymentService) Apply(ctx context.Context, in store.PaymentInput, requestID string) (*store.PaymentResult, error) {
	res, err := store.ApplyPayment(ctx, s.db, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment applied",
		zap.Int64("booking_id", in.BookingID),
		zap.String("transaction_id", res.Payment.TransactionID),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("payment_status", string(res.Booking.PaymentStatus)),
		zap.String("request_id", requestID))

	events.Emit(ctx, s.publisher, s.logger, events.TypePaymentApplied, requestID, events.PaymentApplied{
		BookingID:     res.Booking.ID,
		UserID:        in.UserID,
		TransactionID: res.Payment.TransactionID,
		Amount:        res.Payment.Amount,
		PaidAmount:    res.Booking.PaidAmount,
		PaymentStatus: string(res.Booking.PaymentStatus),
	})

	return res, nil
}

// Verify settles a transaction from an outcome reported by any source.
func (s *PaymentService) Verify(ctx context.Context, outcome payment.Outcome, requestID string) (*store.PaymentResult, error) {
	res, err := store.VerifyPayment(ctx, s.db, outcome.TransactionID, outcome.Success, outcome.Response)
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		s.logger.Info("Payment already settled",
			zap.String("transaction_id", outcome.TransactionID),
			zap.String("status", res.Payment.Status),
			zap.String("request_id", requestID))
		return res, nil
	}

	s.logger.Info("Payment verified",
		zap.String("transaction_id", outcome.TransactionID),
		zap.String("status", res.Payment.Status),
		zap.String("gateway_reference", outcome.GatewayReference),
		zap.String("request_id", requestID))

	events.Emit(ctx, s.publisher, s.logger, events.TypePaymentVerified, requestID, events.PaymentVerified{
		BookingID:     res.Booking.ID,
		TransactionID: outcome.TransactionID,
		Status:        res.Payment.Status,
		PaidAmount:    res.Booking.PaidAmount,
		PaymentStatus: string(res.Booking.PaymentStatus),
	})

	return res, nil
}

// Summary lists a booking's payments for its owner, or for any booking when
// asAdmin is set.
func (s *PaymentService) Summary(ctx context.Context, userID, bookingID int64, asAdmin bool) (*store.PaymentSummary, error) {
	if asAdmin {
		userID = 0
	}
	return store.BookingPayments(ctx, s.db, userID, bookingID)
}

func (s *PaymentService) VerifyGeneric(ctx context.Context, transactionID string, response json.RawMessage, requestID string) (*store.PaymentResult, error) {
	return s.Verify(ctx, payment.GenericOutcome(transactionID, response), requestID)
}

// HandleWebhook verifies a provider callback and applies its outcome.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature, requestID string) (*store.PaymentResult, error) {
	outcome, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, *outcome, requestID)
}

func (s *PaymentService) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	return s.gateway.CreatePaymentIntent(ctx, req)
}
