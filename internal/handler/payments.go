package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/payment"
	"github.com/safar/go-travel-store/internal/service"
	"github.com/safar/go-travel-store/internal/store"
)

const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	payments *service.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type applyPaymentReq struct {
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"paymentMethod" validate:"required,max=32"`
	GatewayReference *string         `json:"gatewayReference" validate:"omitempty,max=255"`
}

type verifyPaymentReq struct {
	TransactionID   string          `json:"transactionId" validate:"required,max=64"`
	GatewayResponse json.RawMessage `json:"gatewayResponse"`
}

type createIntentReq struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	TransactionID string          `json:"transactionId" validate:"omitempty,max=64"`
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	if !store.ValidAmount(amount) {
		return invalid("amount", "must have at most 2 decimal places")
	}
	return nil
}

func (h *PaymentHandler) Apply(c echo.Context) error {
	bookingID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req applyPaymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkAmount(req.Amount); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.payments.Apply(ctx, store.PaymentInput{
		UserID:           currentUserID(c),
		BookingID:        bookingID,
		Amount:           req.Amount,
		Method:           req.PaymentMethod,
		GatewayReference: req.GatewayReference,
	}, middleware.GetRequestID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment": res.Payment,
		"booking": res.Booking,
	})
}

func (h *PaymentHandler) List(c echo.Context) error {
	bookingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	s := middleware.CurrentSession(c)
	summary, err := h.payments.Summary(ctx, s.UserID, bookingID, s.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyPaymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if len(req.GatewayResponse) == 0 {
		return invalid("gatewayResponse", "is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.payments.VerifyGeneric(ctx, req.TransactionID, req.GatewayResponse, middleware.GetRequestID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payment": res.Payment,
		"booking": res.Booking,
	})
}

// StripeWebhook answers 200 for every correctly signed event. Events that do
// not map to a payment are reported as ignored.
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return invalid("body", "could not be read")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.payments.HandleWebhook(ctx, payload, c.Request().Header.Get("Stripe-Signature"), middleware.GetRequestID(c))
	switch {
	case errors.Is(err, payment.ErrIgnoredEvent):
		return c.JSON(http.StatusOK, echo.Map{"received": true, "ignored": true})
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received":      true,
		"transactionId": res.Payment.TransactionID,
		"status":        res.Payment.Status,
		"duplicate":     !res.Changed,
	})
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var req createIntentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkAmount(req.Amount); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	intent, err := h.payments.CreateIntent(ctx, payment.IntentRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		if !errors.Is(err, payment.ErrGatewayUnavailable) {
			h.logger.Error("Failed to create payment intent", zap.Error(err))
		}
		return err
	}
	return c.JSON(http.StatusOK, intent)
}
