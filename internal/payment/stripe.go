package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/safar/go-travel-store/internal/config"
)

const metadataTransactionID = "transaction_id"

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
}

// NewGateway returns the Stripe gateway, or Unavailable when no secret key
// is configured.
func NewGateway(cfg config.StripeConfig) Gateway {
	if cfg.SecretKey == "" {
		return Unavailable()
	}
	return NewStripeGateway(cfg)
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToCents(req.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.TransactionID != "" {
		params.AddMetadata(metadataTransactionID, req.TransactionID)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps payment intent
// events to an Outcome. Other event types return ErrIgnoredEvent.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Outcome, error) {
	if g.webhookSecret == "" {
		return nil, ErrGatewayUnavailable
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var success bool
	switch string(event.Type) {
	case "payment_intent.succeeded":
		success = true
	case "payment_intent.payment_failed":
		success = false
	default:
		return nil, ErrIgnoredEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}

	txnID := pi.Metadata[metadataTransactionID]
	if txnID == "" {
		return nil, ErrIgnoredEvent
	}

	return &Outcome{
		TransactionID:    txnID,
		Success:          success,
		GatewayReference: pi.ID,
		Response:         json.RawMessage(event.Data.Raw),
	}, nil
}
