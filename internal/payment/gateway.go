package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrIgnoredEvent       = errors.New("webhook event ignored")
)

type IntentRequest struct {
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
}

type Intent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}

// Outcome is a gateway's verdict on a transaction.
type Outcome struct {
	TransactionID    string
	Success          bool
	GatewayReference string
	Response         json.RawMessage
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Outcome, error)
}

// ToCents converts a major-unit amount to the smallest currency unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// GenericOutcome treats a gateway response as successful only when its
// "status" field is "success".
func GenericOutcome(transactionID string, response json.RawMessage) Outcome {
	var body struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(response, &body)

	return Outcome{
		TransactionID: transactionID,
		Success:       body.Status == "success",
		Response:      response,
	}
}

type unavailable struct{}

// Unavailable is the gateway used when no provider key is configured.
func Unavailable() Gateway { return unavailable{} }

func (unavailable) CreatePaymentIntent(context.Context, IntentRequest) (*Intent, error) {
	return nil, ErrGatewayUnavailable
}

func (unavailable) ParseWebhook([]byte, string) (*Outcome, error) {
	return nil, ErrGatewayUnavailable
}
