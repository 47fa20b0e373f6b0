package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

type PaymentInput struct {
	UserID           int64
	BookingID        int64
	Amount           decimal.Decimal
	Method           string
	GatewayReference *string
}

// PaymentResult pairs a payment with the booking balance it changed.
type PaymentResult struct {
	Payment *models.Payment
	Booking *models.Booking
	Changed bool
}

// PaymentSummary lists a booking's payments with the amount still held by
// pending and completed ones.
type PaymentSummary struct {
	Booking   *models.Booking  `json:"booking"`
	Payments  []models.Payment `json:"payments"`
	Committed decimal.Decimal  `json:"committedAmount"`
}

const paymentColumns = `id, booking_id, user_id, amount, payment_method, transaction_id, status,
	gateway_reference, gateway_response, verified_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.UserID,
		&p.Amount,
		&p.PaymentMethod,
		&p.TransactionID,
		&p.Status,
		&p.GatewayReference,
		(*[]byte)(&p.GatewayResponse),
		&p.VerifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// ApplyPayment records a pending payment against the user's booking and
// advances its paid amount. The booking row is locked for the duration, so
// concurrent payments are serialized and never exceed the booking total.
func ApplyPayment(ctx context.Context, db *sql.DB, in PaymentInput) (*PaymentResult, error) {
	if !ValidAmount(in.Amount) {
		return nil, database.ErrInvalidAmount
	}

	var result *PaymentResult

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, in.BookingID, in.UserID)
		if err != nil {
			return err
		}
		if b.Status == models.BookingCancelled {
			return fmt.Errorf("booking %d is cancelled: %w", b.ID, database.ErrInvalidState)
		}
		if in.Amount.GreaterThan(b.Remaining()) {
			return database.ErrOverPayment
		}

		p, err := scanPayment(tx.QueryRowContext(ctx,
			`INSERT INTO payments (booking_id, user_id, amount, payment_method, transaction_id,
				status, gateway_reference, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			 RETURNING `+paymentColumns,
			b.ID, in.UserID, in.Amount, in.Method, NewTransactionID(),
			models.PaymentRecordPending, in.GatewayReference))
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		paid := b.PaidAmount.Add(in.Amount)
		updated, err := setBookingBalance(ctx, tx, b.ID, paid, models.PaymentStatusFor(paid, b.TotalAmount))
		if err != nil {
			return err
		}

		result = &PaymentResult{Payment: p, Booking: updated, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ValidAmount reports whether amount is positive with at most two decimal
// places, the precision of the money columns.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

func setBookingBalance(ctx context.Context, tx *sql.Tx, id int64, paid decimal.Decimal, status models.PaymentStatus) (*models.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`UPDATE bookings
		 SET paid_amount = $2, payment_status = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+bookingColumns,
		id, paid, status))
	if err != nil {
		return nil, fmt.Errorf("update booking balance: %w", err)
	}
	return b, nil
}

// VerifyPayment settles a payment from a gateway verdict. A failed
// verification releases its amount from the booking balance. A later success
// on a failed payment claims the amount again if the balance still allows it.
// Repeating the verdict a payment already carries changes nothing and reports Changed false.
// A completed payment cannot fail.
func VerifyPayment(ctx context.Context, db *sql.DB, transactionID string, success bool, gatewayResponse json.RawMessage) (*PaymentResult, error) {
	var result *PaymentResult

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var bookingID int64
		err := tx.QueryRowContext(ctx,
			`SELECT booking_id FROM payments WHERE transaction_id = $1`,
			transactionID).Scan(&bookingID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrPaymentNotFound
			}
			return fmt.Errorf("find payment: %w", err)
		}

		// booking first, same order as ApplyPayment
		b, err := lockBooking(ctx, tx, bookingID, 0)
		if err != nil {
			return err
		}

		p, err := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1 FOR UPDATE`,
			transactionID))
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}

		status := models.PaymentRecordFailed
		if success {
			status = models.PaymentRecordCompleted
		}

		if p.Status == status {
			result = &PaymentResult{Payment: p, Booking: b}
			return nil
		}

		paid := b.PaidAmount
		switch p.Status {
		case models.PaymentRecordPending:
			if !success {
				paid = paid.Sub(p.Amount)
				if paid.IsNegative() {
					paid = decimal.Zero
				}
			}
		case models.PaymentRecordFailed:
			if b.Status == models.BookingCancelled {
				return fmt.Errorf("booking %d is cancelled: %w", b.ID, database.ErrInvalidState)
			}
			if p.Amount.GreaterThan(b.Remaining()) {
				return fmt.Errorf("reclaim payment %s: %w", transactionID, database.ErrOverPayment)
			}
			paid = paid.Add(p.Amount)
		default:
			return fmt.Errorf("payment %s is %s: %w", transactionID, p.Status, database.ErrInvalidState)
		}

		p, err = scanPayment(tx.QueryRowContext(ctx,
			`UPDATE payments
			 SET status = $2, gateway_response = $3::jsonb, verified_at = NOW(), updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+paymentColumns,
			p.ID, status, jsonArg(gatewayResponse)))
		if err != nil {
			return fmt.Errorf("verify payment: %w", err)
		}

		if !paid.Equal(b.PaidAmount) {
			b, err = setBookingBalance(ctx, tx, b.ID, paid, models.PaymentStatusFor(paid, b.TotalAmount))
			if err != nil {
				return err
			}
		}

		result = &PaymentResult{Payment: p, Booking: b, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SumPayments totals the non-failed payments of a booking.
func SumPayments(ctx context.Context, q database.Querier, bookingID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE booking_id = $1 AND status <> $2`,
		bookingID, models.PaymentRecordFailed).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}

func ListBookingPayments(ctx context.Context, db *sql.DB, bookingID int64) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 ORDER BY created_at, id`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payments, nil
}

// BookingPayments returns the payments of a booking. A non-zero userID
// restricts it to that user's booking.
func BookingPayments(ctx context.Context, db *sql.DB, userID, bookingID int64) (*PaymentSummary, error) {
	var (
		b   *models.Booking
		err error
	)
	if userID != 0 {
		b, err = GetUserBooking(ctx, db, userID, bookingID)
	} else {
		b, err = GetBooking(ctx, db, bookingID)
	}
	if err != nil {
		return nil, err
	}

	payments, err := ListBookingPayments(ctx, db, b.ID)
	if err != nil {
		return nil, err
	}
	committed, err := SumPayments(ctx, db, b.ID)
	if err != nil {
		return nil, err
	}

	return &PaymentSummary{Booking: b, Payments: payments, Committed: committed}, nil
}
