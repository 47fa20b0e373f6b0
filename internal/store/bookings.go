package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

type BookingInput struct {
	TargetType      models.ItemType
	TargetID        int64
	BookingDate     models.Date
	Participants    int
	SpecialRequests string
}

// StatusChange describes the outcome of UpdateBookingStatus.
type StatusChange struct {
	Booking *models.Booking
	From    models.BookingStatus
	Changed bool
}

const bookingColumns = `id, user_id, tour_id, package_id, hotel_id, booking_date, participants,
	total_amount, status, paid_amount, payment_status, special_requests,
	confirmed_at, cancelled_at, completed_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.TourID,
		&b.PackageID,
		&b.HotelID,
		&b.BookingDate,
		&b.Participants,
		&b.TotalAmount,
		&b.Status,
		&b.PaidAmount,
		&b.PaymentStatus,
		&b.SpecialRequests,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func bookable(t models.ItemType) bool {
	return t == models.ItemTour || t == models.ItemPackage || t == models.ItemHotel
}

func CreateBooking(ctx context.Context, db *sql.DB, userID int64, in BookingInput) (*models.Booking, error) {
	if !bookable(in.TargetType) {
		return nil, fmt.Errorf("create booking: %s is not bookable: %w", in.TargetType, database.ErrCatalogNotFound)
	}
	if in.Participants < 1 {
		in.Participants = 1
	}

	entry, err := LookupActive(ctx, db, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}

	total := entry.EffectivePrice().Mul(decimal.NewFromInt(int64(in.Participants)))

	var tourID, packageID, hotelID *int64
	switch in.TargetType {
	case models.ItemTour:
		tourID = &in.TargetID
	case models.ItemPackage:
		packageID = &in.TargetID
	case models.ItemHotel:
		hotelID = &in.TargetID
	}

	query := `
		INSERT INTO bookings (user_id, tour_id, package_id, hotel_id, booking_date, participants,
			total_amount, status, paid_amount, payment_status, special_requests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, NOW(), NOW())
		RETURNING ` + bookingColumns

	b, err := scanBooking(db.QueryRowContext(ctx, query,
		userID, tourID, packageID, hotelID, in.BookingDate, in.Participants,
		total, models.BookingPending, models.PaymentStatusFor(decimal.Zero, total), in.SpecialRequests))
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err, "bookings_user_id_fkey"):
			return nil, database.ErrUserNotFound
		case database.IsForeignKeyViolation(err, ""):
			// the catalog row was deleted after the lookup
			return nil, database.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	return b, nil
}

func GetBooking(ctx context.Context, db *sql.DB, id int64) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// GetUserBooking is GetBooking scoped to the owning user.
func GetUserBooking(ctx context.Context, db *sql.DB, userID, id int64) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func ListUserBookings(ctx context.Context, db *sql.DB, userID int64) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return bookings, nil
}

func ListBookings(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	return listOffset(ctx, db,
		`SELECT COUNT(*) FROM bookings`,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		nil, page, pageSize, func(rows *sql.Rows) (models.Booking, error) {
			b, err := scanBooking(rows)
			if err != nil {
				return models.Booking{}, fmt.Errorf("scan booking: %w", err)
			}
			return *b, nil
		})
}

// lockBooking reads a booking FOR UPDATE. A non-zero userID scopes the read.
func lockBooking(ctx context.Context, tx *sql.Tx, id, userID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	args := []any{id}
	if userID != 0 {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` FOR UPDATE`

	b, err := scanBooking(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBookingNotFound
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus moves a booking to status and stamps the matching
// timestamp. Cancelled and completed bookings cannot move again. Setting the
// current status is a no-op.
func UpdateBookingStatus(ctx context.Context, db *sql.DB, id int64, status models.BookingStatus) (*StatusChange, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown booking status %q: %w", status, database.ErrInvalidState)
	}

	var change *StatusChange

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := lockBooking(ctx, tx, id, 0)
		if err != nil {
			return err
		}

		change = &StatusChange{Booking: current, From: current.Status}
		if current.Status == status {
			return nil
		}
		if current.Status.Terminal() {
			return fmt.Errorf("booking %d is %s: %w", id, current.Status, database.ErrInvalidState)
		}

		query := `UPDATE bookings SET status = $2, updated_at = NOW()`
		switch status {
		case models.BookingConfirmed:
			query += `, confirmed_at = NOW()`
		case models.BookingCancelled:
			query += `, cancelled_at = NOW()`
		case models.BookingCompleted:
			query += `, completed_at = NOW()`
		}
		query += ` WHERE id = $1 RETURNING ` + bookingColumns

		updated, err := scanBooking(tx.QueryRowContext(ctx, query, id, status))
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		change.Booking = updated
		change.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return change, nil
}
