package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

const reviewColumns = `r.id, r.booking_id, r.user_id, u.username, r.tour_id, r.package_id, r.hotel_id,
	r.rating, r.comment, r.created_at`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	r := &models.Review{}
	err := row.Scan(
		&r.ID,
		&r.BookingID,
		&r.UserID,
		&r.Username,
		&r.TourID,
		&r.PackageID,
		&r.HotelID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
	)
	return r, err
}

// AddReview stores the single review allowed for a completed booking.
func AddReview(ctx context.Context, db *sql.DB, userID, bookingID int64, rating int, comment string) (*models.Review, error) {
	var review *models.Review

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, bookingID, userID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingCompleted {
			return fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, database.ErrInvalidState)
		}

		var id int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO reviews (booking_id, user_id, tour_id, package_id, hotel_id, rating, comment, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 RETURNING id`,
			b.ID, userID, b.TourID, b.PackageID, b.HotelID, rating, comment).Scan(&id)
		if err != nil {
			if database.IsUniqueViolation(err, "reviews_booking_id_key") {
				return database.ErrReviewExists
			}
			return fmt.Errorf("create review: %w", err)
		}

		review, err = scanReview(tx.QueryRowContext(ctx,
			`SELECT `+reviewColumns+` FROM reviews r JOIN users u ON u.id = r.user_id WHERE r.id = $1`, id))
		if err != nil {
			return fmt.Errorf("fetch created review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// ListReviews returns the reviews of a tour, package or hotel, newest first.
func ListReviews(ctx context.Context, db *sql.DB, target models.ItemType, id int64) ([]models.Review, error) {
	var column string
	switch target {
	case models.ItemTour:
		column = "tour_id"
	case models.ItemPackage:
		column = "package_id"
	case models.ItemHotel:
		column = "hotel_id"
	default:
		return nil, database.ErrCatalogNotFound
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+reviewColumns+`
		 FROM reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.`+column+` = $1
		 ORDER BY r.created_at DESC, r.id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}
