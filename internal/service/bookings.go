package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/events"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/store"
)

type BookingService struct {
	db        *sql.DB
	publisher events.Publisher
	logger    *zap.Logger
}

func NewBookingService(db *sql.DB, publisher events.Publisher, logger *zap.Logger) *BookingService {
	return &BookingService{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *BookingService) Create(ctx context.Context, userID int64, in store.BookingInput) (*models.Booking, error) {
	b, err := store.CreateBooking(ctx, s.db, userID, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("user_id", userID),
		zap.String("total", b.TotalAmount.StringFixed(2)))
	return b, nil
}

// Get returns the booking when userID owns it or asAdmin is set.
func (s *BookingService) Get(ctx context.Context, userID, id int64, asAdmin bool) (*models.Booking, error) {
	if asAdmin {
		return store.GetBooking(ctx, s.db, id)
	}
	return store.GetUserBooking(ctx, s.db, userID, id)
}

func (s *BookingService) ListForUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	return store.ListUserBookings(ctx, s.db, userID)
}

func (s *BookingService) ListAll(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListBookings(ctx, s.db, page, pageSize)
}

func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus, requestID string) (*models.Booking, error) {
	change, err := store.UpdateBookingStatus(ctx, s.db, id, status)
	if err != nil {
		return nil, err
	}
	if !change.Changed {
		return change.Booking, nil
	}

	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", id),
		zap.String("from", string(change.From)),
		zap.String("to", string(status)),
		zap.String("request_id", requestID))

	events.Emit(ctx, s.publisher, s.logger, events.TypeBookingStatusChanged, requestID, events.BookingStatusChanged{
		BookingID: id,
		UserID:    change.Booking.UserID,
		From:      string(change.From),
		To:        string(status),
	})

	return change.Booking, nil
}

func (s *BookingService) AddReview(ctx context.Context, userID, bookingID int64, rating int, comment string) (*models.Review, error) {
	return store.AddReview(ctx, s.db, userID, bookingID, rating, comment)
}

func (s *BookingService) ListReviews(ctx context.Context, target models.ItemType, id int64) ([]models.Review, error) {
	return store.ListReviews(ctx, s.db, target, id)
}
