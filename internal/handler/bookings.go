package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/service"
	"github.com/safar/go-travel-store/internal/store"
)

type BookingHandler struct {
	bookings *service.BookingService
	cache    *middleware.CacheInvalidator
}

func NewBookingHandler(bookings *service.BookingService, cache *middleware.CacheInvalidator) *BookingHandler {
	return &BookingHandler{bookings: bookings, cache: cache}
}

type createBookingReq struct {
	TourID          *int64      `json:"tourId" validate:"omitempty,gt=0"`
	PackageID       *int64      `json:"packageId" validate:"omitempty,gt=0"`
	HotelID         *int64      `json:"hotelId" validate:"omitempty,gt=0"`
	BookingDate     models.Date `json:"bookingDate"`
	Participants    int         `json:"participants" validate:"required,min=1,max=100"`
	SpecialRequests string      `json:"specialRequests" validate:"max=2000"`
}

// target returns the single catalog entity the request books.
func (r *createBookingReq) target() (models.ItemType, int64, error) {
	var (
		t  models.ItemType
		id int64
		n  int
	)
	if r.TourID != nil {
		t, id, n = models.ItemTour, *r.TourID, n+1
	}
	if r.PackageID != nil {
		t, id, n = models.ItemPackage, *r.PackageID, n+1
	}
	if r.HotelID != nil {
		t, id, n = models.ItemHotel, *r.HotelID, n+1
	}
	if n != 1 {
		return "", 0, invalid("tourId", "exactly one of tourId, packageId or hotelId is required")
	}
	return t, id, nil
}

type updateStatusReq struct {
	Status models.BookingStatus `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
}

type addReviewReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=4000"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	t, id, err := req.target()
	if err != nil {
		return err
	}
	if req.BookingDate.IsZero() {
		return invalid("bookingDate", "is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.bookings.Create(ctx, currentUserID(c), store.BookingInput{
		TargetType:      t,
		TargetID:        id,
		BookingDate:     req.BookingDate,
		Participants:    req.Participants,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	bookings, err := h.bookings.ListForUser(ctx, currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	s := middleware.CurrentSession(c)
	b, err := h.bookings.Get(ctx, s.UserID, id, s.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.bookings.ListAll(ctx, queryInt(c, "page", 1), queryInt(c, "pageSize", store.DefaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.bookings.UpdateStatus(ctx, id, req.Status, middleware.GetRequestID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) AddReview(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req addReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.bookings.AddReview(ctx, currentUserID(c), id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	if path := reviewsPath(r); path != "" {
		h.cache.Invalidate(ctx, path)
	}
	return c.JSON(http.StatusCreated, r)
}

// reviewsPath is the listing route that shows r.
func reviewsPath(r *models.Review) string {
	switch {
	case r.TourID != nil:
		return fmt.Sprintf("/api/tours/%d/reviews", *r.TourID)
	case r.PackageID != nil:
		return fmt.Sprintf("/api/packages/%d/reviews", *r.PackageID)
	case r.HotelID != nil:
		return fmt.Sprintf("/api/hotels/%d/reviews", *r.HotelID)
	}
	return ""
}

// Reviews lists reviews for the catalog entity named by target and :id.
func (h *BookingHandler) Reviews(target models.ItemType) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		reviews, err := h.bookings.ListReviews(ctx, target, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, reviews)
	}
}
