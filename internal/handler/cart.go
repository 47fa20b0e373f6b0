package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/store"
)

type CartHandler struct {
	db *sql.DB
}

func NewCartHandler(db *sql.DB) *CartHandler {
	return &CartHandler{db: db}
}

type addCartReq struct {
	SessionID     string          `json:"sessionId"`
	ItemType      models.ItemType `json:"itemType" validate:"required,oneof=package tour hotel room visa"`
	ItemID        int64           `json:"itemId" validate:"required,gt=0"`
	Quantity      int             `json:"quantity" validate:"omitempty,min=1,max=100"`
	Adults        *int            `json:"adults" validate:"omitempty,min=0,max=50"`
	Children      int             `json:"children" validate:"min=0,max=50"`
	Infants       int             `json:"infants" validate:"min=0,max=50"`
	CheckInDate   *models.Date    `json:"checkInDate"`
	CheckOutDate  *models.Date    `json:"checkOutDate"`
	TravelDate    *models.Date    `json:"travelDate"`
	Configuration json.RawMessage `json:"configuration"`
	Notes         string          `json:"notes" validate:"max=2000"`
}

type patchCartReq struct {
	SessionID     string          `json:"sessionId"`
	Quantity      *int            `json:"quantity" validate:"omitempty,min=1,max=100"`
	Adults        *int            `json:"adults" validate:"omitempty,min=0,max=50"`
	Children      *int            `json:"children" validate:"omitempty,min=0,max=50"`
	Infants       *int            `json:"infants" validate:"omitempty,min=0,max=50"`
	CheckInDate   *models.Date    `json:"checkInDate"`
	CheckOutDate  *models.Date    `json:"checkOutDate"`
	TravelDate    *models.Date    `json:"travelDate"`
	Configuration json.RawMessage `json:"configuration"`
	Notes         *string         `json:"notes" validate:"omitempty,max=2000"`
}

type sessionOnlyReq struct {
	SessionID string `json:"sessionId"`
}

func checkStay(in, out *models.Date) error {
	if in != nil && out != nil && out.Before(in.Time) {
		return invalid("checkOutDate", "must not be before checkInDate")
	}
	return nil
}

func validConfiguration(raw json.RawMessage) error {
	if len(raw) > 0 && !json.Valid(raw) {
		return invalid("configuration", "must be valid JSON")
	}
	return nil
}

func (h *CartHandler) List(c echo.Context) error {
	owner, err := resolveOwner(c, "")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	cart, err := store.ListCart(ctx, h.db, owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) Add(c echo.Context) error {
	var req addCartReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkStay(req.CheckInDate, req.CheckOutDate); err != nil {
		return err
	}
	if err := validConfiguration(req.Configuration); err != nil {
		return err
	}
	owner, err := resolveOwner(c, req.SessionID)
	if err != nil {
		return err
	}

	adults := 1
	if req.Adults != nil {
		adults = *req.Adults
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := store.AddCartItem(ctx, h.db, owner, store.CartItemInput{
		ItemType:      req.ItemType,
		ItemID:        req.ItemID,
		Quantity:      req.Quantity,
		Adults:        adults,
		Children:      req.Children,
		Infants:       req.Infants,
		CheckInDate:   req.CheckInDate,
		CheckOutDate:  req.CheckOutDate,
		TravelDate:    req.TravelDate,
		Configuration: req.Configuration,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req patchCartReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkStay(req.CheckInDate, req.CheckOutDate); err != nil {
		return err
	}
	if err := validConfiguration(req.Configuration); err != nil {
		return err
	}
	owner, err := resolveOwner(c, req.SessionID)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := store.UpdateCartItem(ctx, h.db, owner, id, store.CartItemPatch{
		Quantity:      req.Quantity,
		Adults:        req.Adults,
		Children:      req.Children,
		Infants:       req.Infants,
		CheckInDate:   req.CheckInDate,
		CheckOutDate:  req.CheckOutDate,
		TravelDate:    req.TravelDate,
		Configuration: req.Configuration,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) Remove(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	owner, err := resolveOwner(c, bodySessionID(c))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := store.RemoveCartItem(ctx, h.db, owner, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *CartHandler) Clear(c echo.Context) error {
	owner, err := resolveOwner(c, bodySessionID(c))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := store.ClearCart(ctx, h.db, owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "removed": n})
}

// bodySessionID reads an optional sessionId from a DELETE body.
func bodySessionID(c echo.Context) string {
	if c.Request().ContentLength == 0 {
		return ""
	}
	var req sessionOnlyReq
	if err := c.Bind(&req); err != nil {
		return ""
	}
	return req.SessionID
}
