package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/service"
	"github.com/safar/go-travel-store/internal/store"
)

type OrderHandler struct {
	checkout *service.CheckoutService
}

func NewOrderHandler(checkout *service.CheckoutService) *OrderHandler {
	return &OrderHandler{checkout: checkout}
}

type createOrderReq struct {
	SessionID     string `json:"sessionId"`
	CustomerName  string `json:"customerName" validate:"required,max=255"`
	CustomerEmail string `json:"customerEmail" validate:"required,email,max=255"`
	CustomerPhone string `json:"customerPhone" validate:"max=64"`
	Notes         string `json:"notes" validate:"max=2000"`
}

func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	owner, err := resolveOwner(c, req.SessionID)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.checkout.CreateOrder(ctx, owner, models.ShippingDetails{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}, middleware.GetRequestID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"orderNumber": order.OrderNumber,
		"orderId":     order.ID,
		"order":       order,
	})
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.checkout.GetOrder(ctx, c.Param("orderNumber"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) List(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		return invalid("cursor", "is malformed")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.checkout.ListOrders(ctx, currentUserID(c), cursor, queryInt(c, "limit", store.DefaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}
