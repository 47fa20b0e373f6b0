package handler

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safar/go-travel-store/internal/store"
)

type CatalogHandler struct {
	db *sql.DB
}

func NewCatalogHandler(db *sql.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

type listFunc func(ctx context.Context, db *sql.DB, page, pageSize int) (*store.OffsetPage, error)

func (h *CatalogHandler) list(fn listFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := requestContext(c)
		defer cancel()

		page, err := fn(ctx, h.db, queryInt(c, "page", 1), queryInt(c, "pageSize", store.DefaultPageSize))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, page)
	}
}

func (h *CatalogHandler) ListTours() echo.HandlerFunc    { return h.list(store.ListTours) }
func (h *CatalogHandler) ListPackages() echo.HandlerFunc { return h.list(store.ListPackages) }
func (h *CatalogHandler) ListHotels() echo.HandlerFunc   { return h.list(store.ListHotels) }
func (h *CatalogHandler) ListVisas() echo.HandlerFunc    { return h.list(store.ListVisas) }

func (h *CatalogHandler) GetTour(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := store.GetTour(ctx, h.db, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogHandler) GetPackage(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := store.GetPackage(ctx, h.db, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) GetHotel(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	hotel, err := store.GetHotel(ctx, h.db, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hotel)
}

func (h *CatalogHandler) ListRooms(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	rooms, err := store.ListRooms(ctx, h.db, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rooms)
}
