package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/database"
)

type HealthHandler struct {
	db         *sql.DB
	mapsAPIKey string
	logger     *zap.Logger
}

func NewHealthHandler(db *sql.DB, mapsAPIKey string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, mapsAPIKey: mapsAPIKey, logger: logger}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
}

// MapsConfig exposes the browser maps key. It is empty when unset.
func (h *HealthHandler) MapsConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"googleMapsApiKey": h.mapsAPIKey})
}
