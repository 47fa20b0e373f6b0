package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/models"
)

const dbTimeout = 10 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// resolveOwner picks the logged-in user, else the client's sessionId from
// the body or the query string.
func resolveOwner(c echo.Context, bodySessionID string) (models.Owner, error) {
	if s := middleware.CurrentSession(c); s != nil {
		return models.Owner{UserID: s.UserID}, nil
	}

	sid := strings.TrimSpace(bodySessionID)
	if sid == "" {
		sid = strings.TrimSpace(c.QueryParam("sessionId"))
	}
	if sid == "" {
		return models.Owner{}, invalid("sessionId", "is required when not logged in")
	}
	if len(sid) > 128 {
		return models.Owner{}, invalid("sessionId", "must be at most 128")
	}
	return models.Owner{SessionID: sid}, nil
}

func currentUserID(c echo.Context) int64 {
	if s := middleware.CurrentSession(c); s != nil {
		return s.UserID
	}
	return 0
}
