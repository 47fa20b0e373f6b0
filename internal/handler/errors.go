package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/payment"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a 400 carrying per-field messages.
type ValidationError struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{
		Message: "validation failed",
		Errors:  []FieldError{{Field: field, Message: message}},
	}
}

// Validator adapts go-playground/validator to echo, reporting JSON field names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Message: "validation failed"}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// bind decodes the request into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return &ValidationError{Message: "invalid request body"}
		}
		return err
	}
	return c.Validate(req)
}

// ErrorHandler is installed as echo's HTTPErrorHandler. Domain errors keep
// their message; anything unmapped becomes a logged 500.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("Failed to write error response", zap.Error(err))
		}
	}
}

func classify(err error) (int, any) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, echo.Map{"message": msg}
	}

	msg := func(e error) echo.Map { return echo.Map{"message": e.Error()} }

	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, msg(err)
	case errors.Is(err, database.ErrConflict):
		return http.StatusConflict, msg(err)
	case errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrOverPayment),
		errors.Is(err, database.ErrInvalidAmount):
		return http.StatusBadRequest, msg(err)
	case errors.Is(err, database.ErrInvalidState):
		return http.StatusConflict, msg(err)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, invalid("password", "must be at most 72 bytes")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msg(err)
	case errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest, echo.Map{"message": payment.ErrInvalidSignature.Error()}
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, msg(err)
	case database.IsCheckViolation(err):
		return http.StatusBadRequest, echo.Map{"message": "request violates a data constraint"}
	}

	return http.StatusInternalServerError, echo.Map{"message": "internal server error"}
}
