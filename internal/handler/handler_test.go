package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/payment"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	return e
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", invalid("amount", "must be greater than 0"), http.StatusBadRequest},
		{"echo http error", echo.NewHTTPError(http.StatusUnauthorized, "authentication required"), http.StatusUnauthorized},
		{"not found", database.ErrBookingNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("create booking: %w", database.ErrCatalogNotFound), http.StatusNotFound},
		{"duplicate user", database.ErrDuplicateUser, http.StatusConflict},
		{"review exists", database.ErrReviewExists, http.StatusConflict},
		{"empty cart", database.ErrEmptyCart, http.StatusBadRequest},
		{"overpayment", database.ErrOverPayment, http.StatusBadRequest},
		{"invalid state", fmt.Errorf("booking 1 is completed: %w", database.ErrInvalidState), http.StatusConflict},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"signature", fmt.Errorf("%w: bad", payment.ErrInvalidSignature), http.StatusBadRequest},
		{"gateway", payment.ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{"password too long", auth.ErrPasswordTooLong, http.StatusBadRequest},
		{"check violation", fmt.Errorf("create payment: %w", &pq.Error{Code: "23514"}), http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}

	_, body := classify(errors.New("pq: password authentication failed"))
	if m, _ := body.(echo.Map); m["message"] != "internal server error" {
		t.Errorf("Expected internal errors to be masked, got %v", body)
	}
}

func TestBindValidation(t *testing.T) {
	e := newTestEcho()
	e.POST("/orders", func(c echo.Context) error {
		var req createOrderReq
		if err := bind(c, &req); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"customerName":"A","customerEmail":"a@example.com"}`, http.StatusNoContent, ""},
		{"missing name", `{"customerEmail":"a@example.com"}`, http.StatusBadRequest, "customerName"},
		{"bad email", `{"customerName":"A","customerEmail":"nope"}`, http.StatusBadRequest, "customerEmail"},
		{"malformed", `{"customerName":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.field == "" {
				return
			}
			var verr ValidationError
			if err := json.Unmarshal(rec.Body.Bytes(), &verr); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(verr.Errors) == 0 || verr.Errors[0].Field != tt.field {
				t.Errorf("Expected error on %s, got %+v", tt.field, verr)
			}
		})
	}
}

func TestResolveOwner(t *testing.T) {
	e := newTestEcho()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/cart?sessionId=q-123", nil), httptest.NewRecorder())
	owner, err := resolveOwner(c, "")
	if err != nil || owner.SessionID != "q-123" {
		t.Errorf("Expected query session q-123, got %+v, %v", owner, err)
	}

	owner, err = resolveOwner(c, "body-1")
	if err != nil || owner.SessionID != "body-1" {
		t.Errorf("Expected body session to win over query, got %+v, %v", owner, err)
	}

	c.Set("session", &auth.Session{UserID: 4})
	owner, err = resolveOwner(c, "body-1")
	if err != nil || owner.UserID != 4 || owner.SessionID != "" {
		t.Errorf("Expected logged-in user to win, got %+v, %v", owner, err)
	}

	anon := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/cart", nil), httptest.NewRecorder())
	if _, err := resolveOwner(anon, ""); err == nil {
		t.Error("Expected error without session or sessionId")
	}
	if _, err := resolveOwner(anon, strings.Repeat("x", 129)); err == nil {
		t.Error("Expected error for overlong sessionId")
	}
}

func TestBookingTarget(t *testing.T) {
	id := int64(5)

	req := createBookingReq{PackageID: &id}
	typ, got, err := req.target()
	if err != nil || typ != models.ItemPackage || got != 5 {
		t.Errorf("Expected package 5, got %s %d %v", typ, got, err)
	}

	if _, _, err := (&createBookingReq{}).target(); err == nil {
		t.Error("Expected error with no target")
	}
	if _, _, err := (&createBookingReq{TourID: &id, HotelID: &id}).target(); err == nil {
		t.Error("Expected error with two targets")
	}
}

func TestCheckStay(t *testing.T) {
	in := models.NewDate(2030, 6, 5)
	out := models.NewDate(2030, 6, 1)
	if err := checkStay(&in, &out); err == nil {
		t.Error("Expected error when check-out precedes check-in")
	}
	if err := checkStay(&out, &in); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := checkStay(&in, nil); err != nil {
		t.Errorf("Unexpected error with open stay: %v", err)
	}
}

func TestPaymentAmountRejectedBeforeService(t *testing.T) {
	e := newTestEcho()
	h := NewPaymentHandler(nil, zap.NewNop())
	e.POST("/api/bookings/:id/payments", h.Apply)
	e.POST("/api/create-payment-intent", h.CreateIntent)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"negative", "/api/bookings/1/payments", `{"amount":"-5","paymentMethod":"card"}`},
		{"sub-cent", "/api/bookings/1/payments", `{"amount":0.004,"paymentMethod":"card"}`},
		{"three decimals", "/api/bookings/1/payments", `{"amount":"10.125","paymentMethod":"card"}`},
		{"intent sub-cent", "/api/create-payment-intent", `{"amount":0.004}`},
		{"intent zero", "/api/create-payment-intent", `{"amount":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var verr ValidationError
			if err := json.Unmarshal(rec.Body.Bytes(), &verr); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(verr.Errors) == 0 || verr.Errors[0].Field != "amount" {
				t.Errorf("Expected error on amount, got %+v", verr)
			}
		})
	}
}

func TestRegisterRejectsLongPassword(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(nil, nil, config.SessionConfig{BcryptCost: bcrypt.MinCost}, zap.NewNop())
	e.POST("/api/register", h.Register)

	tests := []struct {
		name     string
		password string
	}{
		{"ascii", strings.Repeat("a", 100)},
		{"multi-byte under rune limit", strings.Repeat("é", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{
				"username": "traveller",
				"email":    "t@example.com",
				"password": tt.password,
			})
			req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(string(body)))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var verr ValidationError
			if err := json.Unmarshal(rec.Body.Bytes(), &verr); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(verr.Errors) == 0 || verr.Errors[0].Field != "password" {
				t.Errorf("Expected error on password, got %+v", verr)
			}
		})
	}
}

func TestCheckPasswordUnknownUser(t *testing.T) {
	h := NewAuthHandler(nil, nil, config.SessionConfig{BcryptCost: bcrypt.MinCost}, zap.NewNop())

	cost, err := bcrypt.Cost([]byte(h.dummyHash))
	if err != nil {
		t.Fatalf("Expected a bcrypt dummy hash: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("Expected dummy hash cost %d, got %d", bcrypt.MinCost, cost)
	}

	if h.checkPassword(nil, "anything") {
		t.Error("Expected unknown user to fail")
	}

	hash, err := auth.HashPassword("right-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash password: %v", err)
	}
	user := &models.User{PasswordHash: hash}
	if !h.checkPassword(user, "right-pass") {
		t.Error("Expected correct password to pass")
	}
	if h.checkPassword(user, "wrong-pass") {
		t.Error("Expected wrong password to fail")
	}
}

func TestReviewsPath(t *testing.T) {
	id := int64(7)
	tests := []struct {
		review models.Review
		want   string
	}{
		{models.Review{TourID: &id}, "/api/tours/7/reviews"},
		{models.Review{PackageID: &id}, "/api/packages/7/reviews"},
		{models.Review{HotelID: &id}, "/api/hotels/7/reviews"},
		{models.Review{}, ""},
	}
	for _, tt := range tests {
		if got := reviewsPath(&tt.review); got != tt.want {
			t.Errorf("reviewsPath(%+v) = %q, want %q", tt.review, got, tt.want)
		}
	}
}

func TestMapsConfig(t *testing.T) {
	e := newTestEcho()
	h := NewHealthHandler(nil, "maps-key", zap.NewNop())
	e.GET("/api/config/maps", h.MapsConfig)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/maps", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body["googleMapsApiKey"] != "maps-key" {
		t.Errorf("Expected maps-key, got %v", body)
	}
}
