package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/models"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	if err != nil {
		t.Fatalf("Encode payload: %v", err)
	}

	status, gotHdr, body, ok := decodePayload(bs)
	if !ok {
		t.Fatal("Expected payload to decode")
	}
	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if gotHdr.Get(echo.HeaderContentType) != echo.MIMEApplicationJSON {
		t.Errorf("Unexpected content type %q", gotHdr.Get(echo.HeaderContentType))
	}
	if string(body) != `{"items":[]}` {
		t.Errorf("Unexpected body %q", body)
	}

	if _, _, _, ok := decodePayload(bs[:6]); ok {
		t.Error("Expected short payload to be rejected")
	}
	if _, _, _, ok := decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x')); ok {
		t.Error("Expected payload with oversized header length to be rejected")
	}
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tours?page=1", nil), httptest.NewRecorder())
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tours?page=2", nil), httptest.NewRecorder())

	if cacheKey("cache", a) == cacheKey("cache", b) {
		t.Error("Expected different query strings to give different keys")
	}
}

func TestCacheKeySharesPathPrefix(t *testing.T) {
	e := echo.New()
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tours/7/reviews", nil), httptest.NewRecorder())
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tours/7/reviews?page=2", nil), httptest.NewRecorder())
	other := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tours/70/reviews", nil), httptest.NewRecorder())

	prefix := "cache:/api/tours/7/reviews:"
	for _, c := range []echo.Context{a, b} {
		if key := cacheKey("cache", c); !strings.HasPrefix(key, prefix) {
			t.Errorf("Expected key %q to start with %q", key, prefix)
		}
	}
	if key := cacheKey("cache", other); strings.HasPrefix(key, prefix) {
		t.Errorf("Expected key %q of another path not to match %q", key, prefix)
	}
}

func TestCacheInvalidatorWithoutRedis(t *testing.T) {
	ctx := context.Background()

	NewCacheInvalidator(config.CacheConfig{Enabled: true, Prefix: "cache"}, nil, zap.NewNop()).
		Invalidate(ctx, "/api/tours/1/reviews")

	var nilInvalidator *CacheInvalidator
	nilInvalidator.Invalidate(ctx, "/api/tours/1/reviews")
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/login")

	if got, want := RateKey("rl", c), "rl:ip:203.0.113.9:user:anon:route:POST /api/login"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	c.Set(sessionKey, &auth.Session{UserID: 12})
	if got, want := RateKey("rl", c), "rl:ip:203.0.113.9:user:12:route:POST /api/login"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	called := 0
	next := func(c echo.Context) error {
		called++
		return c.NoContent(http.StatusNoContent)
	}

	rl := RateLimit(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop())(next)
	cache := ResponseCache(config.CacheConfig{Enabled: true}, nil, zap.NewNop())(next)

	for _, h := range []echo.HandlerFunc{rl, cache} {
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
			t.Fatalf("Handler: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", rec.Code)
		}
	}
	if called != 2 {
		t.Errorf("Expected next to run twice, ran %d times", called)
	}
}

func TestSessionMiddleware(t *testing.T) {
	mgr := auth.NewManager("test-secret", time.Hour, nil)
	tok, err := mgr.Issue(&models.User{ID: 3, Role: models.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	e.Use(LoadSession(mgr, "sj.sid"))
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RequireAuth())
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RequireRole(models.RoleAdmin))

	tests := []struct {
		name   string
		path   string
		setup  func(*http.Request)
		status int
	}{
		{"anonymous", "/me", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", "/me", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Value) }, http.StatusOK},
		{"cookie", "/me", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sj.sid", Value: tok.Value}) }, http.StatusOK},
		{"bad token", "/me", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer nope") }, http.StatusUnauthorized},
		{"not admin", "/admin", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Value) }, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var seen string
	h := RequestID()(func(c echo.Context) error {
		seen = GetRequestID(c)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if seen != "abc-123" || rec.Header().Get(echo.HeaderXRequestID) != "abc-123" {
		t.Errorf("Expected incoming request id to be reused, got %q", seen)
	}

	rec = httptest.NewRecorder()
	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if seen == "" || seen == "abc-123" {
		t.Errorf("Expected a fresh request id, got %q", seen)
	}
}
