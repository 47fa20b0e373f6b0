package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/handler"
	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/models"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Health   *handler.HealthHandler
}

// Deps carries the shared state route middleware needs. Redis may be nil.
type Deps struct {
	Config   *config.Config
	Sessions *auth.Manager
	Redis    *redis.Client
	Logger   *zap.Logger
}

func New(d Deps, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(middleware.LoadSession(d.Sessions, d.Config.Session.CookieName))

	Register(e, d, h)
	return e
}

func Register(e *echo.Echo, d Deps, h Handlers) {
	limited := middleware.RateLimit(d.Config.RateLimit, d.Redis, d.Logger)
	cached := middleware.ResponseCache(d.Config.Cache, d.Redis, d.Logger)
	authed := middleware.RequireAuth()
	admin := middleware.RequireRole(models.RoleAdmin)

	e.GET("/healthz", h.Health.Health)

	api := e.Group("/api")
	api.GET("/config/maps", h.Health.MapsConfig)

	api.POST("/register", h.Auth.Register, limited)
	api.POST("/login", h.Auth.Login, limited)
	api.POST("/logout", h.Auth.Logout)
	api.GET("/user", h.Auth.Me)

	api.GET("/tours", h.Catalog.ListTours(), cached)
	api.GET("/tours/:id", h.Catalog.GetTour, cached)
	api.GET("/tours/:id/reviews", h.Bookings.Reviews(models.ItemTour), cached)
	api.GET("/packages", h.Catalog.ListPackages(), cached)
	api.GET("/packages/:id", h.Catalog.GetPackage, cached)
	api.GET("/packages/:id/reviews", h.Bookings.Reviews(models.ItemPackage), cached)
	api.GET("/hotels", h.Catalog.ListHotels(), cached)
	api.GET("/hotels/:id", h.Catalog.GetHotel, cached)
	api.GET("/hotels/:id/rooms", h.Catalog.ListRooms, cached)
	api.GET("/hotels/:id/reviews", h.Bookings.Reviews(models.ItemHotel), cached)
	api.GET("/visas", h.Catalog.ListVisas(), cached)

	api.GET("/cart", h.Cart.List)
	api.POST("/cart", h.Cart.Add)
	api.DELETE("/cart/clear", h.Cart.Clear)
	api.PATCH("/cart/:id", h.Cart.Update)
	api.DELETE("/cart/:id", h.Cart.Remove)

	api.POST("/orders", h.Orders.Create)
	api.GET("/orders", h.Orders.List, authed)
	api.GET("/orders/:orderNumber", h.Orders.Get)

	api.POST("/create-payment-intent", h.Payments.CreateIntent, limited)
	api.POST("/webhooks/stripe", h.Payments.StripeWebhook)

	bookings := api.Group("/bookings", authed)
	bookings.POST("", h.Bookings.Create)
	bookings.GET("", h.Bookings.List)
	bookings.GET("/:id", h.Bookings.Get)
	bookings.PATCH("/:id/status", h.Bookings.UpdateStatus, admin)
	bookings.POST("/:id/payments", h.Payments.Apply)
	bookings.GET("/:id/payments", h.Payments.List)
	bookings.POST("/:id/reviews", h.Bookings.AddReview)

	api.GET("/admin/bookings", h.Bookings.ListAll, admin)
	api.POST("/payments/verify", h.Payments.Verify, admin)
}
