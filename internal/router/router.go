package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"snippepay/internal/handler"
	"snippepay/internal/handler/api"
	"snippepay/internal/middleware"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
)

// Deps are the services the routes are built from.
type Deps struct {
	Orders    repository.OrderRepository
	Method    payment.PaymentMethod
	Snippe    api.SnippeAPI
	Processor handler.WebhookProcessor
	Deduper   middleware.EventDeduper
	URLs      payment.BuildOptions
	APIKey    string
	Logger    *zap.Logger
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())
	e.Validator = middleware.NewValidator()

	// Handlers
	paymentCallbackHandler := handler.NewPaymentCallbackHandler(d.Processor, d.Orders, d.URLs, logger)
	checkoutHandler := handler.NewCheckoutHandler(d.Method, logger)
	paymentHandler := api.NewPaymentHandler(d.Snippe, d.Orders, d.Method, logger)

	// API group with auth + logging middleware
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(d.APIKey))
	apiGroup.Use(middleware.APILogger(logger))

	apiGroup.POST("/checkout", checkoutHandler.Checkout)
	apiGroup.POST("/payments", paymentHandler.Handle)
	apiGroup.GET("/payments", paymentHandler.Handle)

	// Snippe webhook, with and without the trailing slash the store
	// advertises in webhook_url.
	bodyLimit := echomw.BodyLimit("1M")
	dedup := middleware.WebhookDedup(d.Deduper, logger)
	e.POST("/wc-api/snippe_webhook", paymentCallbackHandler.Webhook, bodyLimit, dedup)
	e.POST("/wc-api/snippe_webhook/", paymentCallbackHandler.Webhook, bodyLimit, dedup)

	// Shopper return from the hosted payment page
	paymentGroup := e.Group("/payment")
	paymentGroup.GET("/snippe/callback", paymentCallbackHandler.Return)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
