package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"snippepay/internal/middleware"
	"snippepay/internal/models"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
	"snippepay/internal/webhook"
)

// WebhookProcessor handles raw webhook deliveries.
type WebhookProcessor interface {
	Handle(ctx context.Context, raw []byte, header http.Header) webhook.Response
}

// PaymentCallbackHandler handles the processor's webhook and the shopper's
// return from the hosted payment page.
type PaymentCallbackHandler struct {
	processor WebhookProcessor
	orders    repository.OrderRepository
	urls      payment.BuildOptions
	logger    *zap.Logger
}

func NewPaymentCallbackHandler(
	processor WebhookProcessor,
	orders repository.OrderRepository,
	urls payment.BuildOptions,
	logger *zap.Logger,
) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{
		processor: processor,
		orders:    orders,
		urls:      urls,
		logger:    logger,
	}
}

// Webhook receives signed payment events.
// POST /wc-api/snippe_webhook
func (h *PaymentCallbackHandler) Webhook(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, middleware.MaxWebhookBody))
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		return c.String(http.StatusBadRequest, "Invalid request body")
	}

	resp := h.processor.Handle(c.Request().Context(), raw, c.Request().Header)
	return c.String(resp.Status, resp.Body)
}

// Return sends the shopper to the thank-you page after a card or QR payment.
// GET /payment/snippe/callback?order_id=N
func (h *PaymentCallbackHandler) Return(c echo.Context) error {
	id, err := strconv.ParseUint(c.QueryParam("order_id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(http.StatusFound, h.urls.CheckoutURL())
	}

	order, err := h.orders.Get(c.Request().Context(), uint(id))
	if err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			h.logger.Error("Failed to load order for return callback", zap.Uint64("order_id", id), zap.Error(err))
		}
		return c.Redirect(http.StatusFound, h.urls.CheckoutURL())
	}
	if order.PaymentMethod != payment.MethodID {
		return c.Redirect(http.StatusFound, h.urls.CheckoutURL())
	}
	return c.Redirect(http.StatusFound, h.urls.OrderReceivedURL(order))
}

// CheckoutHandler starts payments for orders placed on the storefront.
type CheckoutHandler struct {
	method payment.PaymentMethod
	logger *zap.Logger
}

func NewCheckoutHandler(method payment.PaymentMethod, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{method: method, logger: logger}
}

// Checkout runs the payment method for an order.
// POST /api/checkout
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.APIResponse{Status: false, Msg: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.APIResponse{Status: false, Msg: "order_id is required"})
	}

	res, err := h.method.Process(c.Request().Context(), req.OrderID, payment.Input{
		PaymentType: req.PaymentType,
		PhoneNumber: req.PhoneNumber,
	})
	if errors.Is(err, repository.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, models.APIResponse{Status: false, Msg: "Order not found"})
	}
	if err != nil {
		h.logger.Error("Checkout failed", zap.Uint("order_id", req.OrderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, models.CheckoutResponse{
			Result:   payment.ResultFailure,
			Messages: []string{"Payment failed. Please try again."},
		})
	}

	out := models.CheckoutResponse{Result: res.Result, Redirect: res.Redirect}
	for _, n := range res.Notices {
		out.Messages = append(out.Messages, n.Message)
	}
	return c.JSON(http.StatusOK, out)
}
