package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"snippepay/internal/models"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
)

// SnippeAPI is the read side of the Snippe client.
type SnippeAPI interface {
	GetPaymentStatus(ctx context.Context, reference string) (*payment.Response, error)
	ListPayments(ctx context.Context, limit, offset int) (*payment.PaymentList, error)
	GetBalance(ctx context.Context) (*payment.Balance, error)
}

// PaymentHandler handles all payment admin actions.
type PaymentHandler struct {
	api    SnippeAPI
	orders repository.OrderRepository
	method payment.PaymentMethod
	logger *zap.Logger
}

func NewPaymentHandler(api SnippeAPI, orders repository.OrderRepository, method payment.PaymentMethod, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{api: api, orders: orders, method: method, logger: logger}
}

// Handle routes payment API requests.
// POST /api/payments
func (h *PaymentHandler) Handle(c echo.Context) error {
	action, body, err := parseBodyAction(c)
	if err != nil {
		return errorResponse(c, "Invalid request body")
	}

	switch action {
	case "payments":
		return h.listPayments(c, body)
	case "payment":
		return h.getPayment(c, body)
	case "balance":
		return h.balance(c)
	case "order":
		return h.orderPayment(c, body)
	case "refund":
		return h.refund(c, body)
	default:
		return errorResponse(c, "Unknown action: "+action)
	}
}

func (h *PaymentHandler) listPayments(c echo.Context, body map[string]interface{}) error {
	req := models.PaymentsListRequest{
		Limit:  getIntField(body, "limit", 20),
		Offset: getIntField(body, "offset", 0),
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, "limit must be between 1 and 100")
	}

	list, err := h.api.ListPayments(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Warn("Failed to list payments", zap.Error(err))
		return errorResponse(c, apiErrorMessage(err))
	}

	return successResponse(c, "Successful", map[string]interface{}{
		"payments": list.Payments,
		"pagination": map[string]interface{}{
			"total":  list.Total,
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

func (h *PaymentHandler) getPayment(c echo.Context, body map[string]interface{}) error {
	ref := getStringField(body, "reference")
	if ref == "" {
		return errorResponse(c, "reference is required")
	}

	resp, err := h.api.GetPaymentStatus(c.Request().Context(), ref)
	if err != nil {
		h.logger.Warn("Failed to get payment", zap.String("reference", ref), zap.Error(err))
		return errorResponse(c, apiErrorMessage(err))
	}
	return successResponse(c, "Successful", resp.Data)
}

func (h *PaymentHandler) balance(c echo.Context) error {
	bal, err := h.api.GetBalance(c.Request().Context())
	if err != nil {
		h.logger.Warn("Failed to get balance", zap.Error(err))
		return errorResponse(c, apiErrorMessage(err))
	}
	return successResponse(c, "Successful", bal)
}

func (h *PaymentHandler) loadOrder(c echo.Context, body map[string]interface{}) (*models.Order, error) {
	id := getIntField(body, "order_id", 0)
	if id <= 0 {
		return nil, errors.New("order_id is required")
	}
	order, err := h.orders.Get(c.Request().Context(), uint(id))
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, repository.ErrOrderNotFound
	}
	if err != nil {
		h.logger.Error("Failed to load order", zap.Int("order_id", id), zap.Error(err))
		return nil, errors.New("failed to load order")
	}
	return order, nil
}

func (h *PaymentHandler) orderPayment(c echo.Context, body map[string]interface{}) error {
	order, err := h.loadOrder(c, body)
	if err != nil {
		return errorResponse(c, err.Error())
	}

	return successResponse(c, "Successful", map[string]interface{}{
		"order_id":           order.ID,
		"status":             order.Status,
		"payment_method":     order.PaymentMethod,
		"payment_reference":  order.Reference(),
		"payment_type":       order.GetMeta(models.MetaPaymentType),
		"payment_url":        order.GetMeta(models.MetaPaymentURL),
		"external_reference": order.GetMeta(models.MetaExternalReference),
		"transaction_id":     order.TransactionID,
		"date_paid":          order.DatePaid,
		"settlement": map[string]string{
			"gross": order.GetMeta(models.MetaSettlementGross),
			"fees":  order.GetMeta(models.MetaSettlementFees),
			"net":   order.GetMeta(models.MetaSettlementNet),
		},
		"channel": map[string]string{
			"type":     order.GetMeta(models.MetaChannelType),
			"provider": order.GetMeta(models.MetaChannelProvider),
		},
	})
}

func (h *PaymentHandler) refund(c echo.Context, body map[string]interface{}) error {
	req := models.RefundRequest{
		Amount: getStringField(body, "amount"),
		Reason: getStringField(body, "reason"),
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, "amount is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return errorResponse(c, "amount must be a positive number")
	}

	order, err := h.loadOrder(c, body)
	if err != nil {
		return errorResponse(c, err.Error())
	}

	err = h.method.Refund(c.Request().Context(), order.ID, amount, req.Reason)
	if errors.Is(err, payment.ErrManualRefund) {
		return successResponse(c, err.Error(), map[string]interface{}{
			"order_id": order.ID,
			"amount":   amount.StringFixed(2),
			"manual":   true,
		})
	}
	if err != nil {
		h.logger.Error("Refund request failed", zap.Uint("order_id", order.ID), zap.Error(err))
		return errorResponse(c, "Failed to record refund request")
	}
	return successResponse(c, "Refund recorded", nil)
}
