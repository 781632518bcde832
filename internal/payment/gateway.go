package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"snippepay/internal/metrics"
	"snippepay/internal/models"
	"snippepay/internal/repository"
)

// MethodID is the payment_method value of orders paid through Snippe.
const MethodID = "snippe"

// Checkout notices.
const (
	msgSelectMethod = "Please select a payment method."
	msgPhoneMissing = "Phone number is required for mobile money payments."
	msgPhoneInvalid = "Please enter a valid phone number."
	msgPaymentError = "Payment error: "
	msgPaymentFail  = "Payment failed. Please try again."
)

// API is the part of Client the gateway needs.
type API interface {
	HasKey() bool
	CreatePayment(ctx context.Context, req *Request) (*Response, error)
}

// GatewayConfig holds the merchant settings.
type GatewayConfig struct {
	// PaymentType is a concrete type or TypeCustomerChoice.
	PaymentType PaymentType
	Options     BuildOptions
}

// Gateway is the Snippe checkout payment method.
type Gateway struct {
	api      API
	orders   repository.OrderRepository
	stock    repository.Inventory
	cart     repository.Cart
	cfg      GatewayConfig
	validate *validator.Validate
	log      *zap.Logger
}

var _ PaymentMethod = (*Gateway)(nil)

func NewGateway(api API, orders repository.OrderRepository, stock repository.Inventory, cart repository.Cart, cfg GatewayConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PaymentType == "" {
		cfg.PaymentType = TypeMobile
	}
	return &Gateway{
		api:      api,
		orders:   orders,
		stock:    stock,
		cart:     cart,
		cfg:      cfg,
		validate: validator.New(),
		log:      log,
	}
}

func (g *Gateway) ID() string {
	return MethodID
}

// Available is false until an API key is configured.
func (g *Gateway) Available() bool {
	return g.api != nil && g.api.HasKey()
}

// Options returns the store settings used to build requests.
func (g *Gateway) Options() BuildOptions {
	return g.cfg.Options
}

// Validate checks the payment type and, for mobile money, the phone number.
func (g *Gateway) Validate(in Input) error {
	pt := g.cfg.PaymentType
	if pt == TypeCustomerChoice {
		pt = ParsePaymentType(in.PaymentType)
		if pt == "" || pt == TypeCustomerChoice {
			return &ValidationError{Field: "snippe_payment_type", Message: msgSelectMethod}
		}
	}

	if pt == TypeMobile {
		if in.PhoneNumber == "" {
			return &ValidationError{Field: "snippe_phone_number", Message: msgPhoneMissing}
		}
		if n := len(DigitsOnly(in.PhoneNumber)); n < 9 || n > 15 {
			return &ValidationError{Field: "snippe_phone_number", Message: msgPhoneInvalid}
		}
	}
	return nil
}

// effectiveType resolves the configured type against the shopper's choice.
func (g *Gateway) effectiveType(in Input) PaymentType {
	if g.cfg.PaymentType != TypeCustomerChoice {
		return g.cfg.PaymentType
	}
	if pt := ParsePaymentType(in.PaymentType); pt != "" && pt != TypeCustomerChoice {
		return pt
	}
	return TypeCard
}

func (g *Gateway) Process(ctx context.Context, orderID uint, in Input) (*Result, error) {
	if !g.Available() {
		return failure(msgPaymentError + ErrUnavailable.Error()), nil
	}

	var verr *ValidationError
	if err := g.Validate(in); errors.As(err, &verr) {
		return failure(verr.Message), nil
	}

	pt := g.effectiveType(in)
	log := g.log.With(zap.Uint("order_id", orderID), zap.String("payment_type", string(pt)))

	order, err := g.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if existing := order.Reference(); existing != "" {
		log.Warn("Checkout refused, order already has a payment reference",
			zap.String("existing_reference", existing),
			zap.String("status", order.Status),
		)
		metrics.Checkouts.WithLabelValues(string(pt), ResultFailure).Inc()
		return failure(msgPaymentError + models.ErrReferenceAlreadySet.Error()), nil
	}

	phone := in.PhoneNumber
	if phone == "" {
		phone = order.BillingPhone
	}
	if phone != "" {
		phone = NormalizePhone(phone, g.cfg.Options.CountryCode)
	}

	req := BuildPaymentRequest(order, pt, phone, g.cfg.Options)
	if err := g.validate.Struct(req); err != nil {
		log.Warn("Payment request rejected before sending", zap.Error(err))
		metrics.Checkouts.WithLabelValues(string(pt), ResultFailure).Inc()
		return failure(msgPaymentError + "invalid payment details"), nil
	}

	resp, err := g.api.CreatePayment(ctx, req)
	if err != nil {
		log.Warn("Payment creation failed", zap.Error(err))
		metrics.Checkouts.WithLabelValues(string(pt), ResultFailure).Inc()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return failure(msgPaymentError + apiErr.Message), nil
		}
		return failure(msgPaymentError + err.Error()), nil
	}
	if !resp.OK() || resp.Data.Reference == "" {
		log.Warn("Payment not accepted", zap.String("status", resp.Status))
		metrics.Checkouts.WithLabelValues(string(pt), ResultFailure).Inc()
		return failure(msgPaymentFail), nil
	}

	ref := resp.Data.Reference
	if err := order.AttachPaymentReference(ref); err != nil {
		log.Error("Order already carries another payment reference",
			zap.String("reference", ref),
			zap.String("existing_reference", order.Reference()),
		)
		metrics.Checkouts.WithLabelValues(string(pt), ResultFailure).Inc()
		return failure(msgPaymentError + err.Error()), nil
	}

	order.PaymentMethod = MethodID
	order.UpdateMeta(models.MetaPaymentType, string(pt))
	order.UpdateStatus(models.StatusSnippePending, "Awaiting Snippe payment confirmation.")

	redirect := g.cfg.Options.OrderReceivedURL(order)
	switch pt {
	case TypeMobile:
		order.AddNote("Snippe mobile money payment initiated. Reference: " + ref)
	case TypeCard, TypeDynamicQR:
		if url := resp.Data.PaymentURL; url != "" {
			order.UpdateMeta(models.MetaPaymentURL, url)
			order.AddNote(fmt.Sprintf("Snippe %s payment initiated. Reference: %s", pt.Label(), ref))
			redirect = url
		}
	}

	if err := g.orders.Save(ctx, order); err != nil {
		log.Error("Failed to save order after payment creation", zap.String("reference", ref), zap.Error(err))
		return nil, fmt.Errorf("save order %d: %w", orderID, err)
	}

	if err := g.stock.ReduceStock(ctx, order); err != nil {
		log.Error("Failed to reduce stock", zap.Error(err))
	}
	if err := g.cart.Empty(ctx, order.CustomerID); err != nil {
		log.Error("Failed to empty cart", zap.Error(err))
	}

	log.Info("Payment initiated", zap.String("reference", ref))
	metrics.Checkouts.WithLabelValues(string(pt), ResultSuccess).Inc()
	return &Result{Result: ResultSuccess, Redirect: redirect}, nil
}

// Refund notes the request on the order. The processor has no refund API, so
// it always ends in ErrManualRefund unless the order cannot be updated.
func (g *Gateway) Refund(ctx context.Context, orderID uint, amount decimal.Decimal, reason string) error {
	order, err := g.orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}

	currency := order.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	order.AddNote(fmt.Sprintf("Refund of %s %s requested. Please process manually via Snippe dashboard. Reason: %s",
		amount.StringFixed(2), currency, reason))

	if err := g.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %d: %w", orderID, err)
	}
	g.log.Info("Manual refund requested",
		zap.Uint("order_id", orderID),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)
	return ErrManualRefund
}
