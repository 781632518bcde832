package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Checkout outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Input is what the shopper submitted with the checkout form.
type Input struct {
	PaymentType string
	PhoneNumber string
}

// Notice is a message for the shopper.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Result tells the storefront where to send the shopper next.
type Result struct {
	Result   string   `json:"result"`
	Redirect string   `json:"redirect,omitempty"`
	Notices  []Notice `json:"messages,omitempty"`
}

func failure(msg string) *Result {
	return &Result{Result: ResultFailure, Notices: []Notice{{Level: "error", Message: msg}}}
}

// PaymentMethod is a checkout payment option.
type PaymentMethod interface {
	// ID is the payment_method value stored on orders.
	ID() string
	// Available reports whether the method can be offered at checkout.
	Available() bool
	// Validate checks the submitted fields before any order work happens.
	Validate(in Input) error
	// Process starts the payment for an order. Shopper facing problems come
	// back as a failure Result; the error is for infrastructure faults.
	Process(ctx context.Context, orderID uint, in Input) (*Result, error)
	// Refund records a refund request against a paid order.
	Refund(ctx context.Context, orderID uint, amount decimal.Decimal, reason string) error
}
