package models

// APIResponse is the standard admin API response envelope.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// CheckoutRequest is the storefront's checkout submission.
type CheckoutRequest struct {
	OrderID     uint   `json:"order_id" validate:"required"`
	PaymentType string `json:"snippe_payment_type,omitempty"`
	PhoneNumber string `json:"snippe_phone_number,omitempty"`
}

// CheckoutResponse mirrors the result of a checkout attempt.
type CheckoutResponse struct {
	Result   string   `json:"result"`
	Redirect string   `json:"redirect,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// PaymentsListRequest is the query for listing remote payments.
type PaymentsListRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// RefundRequest asks for a refund of an order.
type RefundRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
	Reason string `json:"reason"`
}
