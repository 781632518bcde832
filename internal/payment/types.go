package payment

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentType is the processor's payment channel.
type PaymentType string

const (
	TypeMobile    PaymentType = "mobile"
	TypeCard      PaymentType = "card"
	TypeDynamicQR PaymentType = "dynamic-qr"

	// TypeCustomerChoice is a configuration value only: the shopper picks one
	// of the real types at checkout.
	TypeCustomerChoice PaymentType = "customer_choice"
)

// ParsePaymentType maps a configured or submitted value to a PaymentType.
// "dynamic_qr" is accepted as an alias. Unknown values return "".
func ParsePaymentType(s string) PaymentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mobile":
		return TypeMobile
	case "card":
		return TypeCard
	case "dynamic-qr", "dynamic_qr":
		return TypeDynamicQR
	case "customer_choice":
		return TypeCustomerChoice
	}
	return ""
}

// Label is the human name used in order notes.
func (t PaymentType) Label() string {
	switch t {
	case TypeMobile:
		return "mobile money"
	case TypeCard:
		return "card"
	case TypeDynamicQR:
		return "QR code"
	}
	return string(t)
}

// Request is the body of POST /v1/payments.
type Request struct {
	PaymentType PaymentType `json:"payment_type" validate:"required,oneof=mobile card dynamic-qr"`
	Details     Details     `json:"details"`
	PhoneNumber string      `json:"phone_number,omitempty" validate:"omitempty,numeric"`
	Customer    Customer    `json:"customer"`
	WebhookURL  string      `json:"webhook_url" validate:"required,url"`
	Metadata    Metadata    `json:"metadata"`
}

type Details struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Currency    string `json:"currency" validate:"required"`
	RedirectURL string `json:"redirect_url,omitempty" validate:"omitempty,url"`
	CancelURL   string `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

type Customer struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
}

type Metadata struct {
	OrderID     string `json:"order_id"`
	CustomerID  uint   `json:"customer_id"`
	OrderNumber string `json:"order_number"`
}

// Response is the envelope the processor returns for single payments.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    PaymentData `json:"data"`
}

// OK reports whether the processor accepted the request.
func (r *Response) OK() bool {
	return r != nil && r.Status == "success"
}

// PaymentData describes one payment as returned by the processor.
type PaymentData struct {
	Reference         string      `json:"reference"`
	Status            string      `json:"status,omitempty"`
	PaymentURL        string      `json:"payment_url,omitempty"`
	PaymentType       string      `json:"payment_type,omitempty"`
	ExternalReference string      `json:"external_reference,omitempty"`
	FailureReason     string      `json:"failure_reason,omitempty"`
	Amount            *Money      `json:"amount,omitempty"`
	Settlement        *Settlement `json:"settlement,omitempty"`
	Channel           *Channel    `json:"channel,omitempty"`
	CreatedAt         string      `json:"created_at,omitempty"`
}

// Money is a value in a currency. The processor sends the value either as a
// JSON number or a numeric string.
type Money struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// String formats the value without a currency.
func (m *Money) String() string {
	if m == nil {
		return ""
	}
	return m.Value.String()
}

type Settlement struct {
	Gross *Money `json:"gross,omitempty"`
	Fees  *Money `json:"fees,omitempty"`
	Net   *Money `json:"net,omitempty"`
}

type Channel struct {
	Type     string `json:"type,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// PaymentList is the result of ListPayments.
type PaymentList struct {
	Payments []PaymentData `json:"payments"`
	Total    int           `json:"total"`
}

// UnmarshalJSON accepts either {"status":..,"data":[...]} or
// {"status":..,"data":{"payments":[...],"total":n}}.
func (l *PaymentList) UnmarshalJSON(b []byte) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	raw := env.Data
	if len(raw) == 0 {
		raw = b
	}

	var items []PaymentData
	if err := json.Unmarshal(raw, &items); err == nil {
		l.Payments = items
		l.Total = len(items)
		return nil
	}

	var page struct {
		Payments []PaymentData `json:"payments"`
		Items    []PaymentData `json:"items"`
		Total    int           `json:"total"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return err
	}
	l.Payments = page.Payments
	if l.Payments == nil {
		l.Payments = page.Items
	}
	l.Total = page.Total
	if l.Total == 0 {
		l.Total = len(l.Payments)
	}
	return nil
}

// Balance is the result of GetBalance.
type Balance struct {
	Available []Money `json:"available"`
	Pending   []Money `json:"pending,omitempty"`
}

// UnmarshalJSON accepts the balance as a single money object, a list of them,
// or an {"available":..,"pending":..} object, optionally inside "data".
func (bal *Balance) UnmarshalJSON(b []byte) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	raw := env.Data
	if len(raw) == 0 {
		raw = b
	}

	var list []Money
	if err := json.Unmarshal(raw, &list); err == nil {
		bal.Available = list
		return nil
	}

	var split struct {
		Available json.RawMessage `json:"available"`
		Pending   json.RawMessage `json:"pending"`
		Balance   json.RawMessage `json:"balance"`
		Currency  string          `json:"currency"`
	}
	if err := json.Unmarshal(raw, &split); err != nil {
		return err
	}
	if len(split.Available) == 0 && len(split.Balance) > 0 {
		split.Available = split.Balance
	}
	if len(split.Available) == 0 {
		var one Money
		if err := json.Unmarshal(raw, &one); err != nil {
			return err
		}
		bal.Available = []Money{one}
		return nil
	}

	var err error
	if bal.Available, err = moneyList(split.Available, split.Currency); err != nil {
		return err
	}
	if len(split.Pending) > 0 {
		if bal.Pending, err = moneyList(split.Pending, split.Currency); err != nil {
			return err
		}
	}
	return nil
}

func moneyList(raw json.RawMessage, currency string) ([]Money, error) {
	var list []Money
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one Money
	if err := json.Unmarshal(raw, &one); err == nil && (one.Currency != "" || !one.Value.IsZero()) {
		return []Money{one}, nil
	}
	var v decimal.Decimal
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return []Money{{Value: v, Currency: currency}}, nil
}
