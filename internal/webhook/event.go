package webhook

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"snippepay/internal/payment"
)

var errInvalidJSON = errors.New("payload is not valid JSON")

// Event is a payment event as applied to orders. Webhook deliveries and the
// status sync both produce it.
type Event struct {
	Type string              `json:"type"`
	Data payment.PaymentData `json:"data"`
}

// fields is a JSON object with its values left undecoded.
type fields map[string]json.RawMessage

// ParseEvent reads a delivery. Only malformed JSON is an error; fields the
// processor sends in an unexpected shape are dropped, and a body that is not
// an object yields an empty event.
func ParseEvent(raw []byte) (Event, error) {
	if !json.Valid(raw) {
		return Event{}, errInvalidJSON
	}

	top := object(raw)
	data := object(top["data"])

	return Event{
		Type: text(top["type"]),
		Data: payment.PaymentData{
			Reference:         text(data["reference"]),
			ExternalReference: text(data["external_reference"]),
			FailureReason:     text(data["failure_reason"]),
			Settlement:        settlement(data["settlement"]),
			Channel:           channel(data["channel"]),
		},
	}, nil
}

func object(raw json.RawMessage) fields {
	var f fields
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return nil
	}
	return f
}

// text returns a string or number value as text, anything else as "".
func text(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func settlement(raw json.RawMessage) *payment.Settlement {
	f := object(raw)
	if f == nil {
		return nil
	}
	currency := text(f["currency"])
	s := &payment.Settlement{
		Gross: money(f["gross"], currency),
		Fees:  money(f["fees"], currency),
		Net:   money(f["net"], currency),
	}
	if s.Gross == nil && s.Fees == nil && s.Net == nil {
		return nil
	}
	return s
}

// money accepts {value, currency} or a bare amount in currency.
func money(raw json.RawMessage, currency string) *payment.Money {
	value := raw
	if f := object(raw); f != nil {
		value = f["value"]
		if c := text(f["currency"]); c != "" {
			currency = c
		}
	}
	s := text(value)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &payment.Money{Value: d, Currency: currency}
}

func channel(raw json.RawMessage) *payment.Channel {
	f := object(raw)
	if f == nil {
		return nil
	}
	c := &payment.Channel{Type: text(f["type"]), Provider: text(f["provider"])}
	if c.Type == "" && c.Provider == "" {
		return nil
	}
	return c
}
