package payment

import (
	"strconv"
	"strings"

	"snippepay/internal/models"
)

const (
	// DefaultCountryCode is prepended to local phone numbers.
	DefaultCountryCode = "255"
	DefaultCurrency    = "TZS"
)

// Country codes accepted as already international.
var knownCountryCodes = []string{"255", "254", "256"}

// BuildOptions carries the store settings a request needs.
type BuildOptions struct {
	StoreURL    string
	CountryCode string
	OrderPrefix string
}

// WebhookURL is where the processor posts events for this store.
func (o BuildOptions) WebhookURL() string {
	return strings.TrimRight(o.StoreURL, "/") + "/wc-api/snippe_webhook/"
}

// OrderReceivedURL is the thank-you page for order.
func (o BuildOptions) OrderReceivedURL(order *models.Order) string {
	return strings.TrimRight(o.StoreURL, "/") + "/checkout/order-received/" + strconv.FormatUint(uint64(order.ID), 10) + "/"
}

// CheckoutURL is the store's checkout page.
func (o BuildOptions) CheckoutURL() string {
	return strings.TrimRight(o.StoreURL, "/") + "/checkout/"
}

// BuildPaymentRequest assembles the creation request for order. phone should
// already be normalized.
func BuildPaymentRequest(order *models.Order, pt PaymentType, phone string, opts BuildOptions) *Request {
	prefix := opts.OrderPrefix
	if prefix == "" {
		prefix = "WC-"
	}
	currency := order.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	orderNumber := order.OrderNumber
	if orderNumber == "" {
		orderNumber = strconv.FormatUint(uint64(order.ID), 10)
	}

	req := &Request{
		PaymentType: pt,
		Details: Details{
			// The processor takes the amount in the major unit.
			Amount:   order.Total.IntPart(),
			Currency: currency,
		},
		PhoneNumber: phone,
		Customer: Customer{
			FirstName: order.BillingFirstName,
			LastName:  order.BillingLastName,
			Email:     order.BillingEmail,
		},
		WebhookURL: opts.WebhookURL(),
		Metadata: Metadata{
			OrderID:     prefix + strconv.FormatUint(uint64(order.ID), 10),
			CustomerID:  order.CustomerID,
			OrderNumber: orderNumber,
		},
	}

	if pt == TypeCard || pt == TypeDynamicQR {
		req.Details.RedirectURL = opts.OrderReceivedURL(order)
		req.Details.CancelURL = opts.CheckoutURL()
	}
	if pt == TypeCard {
		req.Customer.Address = order.BillingAddress1 + " " + order.BillingAddress2
		req.Customer.City = order.BillingCity
		req.Customer.State = order.BillingState
		req.Customer.Postcode = order.BillingPostcode
		req.Customer.Country = order.BillingCountry
	}
	return req
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// NormalizePhone turns a local or international number into the digits-only
// international form the processor expects.
func NormalizePhone(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	p := DigitsOnly(phone)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "0") {
		p = countryCode + p[1:]
	}
	if len(p) < 12 && !hasKnownCountryCode(p) {
		p = countryCode + p
	}
	return p
}

func hasKnownCountryCode(p string) bool {
	for _, cc := range knownCountryCodes {
		if strings.HasPrefix(p, cc) {
			return true
		}
	}
	return false
}
