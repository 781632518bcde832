package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order statuses. StatusSnippePending is the custom "awaiting payment" state
// an order sits in between checkout and the processor's webhook.
const (
	StatusPending       = "pending"
	StatusSnippePending = "snippe-pending"
	StatusOnHold        = "on-hold"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusCancelled     = "cancelled"
	StatusRefunded      = "refunded"
)

// Meta keys stored on the order's meta column.
const (
	MetaPaymentType       = "_snippe_payment_type"
	MetaPaymentURL        = "_snippe_payment_url"
	MetaExternalReference = "_snippe_external_reference"
	MetaSettlementGross   = "_snippe_settlement_gross"
	MetaSettlementFees    = "_snippe_settlement_fees"
	MetaSettlementNet     = "_snippe_settlement_net"
	MetaChannelType       = "_snippe_channel_type"
	MetaChannelProvider   = "_snippe_channel_provider"
)

// ErrReferenceAlreadySet is returned when a second payment reference is
// attached to an order.
var ErrReferenceAlreadySet = errors.New("order already has a payment reference")

// Order maps to the `orders` table.
type Order struct {
	ID               uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNumber      string            `gorm:"column:order_number;size:100" json:"order_number"`
	CustomerID       uint              `gorm:"column:customer_id;index" json:"customer_id"`
	Status           string            `gorm:"column:status;size:50;index" json:"status"`
	PaymentMethod    string            `gorm:"column:payment_method;size:100" json:"payment_method"`
	PaymentReference *string           `gorm:"column:payment_reference;size:191;index" json:"payment_reference"`
	TransactionID    string            `gorm:"column:transaction_id;size:191" json:"transaction_id"`
	DatePaid         *time.Time        `gorm:"column:date_paid" json:"date_paid"`
	Total            decimal.Decimal   `gorm:"column:total;type:decimal(20,4)" json:"total"`
	Currency         string            `gorm:"column:currency;size:10" json:"currency"`
	BillingFirstName string            `gorm:"column:billing_first_name;size:200" json:"billing_first_name"`
	BillingLastName  string            `gorm:"column:billing_last_name;size:200" json:"billing_last_name"`
	BillingEmail     string            `gorm:"column:billing_email;size:300" json:"billing_email"`
	BillingPhone     string            `gorm:"column:billing_phone;size:50" json:"billing_phone"`
	BillingAddress1  string            `gorm:"column:billing_address_1;size:300" json:"billing_address_1"`
	BillingAddress2  string            `gorm:"column:billing_address_2;size:300" json:"billing_address_2"`
	BillingCity      string            `gorm:"column:billing_city;size:200" json:"billing_city"`
	BillingState     string            `gorm:"column:billing_state;size:200" json:"billing_state"`
	BillingPostcode  string            `gorm:"column:billing_postcode;size:50" json:"billing_postcode"`
	BillingCountry   string            `gorm:"column:billing_country;size:10" json:"billing_country"`
	Meta             datatypes.JSONMap `gorm:"column:meta" json:"meta"`
	Version          int64             `gorm:"column:version;default:0" json:"-"`
	CreatedAt        time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at" json:"updated_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	Notes            []OrderNote       `gorm:"foreignKey:OrderID" json:"notes"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem maps to the `order_items` table.
type OrderItem struct {
	ID           uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID      uint            `gorm:"column:order_id;index" json:"order_id"`
	ProductID    uint            `gorm:"column:product_id" json:"product_id"`
	Name         string          `gorm:"column:name;size:300" json:"name"`
	Quantity     int             `gorm:"column:quantity" json:"quantity"`
	Total        decimal.Decimal `gorm:"column:total;type:decimal(20,4)" json:"total"`
	Downloadable bool            `gorm:"column:downloadable;default:false" json:"downloadable"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderNote maps to the `order_notes` table.
type OrderNote struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   uint      `gorm:"column:order_id;index" json:"order_id"`
	Note      string    `gorm:"column:note;type:text" json:"note"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (OrderNote) TableName() string {
	return "order_notes"
}

// IsPaid reports whether the order reached one of the paid statuses.
func (o *Order) IsPaid() bool {
	return o.Status == StatusProcessing || o.Status == StatusCompleted
}

// IsTerminal reports whether the order can no longer be moved by payment events.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Reference returns the attached payment reference, or "".
func (o *Order) Reference() string {
	if o.PaymentReference == nil {
		return ""
	}
	return *o.PaymentReference
}

// AttachPaymentReference sets the payment reference once. Re-attaching the
// same value is a no-op.
func (o *Order) AttachPaymentReference(ref string) error {
	if cur := o.Reference(); cur != "" {
		if cur == ref {
			return nil
		}
		return ErrReferenceAlreadySet
	}
	o.PaymentReference = &ref
	return nil
}

// UpdateMeta stores a meta value on the order.
func (o *Order) UpdateMeta(key string, value interface{}) {
	if o.Meta == nil {
		o.Meta = datatypes.JSONMap{}
	}
	o.Meta[key] = value
}

// GetMeta returns a meta value as string.
func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	s, _ := o.Meta[key].(string)
	return s
}

// AddNote appends an audit note. Notes without an ID are inserted on save.
func (o *Order) AddNote(note string) {
	o.Notes = append(o.Notes, OrderNote{
		OrderID:   o.ID,
		Note:      note,
		CreatedAt: time.Now(),
	})
}

// UpdateStatus changes the status and records the transition as a note.
func (o *Order) UpdateStatus(status, note string) {
	if o.Status == status {
		if note != "" {
			o.AddNote(note)
		}
		return
	}
	text := "Order status changed from " + o.Status + " to " + status + "."
	if note != "" {
		text = note + " " + text
	}
	o.Status = status
	o.AddNote(text)
}

// HasOnlyDownloadableItems is true when the order has items and every one of
// them is downloadable.
func (o *Order) HasOnlyDownloadableItems() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.Downloadable {
			return false
		}
	}
	return true
}
