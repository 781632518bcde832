package repository

import (
	"context"
	"errors"
	"time"

	"snippepay/internal/models"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStaleOrder is returned by Save when the order was changed by someone
	// else since it was loaded. Reload and re-apply.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// OrderRepository is the order store the gateway works against.
type OrderRepository interface {
	// Get loads an order with its items and notes.
	Get(ctx context.Context, id uint) (*models.Order, error)
	// FindByPaymentReference returns orders carrying ref, at most limit of
	// them. More than one result is an anomaly the caller should report.
	FindByPaymentReference(ctx context.Context, ref string, limit int) ([]*models.Order, error)
	// FindAwaitingPayment returns orders in the snippe-pending status last
	// updated before olderThan.
	FindAwaitingPayment(ctx context.Context, olderThan time.Time, limit int) ([]*models.Order, error)
	// Save persists the order and inserts its new notes. It fails with
	// ErrStaleOrder when the stored version moved on.
	Save(ctx context.Context, order *models.Order) error
}

// Inventory adjusts stock for a placed order.
type Inventory interface {
	ReduceStock(ctx context.Context, order *models.Order) error
}

// Cart holds the customer's basket.
type Cart interface {
	Empty(ctx context.Context, customerID uint) error
}
