package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"snippepay/internal/models"
)

// OrderStore is the gorm-backed OrderRepository.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (r *OrderStore) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderStore) FindByPaymentReference(ctx context.Context, ref string, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 1
	}
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_reference = ?", ref).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *OrderStore) FindAwaitingPayment(ctx context.Context, olderThan time.Time, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND payment_reference IS NOT NULL AND updated_at < ?", models.StatusSnippePending, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// Save writes the order row guarded by its version and inserts notes that
// have no ID yet, in one transaction.
func (r *OrderStore) Save(ctx context.Context, order *models.Order) error {
	now := time.Now()
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.ID == 0 {
			order.CreatedAt = now
			order.UpdatedAt = now
			order.Version = 1
			if err := tx.Omit("Items", "Notes").Create(order).Error; err != nil {
				return err
			}
			for i := range order.Items {
				order.Items[i].OrderID = order.ID
			}
			if len(order.Items) > 0 {
				if err := tx.Create(&order.Items).Error; err != nil {
					return err
				}
			}
		} else {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND version = ?", order.ID, order.Version).
				Updates(map[string]interface{}{
					"status":            order.Status,
					"payment_method":    order.PaymentMethod,
					"payment_reference": order.PaymentReference,
					"transaction_id":    order.TransactionID,
					"date_paid":         order.DatePaid,
					"meta":              order.Meta,
					"version":           order.Version + 1,
					"updated_at":        now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleOrder
			}
			updated = true
		}

		for i := range order.Notes {
			if order.Notes[i].ID != 0 {
				continue
			}
			order.Notes[i].OrderID = order.ID
			if err := tx.Create(&order.Notes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil && updated {
		order.Version++
		order.UpdatedAt = now
	}
	return err
}
