package repository

import (
	"context"

	"gorm.io/gorm"

	"snippepay/internal/models"
)

// StockStore is the gorm-backed Inventory.
type StockStore struct {
	db *gorm.DB
}

func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// ReduceStock decrements stock for every managed product on the order.
func (r *StockStore) ReduceStock(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if item.ProductID == 0 || item.Quantity <= 0 {
				continue
			}
			err := tx.Model(&models.Product{}).
				Where("id = ? AND manage_stock = ?", item.ProductID, true).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CartStore is the gorm-backed Cart.
type CartStore struct {
	db *gorm.DB
}

func NewCartStore(db *gorm.DB) *CartStore {
	return &CartStore{db: db}
}

// Empty removes every cart row of the customer. Guest carts (id 0) are not
// stored server-side.
func (r *CartStore) Empty(ctx context.Context, customerID uint) error {
	if customerID == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&models.CartItem{}).Error
}
