package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"snippepay/internal/models"
)

// Migrate ensures the order, stock and cart tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		// Orders
		&models.Order{},
		&models.OrderItem{},
		&models.OrderNote{},
		// Storefront tables the checkout touches
		&models.Product{},
		&models.CartItem{},
	}
}
