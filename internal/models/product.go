package models

// Product maps to the `products` table. Only stock tracking is used here.
type Product struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"column:name;size:300" json:"name"`
	ManageStock bool   `gorm:"column:manage_stock;default:false" json:"manage_stock"`
	StockQty    int    `gorm:"column:stock_quantity;default:0" json:"stock_quantity"`
}

func (Product) TableName() string {
	return "products"
}

// CartItem maps to the `cart_items` table.
type CartItem struct {
	ID         uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID uint `gorm:"column:customer_id;index" json:"customer_id"`
	ProductID  uint `gorm:"column:product_id" json:"product_id"`
	Quantity   int  `gorm:"column:quantity" json:"quantity"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
