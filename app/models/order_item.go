package models

import "time"

// OrderItem is one purchased line of an order. TotalPrice is computed as
// Quantity * PricePerUnit when the order is ingested and is never re-derived
// afterwards. Amounts are integer minor-currency units (cents).
type OrderItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	StripePriceID   string    `gorm:"type:varchar(191);not null" json:"stripe_price_id"`
	StripeProductID string    `gorm:"type:varchar(191);not null" json:"stripe_product_id"`
	ProductName     string    `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductImage    *string   `gorm:"type:varchar(512);default:null" json:"product_image,omitempty"`
	Quantity        int64     `gorm:"not null" json:"quantity"`
	PricePerUnit    int64     `gorm:"not null" json:"price_per_unit"`
	TotalPrice      int64     `gorm:"not null" json:"total_price"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
