package repository

import (
	"github.com/veloshop/veloshop/app/models"
	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// GetByUUID retrieves an order with its items by public identifier
func (r *orderRepository) GetByUUID(uuid string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("uuid = ?", uuid).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByCheckoutID retrieves an order by its checkout session id
func (r *orderRepository) GetByCheckoutID(checkoutID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("stripe_checkout_id = ?", checkoutID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomerID retrieves a page of a customer's orders, newest first
func (r *orderRepository) ListByCustomerID(customerID uint, offset, limit int) ([]models.Order, error) {
	var orderList []models.Order
	err := r.db.Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orderList).Error
	return orderList, err
}

// ListRecent retrieves the most recently recorded orders
func (r *orderRepository) ListRecent(limit int) ([]models.Order, error) {
	var orderList []models.Order
	err := r.db.Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Find(&orderList).Error
	return orderList, err
}

// Count returns the total number of orders
func (r *orderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}
