package repository

import (
	"github.com/veloshop/veloshop/app/models"
)

// CustomerRepository defines the read operations the storefront needs for
// customers. Customer creation happens inside the order ingestion workflow.
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	Count() (int64, error)
}

// OrderRepository defines the read operations for recorded orders. Orders are
// append-only; they are written exclusively by the ingestion workflow.
type OrderRepository interface {
	GetByUUID(uuid string) (*models.Order, error)
	GetByCheckoutID(checkoutID string) (*models.Order, error)
	ListByCustomerID(customerID uint, offset, limit int) ([]models.Order, error)
	ListRecent(limit int) ([]models.Order, error)
	Count() (int64, error)
}
