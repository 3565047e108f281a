package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Customer is a buyer identified by their email address. The unique index is
// the invariant the order ingestion relies on: concurrent webhooks for the
// same new email must never produce two rows.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	Name      *string   `gorm:"type:varchar(150);default:null" json:"name,omitempty" validate:"omitempty,max=150"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// NewCustomer builds a validated customer. Name may be empty; it is stored as
// NULL in that case.
func NewCustomer(email string, name string) (*Customer, error) {
	c := &Customer{Email: email}
	if name != "" {
		c.Name = &name
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}
