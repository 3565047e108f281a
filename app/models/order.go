package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order status values. This workflow only ever creates orders in status paid;
// orders are append-only from the webhook's perspective.
const (
	OrderStatusPaid = "paid"
)

// JSON stores free-form structured data (addresses) in a JSON column.
type JSON json.RawMessage

// Value implements the driver.Valuer interface.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

// Order is a completed purchase recorded from a Stripe checkout session.
// StripeCheckoutID carries a unique index so redelivered webhooks cannot
// create a second order for the same session. CustomerEmail and CustomerName
// are snapshots taken at purchase time and never follow later customer edits.
type Order struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	UUID             string      `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	StripeCheckoutID string      `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_checkout_id"`
	StripePaymentID  *string     `gorm:"type:varchar(191);default:null" json:"stripe_payment_id,omitempty"`
	CustomerID       uint        `gorm:"not null;index" json:"customer_id"`
	Customer         Customer    `gorm:"foreignKey:CustomerID" json:"-"`
	CustomerEmail    string      `gorm:"type:varchar(200);not null" json:"customer_email"`
	CustomerName     *string     `gorm:"type:varchar(150);default:null" json:"customer_name,omitempty"`
	Status           string      `gorm:"type:varchar(20);not null;default:'paid';index" json:"status"`
	TotalAmount      int64       `gorm:"not null" json:"total_amount"`
	Currency         string      `gorm:"type:varchar(3);not null" json:"currency"`
	ShippingAddress  JSON        `gorm:"type:json" json:"shipping_address,omitempty"`
	BillingAddress   JSON        `gorm:"type:json" json:"billing_address,omitempty"`
	Items            []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt        time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the public identifier.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == "" {
		o.UUID = uuid.New().String()
	}
	return nil
}
