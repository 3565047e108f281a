package orders

// AddressInput is the flat, provider-neutral address shape stored on orders.
type AddressInput struct {
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	State      string `json:"state,omitempty"`
}

// LineItemInput is one purchased line, normalized from the provider's line
// item. PricePerUnit is in minor-currency units; the line total is recomputed
// during ingestion and never trusted from upstream.
type LineItemInput struct {
	PriceID      string
	ProductID    string
	ProductName  string
	ProductImage *string
	Quantity     int64
	PricePerUnit int64
}

// CheckoutCompletedInput is the normalized payload of a completed checkout,
// ready for ingestion.
type CheckoutCompletedInput struct {
	CheckoutSessionID string
	PaymentIntentID   *string
	CustomerEmail     string
	CustomerName      string
	AmountTotal       int64
	Currency          string
	ShippingAddress   *AddressInput
	BillingAddress    *AddressInput
	LineItems         []LineItemInput
}
