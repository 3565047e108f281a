package cart

// Item is one product/price pairing in the cart. UnitAmount is the price in
// integer minor-currency units.
type Item struct {
	PriceID    string  `json:"price_id"`
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	UnitAmount int64   `json:"unit_amount"`
	Quantity   int64   `json:"quantity"`
	Image      *string `json:"image,omitempty"`
}

// Cart is an explicitly constructed cart state. It holds no globals and does
// not touch storage itself; persistence is the caller's concern (see Persistence).
type Cart struct {
	items []Item
}

// New creates a cart from previously loaded items.
func New(items []Item) *Cart {
	return &Cart{items: items}
}

// Items returns a copy of the cart contents.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Total returns the cart total in minor-currency units.
func (c *Cart) Total() int64 {
	var sum int64
	for _, item := range c.items {
		sum += item.UnitAmount * item.Quantity
	}
	return sum
}

// ItemCount returns the summed quantity across all lines.
func (c *Cart) ItemCount() int64 {
	var count int64
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// AddItem adds one unit of the product, incrementing the quantity when the
// price id is already in the cart.
func (c *Cart) AddItem(item Item) {
	for i := range c.items {
		if c.items[i].PriceID == item.PriceID {
			c.items[i].Quantity++
			return
		}
	}

	item.Quantity = 1
	c.items = append(c.items, item)
}

// RemoveItem drops the line with the given price id.
func (c *Cart) RemoveItem(priceID string) {
	filtered := c.items[:0]
	for _, item := range c.items {
		if item.PriceID != priceID {
			filtered = append(filtered, item)
		}
	}
	c.items = filtered
}

// UpdateQuantity sets the quantity for a line. A quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(priceID string, quantity int64) {
	if quantity <= 0 {
		c.RemoveItem(priceID)
		return
	}
	for i := range c.items {
		if c.items[i].PriceID == priceID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}
