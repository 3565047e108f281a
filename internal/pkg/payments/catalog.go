package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
)

// CatalogProduct is the storefront view of one purchasable product.
// UnitAmount is in minor-currency units; products without a usable default
// price keep a zero amount and an empty price id.
type CatalogProduct struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	PriceID     string   `json:"price_id"`
	UnitAmount  int64    `json:"unit_amount"`
	Currency    string   `json:"currency"`
}

// ListProducts fetches the active products with their default prices expanded.
func (c *Client) ListProducts(ctx context.Context) ([]CatalogProduct, error) {
	params := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.default_price")

	products := []CatalogProduct{}
	iter := c.api.Products.List(params)
	for iter.Next() {
		products = append(products, catalogProductFromStripe(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func catalogProductFromStripe(p *stripe.Product) CatalogProduct {
	cp := CatalogProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Currency:    "usd",
	}

	// DefaultPrice carries an id whether or not it was expanded; an amount of
	// zero is a legitimate free product and stays purchasable.
	if price := p.DefaultPrice; price != nil && price.ID != "" {
		cp.PriceID = price.ID
		cp.UnitAmount = price.UnitAmount
		if price.Currency != "" {
			cp.Currency = string(price.Currency)
		}
	}
	return cp
}
