package payments

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/veloshop/veloshop/internal/pkg/orders"
)

// CheckoutItem is one price/quantity pair for a checkout session.
type CheckoutItem struct {
	PriceID  string `json:"price_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}

// ErrNoItems is returned when a checkout session is requested with an empty cart.
var ErrNoItems = errors.New("payments: checkout requires at least one item")

// CreateCheckoutSession creates a payment-mode checkout session and returns
// the provider-hosted payment page URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, items []CheckoutItem, successURL, cancelURL string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceID),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// ListLineItems fetches the purchased line items of a checkout session with
// product detail expanded, normalized for order ingestion.
func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]orders.LineItemInput, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	var items []orders.LineItemInput
	iter := c.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, lineItemInputFromStripe(iter.LineItem()))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func lineItemInputFromStripe(item *stripe.LineItem) orders.LineItemInput {
	in := orders.LineItemInput{
		ProductName: item.Description,
		Quantity:    item.Quantity,
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	if price := item.Price; price != nil {
		in.PriceID = price.ID
		in.PricePerUnit = price.UnitAmount
		if product := price.Product; product != nil {
			// An unexpanded product reference still carries its id; images are
			// only present when the product was expanded into a full object.
			in.ProductID = product.ID
			if len(product.Images) > 0 {
				image := product.Images[0]
				in.ProductImage = &image
			}
		}
	}
	return in
}
