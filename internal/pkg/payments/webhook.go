package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/veloshop/veloshop/internal/pkg/orders"
)

// Event types this application reacts to. Everything else is acknowledged and
// ignored so the provider stops redelivering.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("payments: missing webhook signature header")

	// ErrNoCustomerEmail marks a checkout-completed event without a buyer
	// email. Such events are permanently unprocessable and must not be retried.
	ErrNoCustomerEmail = errors.New("payments: checkout session has no customer email")
)

// VerifyEvent authenticates a raw webhook payload against the signature
// header and returns the typed event. The payload is untrusted until this
// succeeds.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	return webhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
}

// checkoutSessionPayload is the subset of the checkout.session.completed
// payload this application consumes. Parsing into an explicit shape up front
// keeps loose provider fields out of the ingestion pipeline.
type checkoutSessionPayload struct {
	ID            string `json:"id"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	PaymentIntent string `json:"payment_intent"`

	CustomerDetails *struct {
		Email   string          `json:"email"`
		Name    string          `json:"name"`
		Address *addressPayload `json:"address"`
	} `json:"customer_details"`

	ShippingDetails *struct {
		Name    string          `json:"name"`
		Address *addressPayload `json:"address"`
	} `json:"shipping_details"`
}

type addressPayload struct {
	City       string `json:"city"`
	Country    string `json:"country"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
}

func (a *addressPayload) toInput() *orders.AddressInput {
	if a == nil {
		return nil
	}
	return &orders.AddressInput{
		City:       a.City,
		Country:    a.Country,
		Line1:      a.Line1,
		Line2:      a.Line2,
		PostalCode: a.PostalCode,
		State:      a.State,
	}
}

// ParseCheckoutSession normalizes a verified checkout.session.completed event
// into the ingestion input. It fails fast with ErrNoCustomerEmail when the
// buyer email is absent and never lets missing optional fields propagate as
// empty surprises downstream.
func ParseCheckoutSession(event stripe.Event) (orders.CheckoutCompletedInput, error) {
	if event.Data == nil {
		return orders.CheckoutCompletedInput{}, errors.New("payments: event carries no data object")
	}

	var payload checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return orders.CheckoutCompletedInput{}, fmt.Errorf("payments: malformed checkout session payload: %w", err)
	}
	if payload.ID == "" {
		return orders.CheckoutCompletedInput{}, errors.New("payments: checkout session payload has no id")
	}

	in := orders.CheckoutCompletedInput{
		CheckoutSessionID: payload.ID,
		AmountTotal:       payload.AmountTotal,
		Currency:          payload.Currency,
	}
	if in.Currency == "" {
		in.Currency = "usd"
	}
	if payload.PaymentIntent != "" {
		pi := payload.PaymentIntent
		in.PaymentIntentID = &pi
	}

	details := payload.CustomerDetails
	if details == nil || strings.TrimSpace(details.Email) == "" {
		return orders.CheckoutCompletedInput{}, ErrNoCustomerEmail
	}
	in.CustomerEmail = details.Email
	in.CustomerName = details.Name
	in.BillingAddress = details.Address.toInput()

	if shipping := payload.ShippingDetails; shipping != nil {
		in.ShippingAddress = shipping.Address.toInput()
	}

	return in, nil
}
