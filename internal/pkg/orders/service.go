package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/veloshop/veloshop/app/models"
)

var (
	// ErrMissingCheckoutID marks input without a checkout session id.
	ErrMissingCheckoutID = errors.New("orders: checkout session id is required")

	// ErrMissingEmail marks input without a buyer email. The event cannot be
	// recovered by retrying and must be acknowledged, not re-queued.
	ErrMissingEmail = errors.New("orders: customer email is required")

	// ErrNoLineItems marks a checkout with an empty line item set.
	ErrNoLineItems = errors.New("orders: at least one line item is required")
)

// IngestResult reports what a single ingestion run did. Created is false when
// the order already existed (redelivered webhook).
type IngestResult struct {
	Order    *models.Order
	Customer *models.Customer
	Created  bool
}

// Service runs the order ingestion workflow: resolve or create the paying
// customer, then persist the order with its lines atomically and idempotently.
type Service struct {
	repo Repository
}

// NewService creates an ingestion service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates an ingestion service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// IngestCheckoutCompleted records one completed checkout. Steps are strictly
// sequential: validate, resolve customer, build the order snapshot, persist.
// Redelivering the same checkout session returns the stored order with
// Created=false and writes nothing.
func (s *Service) IngestCheckoutCompleted(ctx context.Context, in CheckoutCompletedInput) (*IngestResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	customer, err := s.resolveCustomer(ctx, in.CustomerEmail, in.CustomerName)
	if err != nil {
		return nil, fmt.Errorf("orders: resolve customer: %w", err)
	}

	order, err := buildOrder(customer, in)
	if err != nil {
		return nil, err
	}

	created, stored, err := s.repo.CreateOrderIfNotExists(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("orders: persist order: %w", err)
	}

	return &IngestResult{Order: stored, Customer: customer, Created: created}, nil
}

// RecordEvent persists a webhook event idempotently for deduplication.
func (s *Service) RecordEvent(ctx context.Context, provider, eventID, eventType, payload string) (bool, *models.WebhookEvent, error) {
	event := &models.WebhookEvent{
		Provider:        strings.ToLower(strings.TrimSpace(provider)),
		ProviderEventID: strings.TrimSpace(eventID),
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     payload,
	}
	if event.Provider == "" || event.ProviderEventID == "" {
		return false, nil, errors.New("orders: provider and event id are required")
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkEventProcessed marks an event as handled and stores an optional error.
func (s *Service) MarkEventProcessed(ctx context.Context, eventID uint, processingErr error) error {
	if eventID == 0 {
		return errors.New("orders: webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, eventID, errMsg)
}

func validateInput(in CheckoutCompletedInput) error {
	if strings.TrimSpace(in.CheckoutSessionID) == "" {
		return ErrMissingCheckoutID
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		return ErrMissingEmail
	}
	if len(in.LineItems) == 0 {
		return ErrNoLineItems
	}
	return nil
}

// resolveCustomer looks the customer up by email and creates them on first
// purchase. Two webhooks for the same new email can race here; the unique
// constraint catches the loser, which then re-reads the winner's row.
func (s *Service) resolveCustomer(ctx context.Context, email, name string) (*models.Customer, error) {
	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh, err := models.NewCustomer(email, name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCustomer(ctx, fresh); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.repo.GetCustomerByEmail(ctx, email)
		}
		return nil, err
	}
	return fresh, nil
}

func buildOrder(customer *models.Customer, in CheckoutCompletedInput) (*models.Order, error) {
	order := &models.Order{
		StripeCheckoutID: in.CheckoutSessionID,
		StripePaymentID:  in.PaymentIntentID,
		CustomerID:       customer.ID,
		CustomerEmail:    in.CustomerEmail,
		Status:           models.OrderStatusPaid,
		TotalAmount:      in.AmountTotal,
		Currency:         in.Currency,
	}
	if name := strings.TrimSpace(in.CustomerName); name != "" {
		order.CustomerName = &name
	}

	var err error
	if order.ShippingAddress, err = marshalAddress(in.ShippingAddress); err != nil {
		return nil, err
	}
	if order.BillingAddress, err = marshalAddress(in.BillingAddress); err != nil {
		return nil, err
	}

	order.Items = make([]models.OrderItem, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			StripePriceID:   item.PriceID,
			StripeProductID: item.ProductID,
			ProductName:     item.ProductName,
			ProductImage:    item.ProductImage,
			Quantity:        quantity,
			PricePerUnit:    item.PricePerUnit,
			// Recomputed here; the provider's line total is not trusted.
			TotalPrice: quantity * item.PricePerUnit,
		})
	}

	return order, nil
}

func marshalAddress(addr *AddressInput) (models.JSON, error) {
	if addr == nil {
		return nil, nil
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("orders: marshal address: %w", err)
	}
	return models.JSON(raw), nil
}
