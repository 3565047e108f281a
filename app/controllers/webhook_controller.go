package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v74"

	"github.com/veloshop/veloshop/app/models"
	"github.com/veloshop/veloshop/internal/pkg/orders"
	"github.com/veloshop/veloshop/internal/pkg/payments"
)

// WebhookVerifier authenticates and expands inbound provider events.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
	ListLineItems(ctx context.Context, sessionID string) ([]orders.LineItemInput, error)
}

// OrderIngestor is the slice of the orders service the webhook handler uses.
type OrderIngestor interface {
	IngestCheckoutCompleted(ctx context.Context, in orders.CheckoutCompletedInput) (*orders.IngestResult, error)
	RecordEvent(ctx context.Context, provider, eventID, eventType, payload string) (bool, *models.WebhookEvent, error)
	MarkEventProcessed(ctx context.Context, eventID uint, processingErr error) error
}

// WebhookController handles inbound payment provider notifications.
type WebhookController struct {
	gateway  WebhookVerifier
	ingestor OrderIngestor
}

var webhookController *WebhookController

// InitializeWebhookController wires the webhook controller with its
// collaborators. Called once from the router.
func InitializeWebhookController(gateway WebhookVerifier, ingestor OrderIngestor) {
	webhookController = &WebhookController{gateway: gateway, ingestor: ingestor}
}

// HandleStripeWebhook processes a signed Stripe event.
//
// Acknowledgment contract: 400 for anything unauthenticated, 200 with
// {received:true} for everything the application accepts (including events it
// deliberately ignores and events that are permanently unprocessable), and
// 500 only for transient failures that the provider should redeliver.
func HandleStripeWebhook(c *fiber.Ctx) error {
	return webhookController.handleStripeWebhook(c)
}

func (ctl *WebhookController) handleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No signature provided"})
	}

	event, err := ctl.gateway.VerifyEvent(rawBody, signature)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Record the delivery for deduplication. A redelivered event that was
	// already processed successfully is acknowledged without side effects; an
	// event whose previous attempt failed runs again.
	created, stored, err := ctl.ingestor.RecordEvent(ctx, models.PaymentProviderStripe, event.ID, event.Type, string(rawBody))
	if err != nil {
		log.Printf("Failed to record webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return c.JSON(fiber.Map{"received": true})
	}

	switch event.Type {
	case payments.EventCheckoutSessionCompleted:
		return ctl.handleCheckoutCompleted(ctx, c, event, stored.ID)

	case payments.EventPaymentIntentSucceeded:
		log.Printf("Payment succeeded: %s", event.ID)
		_ = ctl.ingestor.MarkEventProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"received": true})

	case payments.EventPaymentIntentFailed:
		log.Printf("Payment failed: %s", event.ID)
		_ = ctl.ingestor.MarkEventProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"received": true})

	default:
		log.Printf("Unhandled event type: %s", event.Type)
		_ = ctl.ingestor.MarkEventProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"received": true})
	}
}

func (ctl *WebhookController) handleCheckoutCompleted(ctx context.Context, c *fiber.Ctx, event stripe.Event, eventID uint) error {
	in, err := payments.ParseCheckoutSession(event)
	if err != nil {
		// Without a buyer email (or a readable payload) the event can never
		// be processed; acknowledge it so the provider stops retrying.
		if errors.Is(err, payments.ErrNoCustomerEmail) {
			log.Printf("No customer email in session, abandoning event %s", event.ID)
		} else {
			log.Printf("Unprocessable checkout session in event %s: %v", event.ID, err)
		}
		_ = ctl.ingestor.MarkEventProcessed(ctx, eventID, err)
		return c.JSON(fiber.Map{"received": true})
	}

	log.Printf("Processing checkout session: %s", in.CheckoutSessionID)

	in.LineItems, err = ctl.gateway.ListLineItems(ctx, in.CheckoutSessionID)
	if err != nil {
		log.Printf("Failed to fetch line items for %s: %v", in.CheckoutSessionID, err)
		_ = ctl.ingestor.MarkEventProcessed(ctx, eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	result, err := ctl.ingestor.IngestCheckoutCompleted(ctx, in)
	if err != nil {
		_ = ctl.ingestor.MarkEventProcessed(ctx, eventID, err)
		// Validation failures are permanent; retrying the delivery cannot fix
		// them, so they are acknowledged rather than bounced.
		if errors.Is(err, orders.ErrMissingCheckoutID) || errors.Is(err, orders.ErrMissingEmail) || errors.Is(err, orders.ErrNoLineItems) {
			log.Printf("Unprocessable checkout session %s: %v", in.CheckoutSessionID, err)
			return c.JSON(fiber.Map{"received": true})
		}
		log.Printf("Error processing webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	if result.Created {
		log.Printf("Order created: %s", result.Order.UUID)
	} else {
		log.Printf("Order already recorded for session %s", in.CheckoutSessionID)
	}
	_ = ctl.ingestor.MarkEventProcessed(ctx, eventID, nil)
	return c.JSON(fiber.Map{"received": true})
}
