package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v74"

	"github.com/veloshop/veloshop/app/models"
	"github.com/veloshop/veloshop/internal/pkg/orders"
	"github.com/veloshop/veloshop/internal/pkg/payments"
)

type fakeWebhookGateway struct {
	event     stripe.Event
	verifyErr error

	lineItems    []orders.LineItemInput
	lineItemsErr error

	verifiedPayload   []byte
	verifiedSignature string
	listedSession     string
}

func (g *fakeWebhookGateway) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	g.verifiedPayload = payload
	g.verifiedSignature = signatureHeader
	if g.verifyErr != nil {
		return stripe.Event{}, g.verifyErr
	}
	return g.event, nil
}

func (g *fakeWebhookGateway) ListLineItems(_ context.Context, sessionID string) ([]orders.LineItemInput, error) {
	g.listedSession = sessionID
	if g.lineItemsErr != nil {
		return nil, g.lineItemsErr
	}
	return g.lineItems, nil
}

type fakeIngestor struct {
	recordCreated bool
	recordStored  *models.WebhookEvent
	recordErr     error

	ingestResult *orders.IngestResult
	ingestErr    error

	ingested []orders.CheckoutCompletedInput
	marked   []markCall
}

type markCall struct {
	eventID uint
	err     error
}

func (i *fakeIngestor) IngestCheckoutCompleted(_ context.Context, in orders.CheckoutCompletedInput) (*orders.IngestResult, error) {
	i.ingested = append(i.ingested, in)
	if i.ingestErr != nil {
		return nil, i.ingestErr
	}
	return i.ingestResult, nil
}

func (i *fakeIngestor) RecordEvent(_ context.Context, provider, eventID, eventType, payload string) (bool, *models.WebhookEvent, error) {
	if i.recordErr != nil {
		return false, nil, i.recordErr
	}
	stored := i.recordStored
	if stored == nil {
		stored = &models.WebhookEvent{
			ID:              1,
			Provider:        provider,
			ProviderEventID: eventID,
			EventType:       eventType,
			PayloadJSON:     payload,
		}
	}
	return i.recordCreated, stored, nil
}

func (i *fakeIngestor) MarkEventProcessed(_ context.Context, eventID uint, processingErr error) error {
	i.marked = append(i.marked, markCall{eventID: eventID, err: processingErr})
	return nil
}

func newWebhookTestApp(gateway *fakeWebhookGateway, ingestor *fakeIngestor) *fiber.App {
	InitializeWebhookController(gateway, ingestor)
	app := fiber.New()
	app.Post("/api/webhooks/stripe", HandleStripeWebhook)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body, signature string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func completedCheckoutEvent(t *testing.T, session map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_1",
		Type: payments.EventCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	gateway := &fakeWebhookGateway{}
	ingestor := &fakeIngestor{}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "")

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No signature provided", body["error"])
	assert.Nil(t, gateway.verifiedPayload, "unsigned payload must not reach verification")
	assert.Empty(t, ingestor.ingested)
	assert.Empty(t, ingestor.marked)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	gateway := &fakeWebhookGateway{verifyErr: errors.New("signature mismatch")}
	ingestor := &fakeIngestor{}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "t=1,v1=bad")

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid signature", body["error"])
	assert.Empty(t, ingestor.ingested)
}

func TestWebhookProcessesCompletedCheckout(t *testing.T) {
	gateway := &fakeWebhookGateway{
		event: completedCheckoutEvent(t, map[string]interface{}{
			"id":           "cs_1",
			"amount_total": 2500,
			"currency":     "usd",
			"customer_details": map[string]interface{}{
				"email": "a@example.com",
				"name":  "Ada",
			},
		}),
		lineItems: []orders.LineItemInput{
			{PriceID: "price_1", ProductID: "prod_1", ProductName: "Widget", Quantity: 1, PricePerUnit: 2500},
		},
	}
	ingestor := &fakeIngestor{
		recordCreated: true,
		ingestResult: &orders.IngestResult{
			Order:   &models.Order{UUID: "ord-uuid", StripeCheckoutID: "cs_1"},
			Created: true,
		},
	}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{"raw":"payload"}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])

	assert.Equal(t, "cs_1", gateway.listedSession)
	require.Len(t, ingestor.ingested, 1)
	in := ingestor.ingested[0]
	assert.Equal(t, "cs_1", in.CheckoutSessionID)
	assert.Equal(t, "a@example.com", in.CustomerEmail)
	assert.Equal(t, gateway.lineItems, in.LineItems, "fetched line items must flow into ingestion")

	require.Len(t, ingestor.marked, 1)
	assert.Equal(t, uint(1), ingestor.marked[0].eventID)
	assert.NoError(t, ingestor.marked[0].err)
}

func TestWebhookAcknowledgesProcessedDuplicate(t *testing.T) {
	processedAt := time.Now()
	gateway := &fakeWebhookGateway{
		event: completedCheckoutEvent(t, map[string]interface{}{
			"id":               "cs_1",
			"customer_details": map[string]interface{}{"email": "a@example.com"},
		}),
	}
	ingestor := &fakeIngestor{
		recordCreated: false,
		recordStored:  &models.WebhookEvent{ID: 1, ProcessedAt: &processedAt},
	}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Empty(t, ingestor.ingested, "already-processed redelivery must not ingest again")
	assert.Empty(t, ingestor.marked)
}

func TestWebhookReprocessesFailedDelivery(t *testing.T) {
	processedAt := time.Now()
	gateway := &fakeWebhookGateway{
		event: completedCheckoutEvent(t, map[string]interface{}{
			"id":               "cs_1",
			"customer_details": map[string]interface{}{"email": "a@example.com"},
		}),
		lineItems: []orders.LineItemInput{
			{PriceID: "price_1", Quantity: 1, PricePerUnit: 2500},
		},
	}
	ingestor := &fakeIngestor{
		recordCreated: false,
		recordStored:  &models.WebhookEvent{ID: 1, ProcessedAt: &processedAt, ProcessingError: "connection reset"},
		ingestResult: &orders.IngestResult{
			Order:   &models.Order{UUID: "ord-uuid", StripeCheckoutID: "cs_1"},
			Created: true,
		},
	}
	app := newWebhookTestApp(gateway, ingestor)

	status, _ := postWebhook(t, app, `{}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, ingestor.ingested, 1, "a delivery whose last attempt failed must run again")
}

func TestWebhookAcknowledgesMissingEmail(t *testing.T) {
	gateway := &fakeWebhookGateway{
		event: completedCheckoutEvent(t, map[string]interface{}{"id": "cs_1"}),
	}
	ingestor := &fakeIngestor{recordCreated: true}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusOK, status, "events without buyer email are permanently unprocessable, not retryable")
	assert.Equal(t, true, body["received"])
	assert.Empty(t, ingestor.ingested)

	require.Len(t, ingestor.marked, 1)
	assert.ErrorIs(t, ingestor.marked[0].err, payments.ErrNoCustomerEmail)
}

func TestWebhookBouncesTransientLineItemFailure(t *testing.T) {
	gateway := &fakeWebhookGateway{
		event: completedCheckoutEvent(t, map[string]interface{}{
			"id":               "cs_1",
			"customer_details": map[string]interface{}{"email": "a@example.com"},
		}),
		lineItemsErr: errors.New("stripe unavailable"),
	}
	ingestor := &fakeIngestor{recordCreated: true}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Webhook processing failed", body["error"])
	assert.Empty(t, ingestor.ingested)
}

func TestWebhookIngestErrors(t *testing.T) {
	tests := []struct {
		name       string
		ingestErr  error
		wantStatus int
	}{
		{name: "validation failure is acknowledged", ingestErr: orders.ErrNoLineItems, wantStatus: fiber.StatusOK},
		{name: "transient failure is bounced", ingestErr: errors.New("connection reset"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeWebhookGateway{
				event: completedCheckoutEvent(t, map[string]interface{}{
					"id":               "cs_1",
					"customer_details": map[string]interface{}{"email": "a@example.com"},
				}),
				lineItems: []orders.LineItemInput{{PriceID: "price_1", Quantity: 1, PricePerUnit: 100}},
			}
			ingestor := &fakeIngestor{recordCreated: true, ingestErr: tt.ingestErr}
			app := newWebhookTestApp(gateway, ingestor)

			status, _ := postWebhook(t, app, `{}`, "t=1,v1=sig")

			assert.Equal(t, tt.wantStatus, status)
			require.Len(t, ingestor.marked, 1)
			assert.ErrorIs(t, ingestor.marked[0].err, tt.ingestErr)
		})
	}
}

func TestWebhookAcknowledgesIgnoredEventTypes(t *testing.T) {
	for _, eventType := range []string{payments.EventPaymentIntentSucceeded, payments.EventPaymentIntentFailed, "customer.created"} {
		t.Run(eventType, func(t *testing.T) {
			gateway := &fakeWebhookGateway{event: stripe.Event{ID: "evt_1", Type: eventType}}
			ingestor := &fakeIngestor{recordCreated: true}
			app := newWebhookTestApp(gateway, ingestor)

			status, body := postWebhook(t, app, `{}`, "t=1,v1=sig")

			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, true, body["received"])
			assert.Empty(t, ingestor.ingested)

			require.Len(t, ingestor.marked, 1)
			assert.NoError(t, ingestor.marked[0].err)
		})
	}
}

func TestWebhookBouncesRecordFailure(t *testing.T) {
	gateway := &fakeWebhookGateway{event: stripe.Event{ID: "evt_1", Type: payments.EventCheckoutSessionCompleted}}
	ingestor := &fakeIngestor{recordErr: errors.New("database down")}
	app := newWebhookTestApp(gateway, ingestor)

	status, body := postWebhook(t, app, `{}`, "t=1,v1=sig")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Webhook processing failed", body["error"])
}
