package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veloshop/veloshop/app/models"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	customers map[string]*models.Customer
	orders    map[string]*models.Order
	events    map[string]*models.WebhookEvent

	nextCustomerID uint
	nextOrderID    uint
	nextEventID    uint

	createCustomerErr error
	createOrderErr    error
	customerCreates   int

	// missFirstCustomerGet makes the first lookup report not-found even when
	// the row exists, simulating a concurrent insert between read and write.
	missFirstCustomerGet bool

	lastCtx context.Context
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		customers: map[string]*models.Customer{},
		orders:    map[string]*models.Order{},
		events:    map[string]*models.WebhookEvent{},
	}
}

func (f *fakeRepository) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	f.lastCtx = ctx
	if f.missFirstCustomerGet {
		f.missFirstCustomerGet = false
		return nil, gorm.ErrRecordNotFound
	}
	if c, ok := f.customers[email]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	f.lastCtx = ctx
	f.customerCreates++
	if f.createCustomerErr != nil {
		return f.createCustomerErr
	}
	if _, ok := f.customers[customer.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextCustomerID++
	customer.ID = f.nextCustomerID
	f.customers[customer.Email] = customer
	return nil
}

func (f *fakeRepository) CreateOrderIfNotExists(ctx context.Context, order *models.Order) (bool, *models.Order, error) {
	f.lastCtx = ctx
	if f.createOrderErr != nil {
		return false, nil, f.createOrderErr
	}
	if existing, ok := f.orders[order.StripeCheckoutID]; ok {
		return false, existing, nil
	}
	f.nextOrderID++
	order.ID = f.nextOrderID
	f.orders[order.StripeCheckoutID] = order
	return true, order, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	f.lastCtx = ctx
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	f.lastCtx = ctx
	return nil
}

func validInput() CheckoutCompletedInput {
	pi := "pi_123"
	return CheckoutCompletedInput{
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   &pi,
		CustomerEmail:     "a@example.com",
		CustomerName:      "Ada",
		AmountTotal:       2500,
		Currency:          "usd",
		LineItems: []LineItemInput{
			{PriceID: "price_1", ProductID: "prod_1", ProductName: "Widget", Quantity: 1, PricePerUnit: 2500},
		},
	}
}

func TestIngestCreatesOrderAndCustomer(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	result, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, result.Created)

	assert.Equal(t, "a@example.com", result.Customer.Email)
	require.NotNil(t, result.Customer.Name)
	assert.Equal(t, "Ada", *result.Customer.Name)

	order := result.Order
	assert.Equal(t, "cs_test_1", order.StripeCheckoutID)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(2500), order.TotalAmount)
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, result.Customer.ID, order.CustomerID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(2500), order.Items[0].TotalPrice)
}

func TestIngestReusesExistingCustomer(t *testing.T) {
	repo := newFakeRepository()
	existing := &models.Customer{ID: 7, Email: "a@example.com"}
	repo.customers[existing.Email] = existing
	svc := NewService(repo)

	result, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, uint(7), result.Customer.ID)
	assert.Equal(t, uint(7), result.Order.CustomerID)
	assert.Equal(t, 0, repo.customerCreates, "existing customer must not be re-created")
}

func TestIngestResolvesCustomerCreateRace(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	// A concurrent webhook wins the insert between our lookup and create:
	// the first lookup misses, the create hits the unique constraint, and
	// the re-read must return the winner's row.
	winner := &models.Customer{ID: 3, Email: "a@example.com"}
	repo.customers[winner.Email] = winner
	repo.missFirstCustomerGet = true

	result, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, uint(3), result.Customer.ID)
	assert.Equal(t, 1, repo.customerCreates)
	assert.Equal(t, uint(3), result.Order.CustomerID)
}

func TestIngestRecomputesLineTotals(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	in := validInput()
	in.LineItems = []LineItemInput{
		{PriceID: "price_1", ProductID: "prod_1", ProductName: "Widget", Quantity: 3, PricePerUnit: 1999},
		{PriceID: "price_2", ProductID: "prod_2", ProductName: "Gadget", Quantity: 2, PricePerUnit: 500},
	}

	result, err := svc.IngestCheckoutCompleted(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Order.Items, 2)
	assert.Equal(t, int64(3*1999), result.Order.Items[0].TotalPrice)
	assert.Equal(t, int64(2*500), result.Order.Items[1].TotalPrice)
}

func TestIngestIsIdempotentPerCheckoutSession(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	first, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Len(t, repo.orders, 1)
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CheckoutCompletedInput)
		wantErr error
	}{
		{
			name:    "missing checkout id",
			mutate:  func(in *CheckoutCompletedInput) { in.CheckoutSessionID = "" },
			wantErr: ErrMissingCheckoutID,
		},
		{
			name:    "missing email",
			mutate:  func(in *CheckoutCompletedInput) { in.CustomerEmail = "  " },
			wantErr: ErrMissingEmail,
		},
		{
			name:    "no line items",
			mutate:  func(in *CheckoutCompletedInput) { in.LineItems = nil },
			wantErr: ErrNoLineItems,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			svc := NewService(repo)

			in := validInput()
			tt.mutate(&in)

			_, err := svc.IngestCheckoutCompleted(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Empty(t, repo.orders, "no order may be written on validation failure")
			assert.Empty(t, repo.customers, "no customer may be written on validation failure")
		})
	}
}

func TestIngestAddressesAndName(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	in := validInput()
	in.CustomerName = ""
	in.ShippingAddress = &AddressInput{City: "Berlin", Country: "DE", Line1: "Hauptstr. 1", PostalCode: "10115"}
	in.BillingAddress = nil

	result, err := svc.IngestCheckoutCompleted(context.Background(), in)
	require.NoError(t, err)

	assert.Nil(t, result.Order.CustomerName)
	assert.Nil(t, result.Order.BillingAddress)
	require.NotNil(t, result.Order.ShippingAddress)
	assert.Contains(t, string(result.Order.ShippingAddress), `"city":"Berlin"`)
}

func TestIngestSurfacesPersistenceErrors(t *testing.T) {
	repo := newFakeRepository()
	repo.createOrderErr = errors.New("connection reset")
	svc := NewService(repo)

	_, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist order")
}

func TestIngestSurfacesCustomerCreateErrors(t *testing.T) {
	repo := newFakeRepository()
	repo.createCustomerErr = errors.New("connection reset")
	svc := NewService(repo)

	_, err := svc.IngestCheckoutCompleted(context.Background(), validInput())
	require.Error(t, err)
	assert.Empty(t, repo.orders, "no order may be written when the customer cannot be resolved")
}

type ctxKey string

func TestIngestPropagatesContextToRepository(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	ctx := context.WithValue(context.Background(), ctxKey("delivery"), "evt_1")
	_, err := svc.IngestCheckoutCompleted(ctx, validInput())
	require.NoError(t, err)

	// The handler's deadline must reach every DB call, so the repository has
	// to see the caller's context, not a fresh background one.
	require.NotNil(t, repo.lastCtx)
	assert.Equal(t, "evt_1", repo.lastCtx.Value(ctxKey("delivery")))
}

func TestRecordEvent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	created, stored, err := svc.RecordEvent(context.Background(), "stripe", "evt_1", "checkout.session.completed", "{}")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "stripe", stored.Provider)

	createdAgain, storedAgain, err := svc.RecordEvent(context.Background(), "stripe", "evt_1", "checkout.session.completed", "{}")
	require.NoError(t, err)
	assert.False(t, createdAgain)
	assert.Equal(t, stored.ID, storedAgain.ID)

	_, _, err = svc.RecordEvent(context.Background(), "stripe", "", "x", "{}")
	assert.Error(t, err, "empty event id must be rejected")
}
