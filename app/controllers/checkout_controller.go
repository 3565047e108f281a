package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/veloshop/veloshop/internal/pkg/env"
	"github.com/veloshop/veloshop/internal/pkg/payments"
)

// CheckoutGateway creates provider-hosted checkout sessions.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, items []payments.CheckoutItem, successURL, cancelURL string) (string, error)
}

// CheckoutController creates checkout sessions for the cart contents.
type CheckoutController struct {
	gateway  CheckoutGateway
	validate *validator.Validate
}

var checkoutController *CheckoutController

// InitializeCheckoutController wires the checkout controller.
func InitializeCheckoutController(gateway CheckoutGateway) {
	checkoutController = &CheckoutController{
		gateway:  gateway,
		validate: validator.New(),
	}
}

type createCheckoutSessionRequest struct {
	Items []payments.CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// HandleCreateCheckoutSession accepts the cart's price/quantity pairs and
// responds with the provider's hosted payment page URL.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	return checkoutController.createCheckoutSession(c)
}

func (ctl *CheckoutController) createCheckoutSession(c *fiber.Ctx) error {
	var req createCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctl.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Items with positive quantities are required"})
	}

	appURL := strings.TrimRight(env.GetEnv("PUBLIC_APP_URL", "http://localhost:4000"), "/")
	successURL := appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := appURL + "/checkout/cancel"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := ctl.gateway.CreateCheckoutSession(ctx, req.Items, successURL, cancelURL)
	if err != nil {
		log.Printf("Error creating checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	return c.JSON(fiber.Map{"url": url})
}
