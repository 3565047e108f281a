package controllers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/veloshop/veloshop/internal/pkg/cart"
	"github.com/veloshop/veloshop/internal/pkg/session"
)

// CartController exposes the session cart over the API. Cart state itself
// lives in the cart package; this layer only keys it by session id and
// round-trips it through the injected persistence.
type CartController struct {
	store     cart.Persistence
	sessionID func(*fiber.Ctx) (string, error)
	validate  *validator.Validate
}

var cartController *CartController

// InitializeCartController wires the cart controller with a persistence
// backend.
func InitializeCartController(store cart.Persistence) {
	cartController = &CartController{
		store:     store,
		sessionID: session.SessionID,
		validate:  validator.New(),
	}
}

type addCartItemRequest struct {
	PriceID    string  `json:"price_id" validate:"required"`
	ProductID  string  `json:"product_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	UnitAmount int64   `json:"unit_amount" validate:"gte=0"`
	Image      *string `json:"image,omitempty"`
}

type updateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// HandleGetCart returns the caller's cart contents and totals.
func HandleGetCart(c *fiber.Ctx) error {
	return cartController.withCart(c, func(*cart.Cart) bool { return false })
}

// HandleAddCartItem adds one unit of a product to the cart.
func HandleAddCartItem(c *fiber.Ctx) error {
	var req addCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := cartController.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price_id, product_id and name are required"})
	}

	return cartController.withCart(c, func(ct *cart.Cart) bool {
		ct.AddItem(cart.Item{
			PriceID:    req.PriceID,
			ProductID:  req.ProductID,
			Name:       req.Name,
			UnitAmount: req.UnitAmount,
			Image:      req.Image,
		})
		return true
	})
}

// HandleUpdateCartItem sets the quantity of a cart line; zero removes it.
func HandleUpdateCartItem(c *fiber.Ctx) error {
	priceID := c.Params("price_id")
	var req updateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	return cartController.withCart(c, func(ct *cart.Cart) bool {
		ct.UpdateQuantity(priceID, req.Quantity)
		return true
	})
}

// HandleRemoveCartItem removes a cart line.
func HandleRemoveCartItem(c *fiber.Ctx) error {
	priceID := c.Params("price_id")
	return cartController.withCart(c, func(ct *cart.Cart) bool {
		ct.RemoveItem(priceID)
		return true
	})
}

// HandleClearCart empties the cart.
func HandleClearCart(c *fiber.Ctx) error {
	return cartController.withCart(c, func(ct *cart.Cart) bool {
		ct.Clear()
		return true
	})
}

// withCart loads the session cart, applies mutate, saves when it reports a
// change and responds with the resulting cart state.
func (ctl *CartController) withCart(c *fiber.Ctx, mutate func(*cart.Cart) bool) error {
	key, err := ctl.sessionID(c)
	if err != nil {
		log.Printf("Failed to resolve cart session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session unavailable"})
	}

	items, err := ctl.store.Load(c.Context(), key)
	if err != nil {
		log.Printf("Failed to load cart %s: %v", key, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Cart unavailable"})
	}

	ct := cart.New(items)
	if mutate(ct) {
		if err := ctl.store.Save(c.Context(), key, ct.Items()); err != nil {
			log.Printf("Failed to save cart %s: %v", key, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Cart unavailable"})
		}
	}

	return c.JSON(fiber.Map{
		"items":      ct.Items(),
		"total":      ct.Total(),
		"item_count": ct.ItemCount(),
	})
}
