package controllers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/veloshop/veloshop/app/repository"
	"github.com/veloshop/veloshop/internal/pkg/payments"
)

// CatalogGateway lists the purchasable products.
type CatalogGateway interface {
	ListProducts(ctx context.Context) ([]payments.CatalogProduct, error)
}

// StoreController renders the storefront pages.
type StoreController struct {
	catalog CatalogGateway
	orders  repository.OrderRepository
}

var storeController *StoreController

// InitializeStoreController wires the store controller.
func InitializeStoreController(catalog CatalogGateway, orders repository.OrderRepository) {
	storeController = &StoreController{catalog: catalog, orders: orders}
}

// productView is a CatalogProduct prepared for page rendering.
type productView struct {
	payments.CatalogProduct
	DisplayPrice string
	Image        string
}

// HandleIndex renders the product listing. A catalog outage degrades to an
// empty product list instead of an error page.
func HandleIndex(c *fiber.Ctx) error {
	return storeController.index(c)
}

func (ctl *StoreController) index(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	catalogProducts, err := ctl.catalog.ListProducts(ctx)
	if err != nil {
		log.Printf("Error fetching products: %v", err)
		catalogProducts = nil
	}

	views := make([]productView, 0, len(catalogProducts))
	for _, p := range catalogProducts {
		view := productView{
			CatalogProduct: p,
			DisplayPrice:   formatAmount(p.UnitAmount, p.Currency),
		}
		if len(p.Images) > 0 {
			view.Image = p.Images[0]
		}
		views = append(views, view)
	}

	return c.Render("index", fiber.Map{
		"Products": views,
	})
}

// HandleCheckoutSuccess renders the post-payment page. The order may not be
// recorded yet when the buyer lands here before the webhook arrives.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	return storeController.checkoutSuccess(c)
}

func (ctl *StoreController) checkoutSuccess(c *fiber.Ctx) error {
	data := fiber.Map{}

	if sessionID := strings.TrimSpace(c.Query("session_id")); sessionID != "" {
		if order, err := ctl.orders.GetByCheckoutID(sessionID); err == nil {
			data["Order"] = order
			data["DisplayTotal"] = formatAmount(order.TotalAmount, order.Currency)
		}
	}

	return c.Render("checkout_success", data)
}

// HandleCheckoutCancel renders the aborted-payment page.
func HandleCheckoutCancel(c *fiber.Ctx) error {
	return c.Render("checkout_cancel", fiber.Map{})
}

// HandleOrderDetail renders a recorded order by its public identifier, the
// link buyers get after checkout.
func HandleOrderDetail(c *fiber.Ctx) error {
	return storeController.orderDetail(c)
}

func (ctl *StoreController) orderDetail(c *fiber.Ctx) error {
	order, err := ctl.orders.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("order", fiber.Map{})
	}

	type itemView struct {
		Name         string
		Quantity     int64
		DisplayPrice string
	}
	items := make([]itemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemView{
			Name:         item.ProductName,
			Quantity:     item.Quantity,
			DisplayPrice: formatAmount(item.TotalPrice, order.Currency),
		})
	}

	return c.Render("order", fiber.Map{
		"Order":        order,
		"Items":        items,
		"DisplayTotal": formatAmount(order.TotalAmount, order.Currency),
	})
}

// formatAmount renders minor-currency units for display, e.g. 2500/"usd"
// becomes "25.00 USD".
func formatAmount(minorUnits int64, currency string) string {
	cur := strings.ToUpper(currency)
	if cur == "" {
		cur = "USD"
	}

	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minorUnits/100, minorUnits%100, cur)
}
