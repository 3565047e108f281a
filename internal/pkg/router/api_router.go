package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/veloshop/veloshop/app/controllers"
	"github.com/veloshop/veloshop/internal/pkg/env"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Session cart
	api.Get("/cart", controllers.HandleGetCart)
	api.Post("/cart/items", controllers.HandleAddCartItem)
	api.Put("/cart/items/:price_id", controllers.HandleUpdateCartItem)
	api.Delete("/cart/items/:price_id", controllers.HandleRemoveCartItem)
	api.Delete("/cart", controllers.HandleClearCart)

	// Checkout
	api.Post("/checkout/session", controllers.HandleCreateCheckoutSession)

	h.registerAdminRoutes(app)
}

// registerAdminRoutes mounts the operator API behind basic auth. Without
// credentials configured the whole surface stays off.
func (h ApiRouter) registerAdminRoutes(app *fiber.App) {
	user := env.GetEnv("ADMIN_USER", "")
	password := env.GetEnv("ADMIN_PASSWORD", "")
	if user == "" || password == "" {
		log.Println("ADMIN_USER/ADMIN_PASSWORD not set; admin API disabled")
		return
	}

	admin := app.Group("/api/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{user: password},
	}))
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/orders", controllers.HandleAdminRecentOrders)
	admin.Get("/customers", controllers.HandleAdminCustomerOrders)
	admin.Post("/catalog/refresh", controllers.HandleAdminCatalogRefresh)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
