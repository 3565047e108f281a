package router

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/veloshop/veloshop/app/controllers"
	"github.com/veloshop/veloshop/app/repository"
	"github.com/veloshop/veloshop/internal/pkg/cache"
	"github.com/veloshop/veloshop/internal/pkg/cart"
	"github.com/veloshop/veloshop/internal/pkg/database"
	"github.com/veloshop/veloshop/internal/pkg/orders"
	"github.com/veloshop/veloshop/internal/pkg/payments"
	"github.com/veloshop/veloshop/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session store (the cart is keyed by session id)
	session.NewSessionStore()

	// shared collaborators
	repository.InitializeFactory(database.GetDB())
	factory := repository.GetGlobalFactory()

	stripeClient := payments.NewClientFromEnv()
	if stripeClient.WebhookSecret() == "" {
		log.Println("STRIPE_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}
	catalog := payments.NewCachedCatalog(stripeClient, 0)

	ingestService := orders.NewServiceFromDB(database.GetDB())
	cartStore := cart.NewRedisPersistence(cache.GetClient(), 0)

	controllers.InitializeStoreController(catalog, factory.GetOrderRepository())
	controllers.InitializeCartController(cartStore)
	controllers.InitializeCheckoutController(stripeClient)
	controllers.InitializeWebhookController(stripeClient, ingestService)
	controllers.InitializeAdminController(factory.GetOrderRepository(), factory.GetCustomerRepository(), catalog)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Storefront pages
	app.Get("/", controllers.HandleIndex)
	app.Get("/checkout/success", controllers.HandleCheckoutSuccess)
	app.Get("/checkout/cancel", controllers.HandleCheckoutCancel)
	app.Get("/orders/:uuid", controllers.HandleOrderDetail)

	// Payment provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/api/webhooks/stripe", controllers.HandleStripeWebhook)
}
