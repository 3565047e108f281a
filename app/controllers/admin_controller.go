package controllers

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veloshop/veloshop/app/repository"
)

// CatalogInvalidator drops the cached product listing.
type CatalogInvalidator interface {
	Invalidate() error
}

// AdminController serves the operator API: shop stats, recent orders,
// customer order history and catalog cache control. Authentication happens at
// the router (basic auth on the /api/admin group).
type AdminController struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	catalog   CatalogInvalidator
}

var adminController *AdminController

// InitializeAdminController wires the admin controller.
func InitializeAdminController(orders repository.OrderRepository, customers repository.CustomerRepository, catalog CatalogInvalidator) {
	adminController = &AdminController{orders: orders, customers: customers, catalog: catalog}
}

// HandleAdminStats returns shop-wide counters.
func HandleAdminStats(c *fiber.Ctx) error {
	return adminController.stats(c)
}

func (ctl *AdminController) stats(c *fiber.Ctx) error {
	orderCount, err := ctl.orders.Count()
	if err != nil {
		log.Printf("Failed to count orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Stats unavailable"})
	}
	customerCount, err := ctl.customers.Count()
	if err != nil {
		log.Printf("Failed to count customers: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Stats unavailable"})
	}

	return c.JSON(fiber.Map{
		"order_count":    orderCount,
		"customer_count": customerCount,
	})
}

// HandleAdminRecentOrders returns the most recently recorded orders.
func HandleAdminRecentOrders(c *fiber.Ctx) error {
	return adminController.recentOrders(c)
}

func (ctl *AdminController) recentOrders(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orderList, err := ctl.orders.ListRecent(limit)
	if err != nil {
		log.Printf("Failed to list recent orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Orders unavailable"})
	}
	return c.JSON(fiber.Map{"orders": orderList})
}

// HandleAdminCustomerOrders looks a customer up by id or email and returns
// their order history, newest first.
func HandleAdminCustomerOrders(c *fiber.Ctx) error {
	return adminController.customerOrders(c)
}

func (ctl *AdminController) customerOrders(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	idParam := strings.TrimSpace(c.Query("id"))

	var customerID uint
	switch {
	case email != "":
		found, err := ctl.customers.GetByEmail(email)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Customer not found"})
		}
		customerID = found.ID
	case idParam != "":
		id, err := strconv.ParseUint(idParam, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid customer id"})
		}
		found, err := ctl.customers.GetByID(uint(id))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Customer not found"})
		}
		customerID = found.ID
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Provide id or email"})
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	orderList, err := ctl.orders.ListByCustomerID(customerID, offset, limit)
	if err != nil {
		log.Printf("Failed to list orders for customer %d: %v", customerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Orders unavailable"})
	}
	return c.JSON(fiber.Map{"customer_id": customerID, "orders": orderList})
}

// HandleAdminCatalogRefresh drops the cached product listing so the next
// storefront load refetches from the provider.
func HandleAdminCatalogRefresh(c *fiber.Ctx) error {
	return adminController.catalogRefresh(c)
}

func (ctl *AdminController) catalogRefresh(c *fiber.Ctx) error {
	if err := ctl.catalog.Invalidate(); err != nil {
		log.Printf("Failed to invalidate catalog cache: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Cache unavailable"})
	}
	return c.JSON(fiber.Map{"refreshed": true})
}
