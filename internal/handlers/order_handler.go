package handlers

import (
	"errors"
	"fmt"
	"log"

	"boutique/internal/middleware"
	"boutique/internal/models"
	"boutique/internal/repositories"
	"boutique/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandlePlaceOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	// Static report route must be registered before the :id route
	orderRoutes.Get("/report/status", middleware.AdminRequired(), h.HandleStatusReport)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Patch("/:id/accept", middleware.AdminRequired(), h.HandleAcceptOrder)
	orderRoutes.Patch("/:id/reject", middleware.AdminRequired(), h.HandleRejectOrder)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)
}

// PlaceOrderRequest is the request body for order placement. Any
// client-supplied total price is ignored: totals are recomputed server-side.
type PlaceOrderRequest struct {
	Code     string         `json:"code_order"`
	Products map[string]int `json:"products"`
	Address  models.Address `json:"address" validate:"required"`
}

// HandlePlaceOrder creates a new order from the submitted cart.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing order request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	for productID, quantity := range req.Products {
		if quantity < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": fmt.Sprintf("Quantity for product %s must be at least 1", productID),
			})
		}
	}

	result, err := h.service.PlaceOrder(c.Context(), userID, req.Products, req.Address, req.Code)
	if err != nil {
		log.Printf("Error placing order for user %s: %v", userID, err)
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, services.ErrInsufficientStock):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, repositories.ErrDuplicateOrderCode):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Order code already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error while creating the order",
		})
	}

	return c.JSON(fiber.Map{
		"message":    "Order created successfully",
		"orderCode":  result.OrderCode,
		"totalPrice": result.TotalPrice,
	})
}

// HandleGetOrder retrieves a single order enriched with product detail.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	orderID := c.Params("id")

	view, err := h.service.GetOrder(c.Context(), userID, role, orderID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Order not found",
			})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		log.Printf("Error getting order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.JSON(view)
}

// HandleListOrders returns a page of orders; admins see every order, other
// users only their own.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	pageResult, err := h.service.ListOrders(c.Context(), userID, role, page, limit)
	if err != nil {
		log.Printf("Error listing orders for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.JSON(pageResult)
}

// HandleAcceptOrder transitions an order to accepted.
func (h *OrderHandler) HandleAcceptOrder(c *fiber.Ctx) error {
	return h.handleStatusTransition(c, models.OrderStatusAccepted)
}

// HandleRejectOrder transitions an order to rejected.
func (h *OrderHandler) HandleRejectOrder(c *fiber.Ctx) error {
	return h.handleStatusTransition(c, models.OrderStatusRejected)
}

func (h *OrderHandler) handleStatusTransition(c *fiber.Ctx, status string) error {
	orderID := c.Params("id")
	if err := h.service.SetStatus(orderID, status); err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Order not found",
			})
		}
		log.Printf("Error updating order %s to %s: %v", orderID, status, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Error while updating order to %s", status),
		})
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s updated to %s", orderID, status),
	})
}

// HandleDeleteOrder removes an order; only its owner or an admin may.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	orderID := c.Params("id")

	if err := h.service.DeleteOrder(userID, role, orderID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Order not found",
			})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		log.Printf("Error deleting order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error while deleting order",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Order deleted",
	})
}

// HandleStatusReport returns the zero-filled order count per status.
func (h *OrderHandler) HandleStatusReport(c *fiber.Ctx) error {
	report, err := h.service.StatusReport()
	if err != nil {
		log.Printf("Error building order status report: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.JSON(report)
}
