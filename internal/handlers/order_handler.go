package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mindvibe/internal/middleware"
	"mindvibe/internal/models"
	"mindvibe/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paymentSlipDir = "payment_slips"
	returnSlipDir  = "return_slips"
)

// paymentTimeLayouts are accepted for the reported transfer time.
var paymentTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	media    *MediaStore
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, media *MediaStore, log *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, media: media, validate: validator.New(), log: log}
}

// RegisterRoutes registers the customer order routes. The router must
// require authentication.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/payment", h.HandleSubmitPayment)
	orderRoutes.Post("/:id/return", h.HandleSubmitReturn)
	orderRoutes.Post("/:id/cancel", h.HandleCancel)
}

// RegisterAdminRoutes registers operator order routes. The router must be
// staff-only.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleAdminList)
	orderRoutes.Post("/bulk/approve", h.HandleBulk(h.service.BulkApprove))
	orderRoutes.Post("/bulk/ship", h.HandleBulk(h.service.BulkShip))
	orderRoutes.Post("/bulk/return-received", h.HandleBulk(h.service.BulkReturnReceived))
	orderRoutes.Post("/bulk/reject", h.HandleBulkReject)
	orderRoutes.Get("/:id", h.HandleAdminGet)
	orderRoutes.Post("/:id/approve", h.HandleApprove)
	orderRoutes.Post("/:id/reject", h.HandleReject)
	orderRoutes.Post("/:id/ship", h.HandleShip)
	orderRoutes.Post("/:id/rented", h.HandleTransition(h.service.MarkRented))
	orderRoutes.Post("/:id/return-received", h.HandleTransition(h.service.MarkReturnReceived))
	orderRoutes.Post("/:id/complete", h.HandleTransition(h.service.Complete))
	orderRoutes.Post("/:id/cancel", h.HandleAdminCancel)
	orderRoutes.Post("/:id/shipping-cost", h.HandleShippingCost)
}

func orderView(order *models.Order) fiber.Map {
	return fiber.Map{
		"order":         order,
		"status_label":  order.Status.Label(),
		"next_statuses": services.NextStatuses(order.Status),
	}
}

// ---- customer ----

// HandleGetOrders lists the authenticated user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, total, err := h.service.ListForUser(c.UserContext(), middleware.UserID(c), pageParam(c))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{"orders": orders, "total": total, "page": pageParam(c)})
}

// HandleGetOrderByID retrieves a single order owned by the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetForUser(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, fmt.Sprintf("Order with ID %s not found", c.Params("id")), err)
	}
	return c.JSON(orderView(order))
}

func parsePaymentTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range paymentTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: payment_datetime must look like 2006-01-02T15:04", services.ErrValidation)
}

// HandleSubmitPayment takes multipart payment_datetime and payment_slip.
func (h *OrderHandler) HandleSubmitPayment(c *fiber.Ctx) error {
	paidAt, err := parsePaymentTime(c.FormValue("payment_datetime"))
	if err != nil {
		return respondError(c, h.log, "Invalid payment details", err)
	}
	// Check ownership and status before writing the upload to disk.
	existing, err := h.service.GetForUser(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not submit payment", err)
	}
	if existing.Status != models.OrderPending && existing.Status != models.OrderFailed {
		return respondError(c, h.log, "Could not submit payment",
			fmt.Errorf("%w: payment cannot be submitted while order is %s", services.ErrInvalidTransition, existing.Status))
	}
	slip, err := h.media.Save(c, "payment_slip", paymentSlipDir)
	if err != nil {
		return respondError(c, h.log, "Invalid payment details", err)
	}

	order, err := h.service.SubmitPayment(c.UserContext(), middleware.UserID(c), c.Params("id"), services.PaymentSubmission{
		PaidAt:   paidAt,
		SlipPath: slip,
	})
	if err != nil {
		h.discardUpload(slip)
		return respondError(c, h.log, "Could not submit payment", err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment submitted, awaiting approval",
		"order":   order,
	})
}

// HandleSubmitReturn takes multipart tracking_number and return_slip.
func (h *OrderHandler) HandleSubmitReturn(c *fiber.Ctx) error {
	tracking := strings.TrimSpace(c.FormValue("tracking_number"))
	if tracking == "" {
		return respondError(c, h.log, "Invalid return details",
			fmt.Errorf("%w: tracking_number is required", services.ErrValidation))
	}
	existing, err := h.service.GetForUser(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not submit return", err)
	}
	if existing.HasReturnInfo() {
		return respondError(c, h.log, "Could not submit return",
			fmt.Errorf("%w: return details were already submitted", services.ErrInvalidTransition))
	}
	slip, err := h.media.Save(c, "return_slip", returnSlipDir)
	if err != nil {
		return respondError(c, h.log, "Invalid return details", err)
	}

	order, err := h.service.SubmitReturn(c.UserContext(), middleware.UserID(c), c.Params("id"), services.ReturnSubmission{
		TrackingNumber: tracking,
		SlipPath:       slip,
	})
	if err != nil {
		h.discardUpload(slip)
		return respondError(c, h.log, "Could not submit return", err)
	}
	return c.JSON(fiber.Map{
		"message": "Return submitted",
		"order":   order,
	})
}

// discardUpload removes a slip the order did not accept.
func (h *OrderHandler) discardUpload(rel string) {
	if err := h.media.Remove(rel); err != nil {
		h.log.Warn("failed to remove rejected upload", zap.String("path", rel), zap.Error(err))
	}
}

func (h *OrderHandler) HandleCancel(c *fiber.Ctx) error {
	order, err := h.service.CancelOwn(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not cancel order", err)
	}
	return c.JSON(fiber.Map{"message": "Order cancelled", "order": order})
}

// ---- operator ----

// HandleAdminList lists all orders, optionally filtered by ?status=.
func (h *OrderHandler) HandleAdminList(c *fiber.Ctx) error {
	var status models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseOrderStatus(raw)
		if err != nil {
			return badRequest(c, "Invalid status filter", err)
		}
		status = parsed
	}
	orders, total, err := h.service.List(c.UserContext(), status, pageParam(c))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{"orders": orders, "total": total, "page": pageParam(c)})
}

func (h *OrderHandler) HandleAdminGet(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve order", err)
	}
	return c.JSON(orderView(order))
}

func (h *OrderHandler) HandleApprove(c *fiber.Ctx) error {
	order, err := h.service.ApprovePayment(c.UserContext(), middleware.Username(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not approve payment", err)
	}
	return c.JSON(orderView(order))
}

// ReasonRequest carries an optional operator note.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *OrderHandler) HandleReject(c *fiber.Ctx) error {
	var req ReasonRequest
	if ok, err := parseOptionalBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.RejectPayment(c.UserContext(), middleware.Username(c), c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, h.log, "Could not reject payment", err)
	}
	return c.JSON(orderView(order))
}

// ShipRequest carries the optional courier tracking number.
type ShipRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
}

func (h *OrderHandler) HandleShip(c *fiber.Ctx) error {
	var req ShipRequest
	if ok, err := parseOptionalBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.MarkShipped(c.UserContext(), middleware.Username(c), c.Params("id"), req.TrackingNumber)
	if err != nil {
		return respondError(c, h.log, "Could not mark order shipped", err)
	}
	return c.JSON(orderView(order))
}

// HandleTransition wraps an operator action that needs no input.
func (h *OrderHandler) HandleTransition(op func(ctx context.Context, actor, orderID string) (*models.Order, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := op(c.UserContext(), middleware.Username(c), c.Params("id"))
		if err != nil {
			return respondError(c, h.log, "Could not update order", err)
		}
		return c.JSON(orderView(order))
	}
}

func (h *OrderHandler) HandleAdminCancel(c *fiber.Ctx) error {
	var req ReasonRequest
	if ok, err := parseOptionalBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.Cancel(c.UserContext(), middleware.Username(c), c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, h.log, "Could not cancel order", err)
	}
	return c.JSON(orderView(order))
}

// ShippingCostRequest sets the shipping cost of an unpaid order.
type ShippingCostRequest struct {
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

func (h *OrderHandler) HandleShippingCost(c *fiber.Ctx) error {
	var req ShippingCostRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.SetShippingCost(c.UserContext(), middleware.Username(c), c.Params("id"), req.ShippingCost)
	if err != nil {
		return respondError(c, h.log, "Could not set shipping cost", err)
	}
	return c.JSON(orderView(order))
}

// BulkRequest names the orders a bulk action applies to.
type BulkRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Reason string   `json:"reason" validate:"max=500"`
}

// HandleBulk wraps a bulk operator action.
func (h *OrderHandler) HandleBulk(op func(ctx context.Context, actor string, ids []string) (services.BulkResult, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req BulkRequest
		if ok, err := parseBody(c, h.validate, &req); !ok {
			return err
		}
		res, err := op(c.UserContext(), middleware.Username(c), req.IDs)
		return h.bulkResponse(c, res, err)
	}
}

func (h *OrderHandler) HandleBulkReject(c *fiber.Ctx) error {
	var req BulkRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	res, err := h.service.BulkReject(c.UserContext(), middleware.Username(c), req.IDs, req.Reason)
	return h.bulkResponse(c, res, err)
}

// bulkResponse always reports the rows already committed, even when the
// batch was cut short.
func (h *OrderHandler) bulkResponse(c *fiber.Ctx, res services.BulkResult, err error) error {
	if err != nil {
		h.log.Warn("bulk update interrupted", zap.Int("updated", res.Updated), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Bulk update interrupted",
			"error":   err.Error(),
			"result":  res,
		})
	}
	return c.JSON(res)
}
