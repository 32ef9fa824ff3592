package handlers

import (
	"mindvibe/internal/middleware"
	"mindvibe/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutHandler turns the session cart into an order. Routes must sit
// behind middleware.CartSession and middleware.AuthRequired.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	auth     *services.AuthService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService, auth *services.AuthService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, auth: auth, validate: validator.New(), log: log}
}

func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Get("/prefill", h.HandlePrefill)
	checkoutRoutes.Post("/precheck", h.HandlePrecheck)
	checkoutRoutes.Post("/", h.HandlePlaceOrder)
}

// HandlePrefill suggests customer details from the user's profile.
func (h *CheckoutHandler) HandlePrefill(c *fiber.Ctx) error {
	info, err := h.auth.CheckoutPrefill(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "Could not load profile", err)
	}
	return c.JSON(info)
}

// DateRangeRequest carries a rental period as YYYY-MM-DD strings.
type DateRangeRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (h *CheckoutHandler) HandlePrecheck(c *fiber.Ctx) error {
	var req DateRangeRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	start, end, err := dateRange(req.StartDate, req.EndDate)
	if err != nil {
		return respondError(c, h.log, "Invalid date range", err)
	}
	res, err := h.checkout.Precheck(c.UserContext(), middleware.CartSessionID(c), start, end)
	if err != nil {
		return respondError(c, h.log, "Could not check availability", err)
	}
	return c.JSON(res)
}

// CheckoutRequest is the checkout form.
type CheckoutRequest struct {
	services.CustomerInfo
	DateRangeRequest
}

// HandlePlaceOrder creates a pending order from the session cart.
func (h *CheckoutHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var req CheckoutRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	start, end, err := dateRange(req.StartDate, req.EndDate)
	if err != nil {
		return respondError(c, h.log, "Invalid date range", err)
	}

	res, err := h.checkout.PlaceOrder(c.UserContext(), services.CheckoutRequest{
		UserID:    middleware.UserID(c),
		SessionID: middleware.CartSessionID(c),
		Customer:  req.CustomerInfo,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return respondError(c, h.log, "Could not place order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   res.Order,
		"dropped": res.Dropped,
	})
}
