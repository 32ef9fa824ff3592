package handlers

import (
	"mindvibe/internal/cart"
	"mindvibe/internal/middleware"
	"mindvibe/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles the session cart. Routes must sit behind
// middleware.CartSession.
type CartHandler struct {
	carts    *services.CartService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, validate: validator.New(), log: log}
}

func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleView)
	cartRoutes.Post("/items", h.HandleAdd)
	cartRoutes.Put("/items/:id", h.HandleUpdate)
	cartRoutes.Delete("/items/:id", h.HandleRemove)
}

func (h *CartHandler) HandleView(c *fiber.Ctx) error {
	view, err := h.carts.View(c.UserContext(), middleware.CartSessionID(c))
	if err != nil {
		return respondError(c, h.log, "Could not load cart", err)
	}
	return c.JSON(view)
}

// AddItemRequest is the body for adding an outfit to the cart.
type AddItemRequest struct {
	OutfitID string `json:"outfit_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	req := AddItemRequest{Quantity: 1}
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	updated, err := h.carts.Add(c.UserContext(), middleware.CartSessionID(c), req.OutfitID, req.Quantity)
	if err != nil {
		return respondError(c, h.log, "Could not add to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(cartBody(updated))
}

// UpdateItemRequest sets an entry's quantity. Zero removes the entry.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	updated, err := h.carts.Update(c.UserContext(), middleware.CartSessionID(c), c.Params("id"), req.Quantity)
	if err != nil {
		return respondError(c, h.log, "Could not update cart", err)
	}
	return c.JSON(cartBody(updated))
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	updated, err := h.carts.Remove(c.UserContext(), middleware.CartSessionID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not update cart", err)
	}
	return c.JSON(cartBody(updated))
}

func cartBody(c *cart.Cart) fiber.Map {
	return fiber.Map{
		"items": c.Entries(),
		"count": c.Len(),
	}
}
