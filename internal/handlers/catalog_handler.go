package handlers

import (
	"strconv"

	"mindvibe/internal/models"
	"mindvibe/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for categories and outfits.
type CatalogHandler struct {
	catalog  *services.CatalogService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, validate: validator.New(), log: log}
}

// RegisterRoutes registers the public catalog routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/categories", h.HandleListCategories)

	outfits := router.Group("/outfits")
	outfits.Get("/", h.HandleListOutfits)
	outfits.Get("/featured", h.HandleFeatured)
	outfits.Get("/:id", h.HandleGetOutfit)
	outfits.Get("/:id/availability", h.HandleAvailability)
}

// RegisterAdminRoutes registers catalog management routes. The router is
// expected to be staff-only.
func (h *CatalogHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Post("/categories", h.HandleCreateCategory)
	router.Delete("/categories/:id", h.HandleDeleteCategory)
	router.Post("/outfits", h.HandleCreateOutfit)
	router.Put("/outfits/:id", h.HandleUpdateOutfit)
	router.Delete("/outfits/:id", h.HandleDeleteOutfit)
}

func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve categories", err)
	}
	return c.JSON(categories)
}

// HandleListOutfits returns one page of active outfits, optionally filtered
// by ?category=<slug> and ?q=<search>.
func (h *CatalogHandler) HandleListOutfits(c *fiber.Ctx) error {
	page, err := h.catalog.ListOutfits(c.UserContext(), services.OutfitQuery{
		Page:         pageParam(c),
		CategorySlug: c.Query("category"),
		Search:       c.Query("q"),
	})
	if err != nil {
		return respondError(c, h.log, "Could not retrieve outfits", err)
	}
	return c.JSON(page)
}

func (h *CatalogHandler) HandleFeatured(c *fiber.Ctx) error {
	outfits, err := h.catalog.FeaturedOutfits(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve outfits", err)
	}
	return c.JSON(outfits)
}

func (h *CatalogHandler) HandleGetOutfit(c *fiber.Ctx) error {
	outfit, related, err := h.catalog.GetOutfit(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve outfit", err)
	}
	return c.JSON(fiber.Map{
		"outfit":  outfit,
		"related": related,
	})
}

// HandleAvailability answers ?start=YYYY-MM-DD&end=YYYY-MM-DD&quantity=N.
func (h *CatalogHandler) HandleAvailability(c *fiber.Ctx) error {
	start, end, err := dateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return respondError(c, h.log, "Invalid date range", err)
	}
	quantity, err := strconv.Atoi(c.Query("quantity", "1"))
	if err != nil {
		return badRequest(c, "Invalid quantity", err)
	}
	ok, err := h.catalog.CheckAvailability(c.UserContext(), c.Params("id"), start, end, quantity)
	if err != nil {
		return respondError(c, h.log, "Could not check availability", err)
	}
	return c.JSON(fiber.Map{
		"available": ok,
		"start":     start.Format(models.DateLayout),
		"end":       end.Format(models.DateLayout),
	})
}

// CategoryRequest is the body for creating a category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"max=100"`
}

func (h *CatalogHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), req.Name, req.Slug)
	if err != nil {
		return respondError(c, h.log, "Could not create category", err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CatalogHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	if err := h.catalog.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.log, "Could not delete category", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// OutfitRequest is the body for creating or replacing an outfit.
type OutfitRequest struct {
	CategoryID  *string         `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"is_active"`
}

func (r OutfitRequest) input() services.OutfitInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return services.OutfitInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Image:       r.Image,
		Price:       r.Price,
		IsActive:    active,
	}
}

func (h *CatalogHandler) HandleCreateOutfit(c *fiber.Ctx) error {
	var req OutfitRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	outfit, err := h.catalog.CreateOutfit(c.UserContext(), req.input())
	if err != nil {
		return respondError(c, h.log, "Could not create outfit", err)
	}
	return c.Status(fiber.StatusCreated).JSON(outfit)
}

func (h *CatalogHandler) HandleUpdateOutfit(c *fiber.Ctx) error {
	var req OutfitRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	outfit, err := h.catalog.UpdateOutfit(c.UserContext(), c.Params("id"), req.input())
	if err != nil {
		return respondError(c, h.log, "Could not update outfit", err)
	}
	return c.JSON(outfit)
}

func (h *CatalogHandler) HandleDeleteOutfit(c *fiber.Ctx) error {
	if err := h.catalog.DeleteOutfit(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.log, "Could not delete outfit", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
