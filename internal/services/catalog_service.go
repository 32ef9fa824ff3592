package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"mindvibe/internal/models"
	"mindvibe/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	OutfitsPerPage = 12
	FeaturedLimit  = 6
	RelatedLimit   = 4
)

var validate = validator.New()

// CatalogService handles categories and outfits.
type CatalogService struct {
	categories   repositories.CategoryRepository
	outfits      repositories.OutfitRepository
	orders       repositories.OrderRepository
	availability *AvailabilityService
	log          *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	categories repositories.CategoryRepository,
	outfits repositories.OutfitRepository,
	orders repositories.OrderRepository,
	availability *AvailabilityService,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		categories:   categories,
		outfits:      outfits,
		orders:       orders,
		availability: availability,
		log:          log,
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a name into a URL-safe ASCII slug.
func Slugify(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

func (s *CatalogService) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "category"
	}
	slug := base
	for n := 1; ; n++ {
		exists, err := s.categories.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// CreateCategory adds a category. An empty slug is derived from the name.
func (s *CatalogService) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	category := &models.Category{Name: name}
	if err := validate.Struct(category); err != nil {
		return nil, validationError("category name is required")
	}

	base := Slugify(slug)
	if base == "" {
		base = Slugify(name)
	}
	unique, err := s.uniqueSlug(ctx, base)
	if err != nil {
		return nil, err
	}
	category.Slug = unique

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.String("category_id", category.ID), zap.String("slug", category.Slug))
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// DeleteCategory removes a category. Its outfits become uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return mapRepositoryError(s.categories.Delete(ctx, id))
}

// OutfitInput carries the editable fields of an outfit.
type OutfitInput struct {
	CategoryID  *string
	Name        string `validate:"required,max=100"`
	Description string
	Image       string
	Price       decimal.Decimal
	IsActive    bool
}

func (s *CatalogService) checkOutfitInput(ctx context.Context, in *OutfitInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return validationError("outfit name is required and at most 100 characters")
	}
	if in.Price.IsNegative() {
		return validationError("price must not be negative")
	}
	if in.CategoryID != nil && *in.CategoryID == "" {
		in.CategoryID = nil
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return mapRepositoryError(err)
		}
	}
	return nil
}

func (s *CatalogService) CreateOutfit(ctx context.Context, in OutfitInput) (*models.Outfit, error) {
	if err := s.checkOutfitInput(ctx, &in); err != nil {
		return nil, err
	}
	outfit := &models.Outfit{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price.Round(2),
		IsActive:    in.IsActive,
	}
	if err := s.outfits.Create(ctx, outfit); err != nil {
		return nil, err
	}
	s.log.Info("outfit created", zap.String("outfit_id", outfit.ID))
	return outfit, nil
}

// UpdateOutfit replaces the editable fields. Existing orders keep the price
// they were placed at.
func (s *CatalogService) UpdateOutfit(ctx context.Context, id string, in OutfitInput) (*models.Outfit, error) {
	outfit, err := s.outfits.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if err := s.checkOutfitInput(ctx, &in); err != nil {
		return nil, err
	}
	outfit.CategoryID = in.CategoryID
	outfit.Category = nil
	outfit.Name = in.Name
	outfit.Description = in.Description
	if in.Image != "" {
		outfit.Image = in.Image
	}
	outfit.Price = in.Price.Round(2)
	outfit.IsActive = in.IsActive
	if err := s.outfits.Update(ctx, outfit); err != nil {
		return nil, mapRepositoryError(err)
	}
	return outfit, nil
}

// DeleteOutfit hard-deletes an outfit that has never been ordered.
func (s *CatalogService) DeleteOutfit(ctx context.Context, id string) error {
	if _, err := s.outfits.GetByID(ctx, id); err != nil {
		return mapRepositoryError(err)
	}
	count, err := s.orders.CountItemsForOutfit(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: referenced by %d order items, deactivate it instead", ErrOutfitInUse, count)
	}
	return mapRepositoryError(s.outfits.Delete(ctx, id))
}

// OutfitQuery selects a page of the customer catalog.
type OutfitQuery struct {
	Page         int
	CategorySlug string
	Search       string
}

// OutfitPage is one page of active outfits.
type OutfitPage struct {
	Outfits    []models.Outfit  `json:"outfits"`
	Category   *models.Category `json:"category,omitempty"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// ListOutfits returns active outfits, newest first, twelve per page.
func (s *CatalogService) ListOutfits(ctx context.Context, q OutfitQuery) (*OutfitPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	filter := repositories.OutfitFilter{
		ActiveOnly: true,
		Query:      q.Search,
		Limit:      OutfitsPerPage,
		Offset:     (q.Page - 1) * OutfitsPerPage,
	}

	page := &OutfitPage{Page: q.Page, PageSize: OutfitsPerPage}
	if q.CategorySlug != "" {
		category, err := s.categories.GetBySlug(ctx, q.CategorySlug)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
		filter.CategoryID = category.ID
		page.Category = category
	}

	outfits, total, err := s.outfits.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page.Outfits = outfits
	page.Total = total
	page.TotalPages = int((total + OutfitsPerPage - 1) / OutfitsPerPage)
	return page, nil
}

// FeaturedOutfits returns the newest active outfits for the landing page.
func (s *CatalogService) FeaturedOutfits(ctx context.Context) ([]models.Outfit, error) {
	outfits, _, err := s.outfits.List(ctx, repositories.OutfitFilter{ActiveOnly: true, Limit: FeaturedLimit})
	return outfits, err
}

// GetOutfit returns an active outfit with up to four related outfits from
// the same category. Inactive outfits are reported as not found.
func (s *CatalogService) GetOutfit(ctx context.Context, id string) (*models.Outfit, []models.Outfit, error) {
	outfit, err := s.outfits.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepositoryError(err)
	}
	if !outfit.IsActive {
		return nil, nil, fmt.Errorf("%w: outfit %s is not available", ErrNotFound, id)
	}
	related := []models.Outfit{}
	if outfit.CategoryID != nil {
		related, _, err = s.outfits.List(ctx, repositories.OutfitFilter{
			ActiveOnly: true,
			CategoryID: *outfit.CategoryID,
			ExcludeID:  outfit.ID,
			Limit:      RelatedLimit,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return outfit, related, nil
}

// CheckAvailability is the customer-facing pre-check for one outfit.
func (s *CatalogService) CheckAvailability(ctx context.Context, id string, start, end time.Time, quantity int) (bool, error) {
	if _, err := s.outfits.GetByID(ctx, id); err != nil {
		return false, mapRepositoryError(err)
	}
	if models.DateOnly(end).Before(models.DateOnly(start)) {
		return false, validationError("end date must be on or after start date")
	}
	return s.availability.IsAvailable(ctx, id, start, end, quantity)
}
