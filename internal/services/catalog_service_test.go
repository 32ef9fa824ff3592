package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mindvibe/internal/cart"
	"mindvibe/internal/models"
	"mindvibe/internal/repositories"
	"mindvibe/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCategoryRepository is a mock implementation of repositories.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(category)
	if args.Error(0) == nil && category.ID == "" {
		category.ID = "cat-" + category.Slug
	}
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	args := m.Called()
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type catalogFixture struct {
	*fixture
	categories *MockCategoryRepository
	catalog    *services.CatalogService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	f := newFixture(t)
	categories := new(MockCategoryRepository)
	return &catalogFixture{
		fixture:    f,
		categories: categories,
		catalog:    services.NewCatalogService(categories, f.outfits, f.orders, f.availability, zap.NewNop()),
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "evening-wear", services.Slugify("Évening Wear!"))
	assert.Equal(t, "thai-silk-2024", services.Slugify("  Thai   Silk -- 2024 "))
	assert.Equal(t, "", services.Slugify("!!!"))
}

func TestCatalogService_CreateCategory(t *testing.T) {
	f := newCatalogFixture(t)

	f.categories.On("SlugExists", "evening-wear").Return(true, nil).Once()
	f.categories.On("SlugExists", "evening-wear-1").Return(true, nil).Once()
	f.categories.On("SlugExists", "evening-wear-2").Return(false, nil).Once()
	f.categories.On("Create", mock.AnythingOfType("*models.Category")).Return(nil).Once()

	category, err := f.catalog.CreateCategory(f.ctx, "  Evening Wear ", "")
	require.NoError(t, err)
	assert.Equal(t, "Evening Wear", category.Name)
	assert.Equal(t, "evening-wear-2", category.Slug)
	f.categories.AssertExpectations(t)

	_, err = f.catalog.CreateCategory(f.ctx, "   ", "")
	assert.ErrorIs(t, err, services.ErrValidation)

	// An explicit slug wins over the name.
	f.categories.On("SlugExists", "gowns").Return(false, nil).Once()
	f.categories.On("Create", mock.AnythingOfType("*models.Category")).Return(nil).Once()
	category, err = f.catalog.CreateCategory(f.ctx, "Evening Gowns", "Gowns")
	require.NoError(t, err)
	assert.Equal(t, "gowns", category.Slug)
	f.categories.AssertExpectations(t)
}

func TestCatalogService_OutfitCRUD(t *testing.T) {
	f := newCatalogFixture(t)
	categoryID := "cat-1"
	f.categories.On("GetByID", categoryID).Return(&models.Category{ID: categoryID, Name: "Gowns", Slug: "gowns"}, nil)
	f.categories.On("GetByID", "nope").Return(nil, fmt.Errorf("%w: category", repositories.ErrNotFound))

	outfit, err := f.catalog.CreateOutfit(f.ctx, services.OutfitInput{
		CategoryID: &categoryID,
		Name:       "Silk Gown",
		Price:      decimal.RequireFromString("499.999"),
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.True(t, outfit.Price.Equal(decimal.RequireFromString("500.00")))

	missing := "nope"
	_, err = f.catalog.CreateOutfit(f.ctx, services.OutfitInput{CategoryID: &missing, Name: "X", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.catalog.CreateOutfit(f.ctx, services.OutfitInput{Name: "X", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, services.ErrValidation)

	updated, err := f.catalog.UpdateOutfit(f.ctx, outfit.ID, services.OutfitInput{Name: "Silk Gown II", Price: decimal.NewFromInt(650)})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
	assert.False(t, updated.IsActive)

	_, _, err = f.catalog.GetOutfit(f.ctx, outfit.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	require.NoError(t, f.catalog.DeleteOutfit(f.ctx, outfit.ID))
	assert.ErrorIs(t, f.catalog.DeleteOutfit(f.ctx, outfit.ID), services.ErrNotFound)
}

func TestCatalogService_DeleteOutfitInUse(t *testing.T) {
	f := newCatalogFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)
	f.placeOrder(t, "u1", "2024-06-01", "2024-06-02", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	err := f.catalog.DeleteOutfit(f.ctx, dress.ID)
	assert.ErrorIs(t, err, services.ErrOutfitInUse)

	_, err = f.outfits.GetByID(f.ctx, dress.ID)
	assert.NoError(t, err)
}

func TestCatalogService_ListOutfits(t *testing.T) {
	f := newCatalogFixture(t)
	for i := 0; i < 14; i++ {
		f.addOutfit(t, fmt.Sprintf("Outfit %02d", i), "100.00", true)
		time.Sleep(time.Millisecond)
	}
	f.addOutfit(t, "Hidden", "100.00", false)

	first, err := f.catalog.ListOutfits(f.ctx, services.OutfitQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, int64(14), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Len(t, first.Outfits, services.OutfitsPerPage)
	assert.Equal(t, "Outfit 13", first.Outfits[0].Name)

	second, err := f.catalog.ListOutfits(f.ctx, services.OutfitQuery{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Outfits, 2)

	search, err := f.catalog.ListOutfits(f.ctx, services.OutfitQuery{Search: "outfit 07"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), search.Total)

	featured, err := f.catalog.FeaturedOutfits(f.ctx)
	require.NoError(t, err)
	assert.Len(t, featured, services.FeaturedLimit)

	f.categories.On("GetBySlug", "missing").Return(nil, fmt.Errorf("%w: category", repositories.ErrNotFound)).Once()
	_, err = f.catalog.ListOutfits(f.ctx, services.OutfitQuery{CategorySlug: "missing"})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCatalogService_GetOutfitRelated(t *testing.T) {
	f := newCatalogFixture(t)
	gowns, suits := "gowns", "suits"
	add := func(name string, category *string, active bool) *models.Outfit {
		o := &models.Outfit{Name: name, CategoryID: category, Price: decimal.NewFromInt(100), IsActive: active}
		require.NoError(t, f.outfits.Create(f.ctx, o))
		return o
	}
	primary := add("Main", &gowns, true)
	for i := 0; i < 5; i++ {
		add(fmt.Sprintf("Gown %d", i), &gowns, true)
	}
	add("Inactive Gown", &gowns, false)
	add("Suit", &suits, true)

	outfit, related, err := f.catalog.GetOutfit(f.ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, outfit.ID)
	assert.Len(t, related, services.RelatedLimit)
	for _, r := range related {
		assert.NotEqual(t, primary.ID, r.ID)
		assert.True(t, r.IsActive)
		assert.Equal(t, gowns, *r.CategoryID)
	}
}

func TestCatalogService_CheckAvailability(t *testing.T) {
	f := newCatalogFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)
	f.placeOrder(t, "u1", "2024-06-01", "2024-06-03", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	ok, err := f.catalog.CheckAvailability(f.ctx, dress.ID, mustDate(t, "2024-06-03"), mustDate(t, "2024-06-04"), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.catalog.CheckAvailability(f.ctx, dress.ID, mustDate(t, "2024-06-04"), mustDate(t, "2024-06-05"), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.catalog.CheckAvailability(f.ctx, dress.ID, mustDate(t, "2024-06-05"), mustDate(t, "2024-06-04"), 1)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.catalog.CheckAvailability(f.ctx, "missing", mustDate(t, "2024-06-04"), mustDate(t, "2024-06-05"), 1)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
