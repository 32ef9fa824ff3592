package repositories

import (
	"context"
	"fmt"
	"strings"

	"mindvibe/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOutfitRepository is a GORM implementation of OutfitRepository.
type GORMOutfitRepository struct {
	db *gorm.DB
}

// NewGORMOutfitRepository creates a new instance of GORMOutfitRepository.
func NewGORMOutfitRepository(db *gorm.DB) *GORMOutfitRepository {
	return &GORMOutfitRepository{db: db}
}

// Create creates a new outfit in the database.
func (r *GORMOutfitRepository) Create(ctx context.Context, outfit *models.Outfit) error {
	if outfit.ID == "" {
		outfit.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(outfit).Error; err != nil {
		return fmt.Errorf("failed to create outfit: %w", err)
	}
	return nil
}

// Update updates an existing outfit in the database.
func (r *GORMOutfitRepository) Update(ctx context.Context, outfit *models.Outfit) error {
	// Select("*") writes zero values such as IsActive=false.
	res := r.db.WithContext(ctx).Model(outfit).Select("*").Omit("Category", "CreatedAt").Updates(outfit)
	if res.Error != nil {
		return fmt.Errorf("failed to update outfit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("outfit", "ID", outfit.ID)
	}
	return nil
}

// GetByID retrieves a single outfit with its category.
func (r *GORMOutfitRepository) GetByID(ctx context.Context, id string) (*models.Outfit, error) {
	var outfit models.Outfit
	if err := r.db.WithContext(ctx).Preload("Category").First(&outfit, "id = ?", id).Error; err != nil {
		return nil, translate(err, "outfit", "ID", id)
	}
	return &outfit, nil
}

func (r *GORMOutfitRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Outfit, error) {
	return r.findByIDs(r.db.WithContext(ctx), ids)
}

func (r *GORMOutfitRepository) LockByIDs(ctx context.Context, ids []string) ([]models.Outfit, error) {
	return r.findByIDs(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ids)
}

func (r *GORMOutfitRepository) findByIDs(q *gorm.DB, ids []string) ([]models.Outfit, error) {
	var outfits []models.Outfit
	if len(ids) == 0 {
		return outfits, nil
	}
	// Stable lock order keeps concurrent checkouts from deadlocking.
	if err := q.Where("id IN ?", ids).Order("id").Find(&outfits).Error; err != nil {
		return nil, fmt.Errorf("failed to get outfits: %w", err)
	}
	return outfits, nil
}

// List returns one page of outfits matching filter along with the total count.
func (r *GORMOutfitRepository) List(ctx context.Context, filter OutfitFilter) ([]models.Outfit, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Outfit{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.ExcludeID != "" {
		q = q.Where("id <> ?", filter.ExcludeID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count outfits: %w", err)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	var outfits []models.Outfit
	if err := q.Preload("Category").Order("created_at DESC").Order("id").Find(&outfits).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list outfits: %w", err)
	}
	return outfits, total, nil
}

// Delete deletes an outfit by its ID from the database.
func (r *GORMOutfitRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Outfit{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete outfit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("outfit", "ID", id)
	}
	return nil
}
