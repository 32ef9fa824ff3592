package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mindvibe/internal/models"

	"github.com/google/uuid"
)

// MockOutfitRepository is an in-memory implementation of OutfitRepository.
type MockOutfitRepository struct {
	outfits map[string]models.Outfit
	mu      sync.RWMutex
}

// NewMockOutfitRepository creates a new instance of MockOutfitRepository.
func NewMockOutfitRepository() *MockOutfitRepository {
	return &MockOutfitRepository{
		outfits: make(map[string]models.Outfit),
	}
}

func (r *MockOutfitRepository) Create(_ context.Context, outfit *models.Outfit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if outfit.ID == "" {
		outfit.ID = uuid.New().String()
	}
	now := time.Now()
	outfit.CreatedAt, outfit.UpdatedAt = now, now
	r.outfits[outfit.ID] = *outfit
	return nil
}

func (r *MockOutfitRepository) Update(_ context.Context, outfit *models.Outfit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outfits[outfit.ID]; !ok {
		return notFound("outfit", "ID", outfit.ID)
	}
	outfit.UpdatedAt = time.Now()
	r.outfits[outfit.ID] = *outfit
	return nil
}

func (r *MockOutfitRepository) GetByID(_ context.Context, id string) (*models.Outfit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outfit, ok := r.outfits[id]
	if !ok {
		return nil, notFound("outfit", "ID", id)
	}
	return &outfit, nil
}

func (r *MockOutfitRepository) GetByIDs(_ context.Context, ids []string) ([]models.Outfit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outfits := make([]models.Outfit, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.outfits[id]; ok {
			outfits = append(outfits, o)
		}
	}
	sort.Slice(outfits, func(i, j int) bool { return outfits[i].ID < outfits[j].ID })
	return outfits, nil
}

func (r *MockOutfitRepository) LockByIDs(ctx context.Context, ids []string) ([]models.Outfit, error) {
	return r.GetByIDs(ctx, ids)
}

func (r *MockOutfitRepository) List(_ context.Context, filter OutfitFilter) ([]models.Outfit, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]models.Outfit, 0, len(r.outfits))
	for _, o := range r.outfits {
		if filter.ActiveOnly && !o.IsActive {
			continue
		}
		if filter.CategoryID != "" && (o.CategoryID == nil || *o.CategoryID != filter.CategoryID) {
			continue
		}
		if filter.ExcludeID != "" && o.ID == filter.ExcludeID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(o.Name), term) && !strings.Contains(strings.ToLower(o.Description), term) {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *MockOutfitRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outfits[id]; !ok {
		return notFound("outfit", "ID", id)
	}
	delete(r.outfits, id)
	return nil
}
