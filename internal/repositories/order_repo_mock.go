package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"mindvibe/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders  map[string]models.Order
	items   map[string][]models.OrderItem
	outfits *MockOutfitRepository
	mu      sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
// When outfits is not nil, loaded items carry their outfit like the GORM
// repository's preload.
func NewMockOrderRepository(outfits *MockOutfitRepository) *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[string]models.Order),
		items:   make(map[string][]models.OrderItem),
		outfits: outfits,
	}
}

type orderSnapshot struct {
	orders map[string]models.Order
	items  map[string][]models.OrderItem
}

func (r *MockOrderRepository) snapshot() orderSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := orderSnapshot{
		orders: make(map[string]models.Order, len(r.orders)),
		items:  make(map[string][]models.OrderItem, len(r.items)),
	}
	for k, v := range r.orders {
		s.orders[k] = v
	}
	for k, v := range r.items {
		s.items[k] = append([]models.OrderItem(nil), v...)
	}
	return s
}

func (r *MockOrderRepository) restore(s orderSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = s.orders
	r.items = s.items
}

// Count returns the number of stored orders and items.
func (r *MockOrderRepository) Count() (orders, items int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, list := range r.items {
		items += len(list)
	}
	return len(r.orders), items
}

func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *MockOrderRepository) CreateItems(_ context.Context, items []models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range items {
		if _, ok := r.orders[items[i].OrderID]; !ok {
			return notFound("order", "ID", items[i].OrderID)
		}
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		item := items[i]
		item.Outfit = nil
		r.items[item.OrderID] = append(r.items[item.OrderID], item)
	}
	return nil
}

func (r *MockOrderRepository) load(id string) (*models.Order, bool) {
	order, ok := r.orders[id]
	if !ok {
		return nil, false
	}
	order.Items = append([]models.OrderItem(nil), r.items[id]...)
	if r.outfits != nil {
		for i := range order.Items {
			if o, err := r.outfits.GetByID(context.Background(), order.Items[i].OutfitID); err == nil {
				order.Items[i].Outfit = o
			}
		}
	}
	return &order, true
}

func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.load(id)
	if !ok {
		return nil, notFound("order", "ID", id)
	}
	return order, nil
}

func (r *MockOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *MockOrderRepository) List(_ context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Order, 0, len(r.orders))
	for id, o := range r.orders {
		if filter.UserID != "" && !o.BelongsTo(filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		order, _ := r.load(id)
		list = append(list, *order)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})

	total := int64(len(list))
	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(list) {
			start = len(list)
		}
		end := start + filter.Limit
		if end > len(list) {
			end = len(list)
		}
		list = list[start:end]
	}
	return list, total, nil
}

func (r *MockOrderRepository) Update(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return notFound("order", "ID", order.ID)
	}
	order.UpdatedAt = time.Now()
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *MockOrderRepository) BookedQuantity(_ context.Context, outfitID string, start, end time.Time, excludeOrderID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start, end = models.DateOnly(start), models.DateOnly(end)
	booked := 0
	for id, o := range r.orders {
		if id == excludeOrderID || !o.Status.HoldsInventory() {
			continue
		}
		if o.RentalStartDate == nil || o.RentalEndDate == nil {
			continue
		}
		if o.RentalStartDate.After(end) || o.RentalEndDate.Before(start) {
			continue
		}
		for _, item := range r.items[id] {
			if item.OutfitID == outfitID {
				booked += item.Quantity
			}
		}
	}
	return booked, nil
}

func (r *MockOrderRepository) CountItemsForOutfit(_ context.Context, outfitID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, list := range r.items {
		for _, item := range list {
			if item.OutfitID == outfitID {
				count++
			}
		}
	}
	return count, nil
}

func (r *MockOrderRepository) ListStalePendingIDs(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, o := range r.orders {
		if o.Status == models.OrderPending && o.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
