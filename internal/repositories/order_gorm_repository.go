package repositories

import (
	"context"
	"fmt"
	"time"

	"mindvibe/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(items, 100).Error; err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GORMOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMOrderRepository) get(q *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at").Order("id")
	}).Preload("Items.Outfit").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order", "ID", id)
	}
	return &order, nil
}

func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Order("id").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Model(order).Select("*").Omit("Items", "User", "CreatedAt").Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("order", "ID", order.ID)
	}
	return nil
}

func (r *GORMOrderRepository) BookedQuantity(ctx context.Context, outfitID string, start, end time.Time, excludeOrderID string) (int, error) {
	q := r.db.WithContext(ctx).
		Table("order_items").
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.outfit_id = ?", outfitID).
		Where("orders.status IN ?", models.HoldingStatusValues()).
		Where("orders.rental_start_date <= ? AND orders.rental_end_date >= ?", models.DateOnly(end), models.DateOnly(start))
	if excludeOrderID != "" {
		q = q.Where("orders.id <> ?", excludeOrderID)
	}

	var booked int64
	if err := q.Scan(&booked).Error; err != nil {
		return 0, fmt.Errorf("failed to sum booked quantity for outfit %s: %w", outfitID, err)
	}
	return int(booked), nil
}

func (r *GORMOrderRepository) CountItemsForOutfit(ctx context.Context, outfitID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("outfit_id = ?", outfitID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count order items: %w", err)
	}
	return count, nil
}

func (r *GORMOrderRepository) ListStalePendingIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at < ?", models.OrderPending, cutoff).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	return ids, nil
}
