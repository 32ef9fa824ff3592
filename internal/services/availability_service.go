package services

import (
	"context"
	"fmt"
	"time"

	"mindvibe/internal/models"
	"mindvibe/internal/repositories"
)

// InventoryPolicy decides whether a request fits alongside existing bookings.
type InventoryPolicy interface {
	Allows(booked, requested int) bool
}

// SingleUnit treats every outfit as one physical item: any overlapping
// booking blocks the range regardless of quantity.
type SingleUnit struct{}

func (SingleUnit) Allows(booked, _ int) bool { return booked == 0 }

// LimitedStock allows bookings while the overlapping total stays within N units.
type LimitedStock struct {
	Units int
}

func (p LimitedStock) Allows(booked, requested int) bool { return booked+requested <= p.Units }

// AvailabilityService answers whether an outfit can be rented for a range.
// It does not look at the outfit's active flag and takes no locks.
type AvailabilityService struct {
	orders repositories.OrderRepository
	policy InventoryPolicy
}

// NewAvailabilityService creates a new AvailabilityService. A nil policy
// means SingleUnit.
func NewAvailabilityService(orders repositories.OrderRepository, policy InventoryPolicy) *AvailabilityService {
	if policy == nil {
		policy = SingleUnit{}
	}
	return &AvailabilityService{orders: orders, policy: policy}
}

// IsAvailable checks the outfit against bookings visible outside any transaction.
func (s *AvailabilityService) IsAvailable(ctx context.Context, outfitID string, start, end time.Time, quantity int) (bool, error) {
	return s.IsAvailableIn(ctx, s.orders, outfitID, start, end, quantity, "")
}

// IsAvailableIn runs the check through orders, which may be bound to a
// transaction. excludeOrderID leaves one order's own booking out of the sum.
func (s *AvailabilityService) IsAvailableIn(ctx context.Context, orders repositories.OrderRepository, outfitID string, start, end time.Time, quantity int, excludeOrderID string) (bool, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if start.After(end) || quantity < 1 {
		return false, nil
	}
	booked, err := orders.BookedQuantity(ctx, outfitID, start, end, excludeOrderID)
	if err != nil {
		return false, fmt.Errorf("failed to check availability for outfit %s: %w", outfitID, err)
	}
	return s.policy.Allows(booked, quantity), nil
}
