package services

import (
	"fmt"
	"time"

	"mindvibe/internal/models"
)

var orderStateTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:          {models.OrderAwaitingApproval, models.OrderProcessing, models.OrderCancelled},
	models.OrderFailed:           {models.OrderAwaitingApproval, models.OrderProcessing, models.OrderCancelled},
	models.OrderAwaitingApproval: {models.OrderProcessing, models.OrderFailed, models.OrderCancelled},
	models.OrderProcessing:       {models.OrderShipped},
	models.OrderShipped:          {models.OrderRented, models.OrderReturnShipped},
	models.OrderRented:           {models.OrderReturnShipped},
	models.OrderReturnShipped:    {models.OrderReturnReceived},
	models.OrderReturnReceived:   {models.OrderCompleted},
}

// CanTransition reports whether the lifecycle allows moving from current to target.
func CanTransition(current, target models.OrderStatus) bool {
	for _, next := range orderStateTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from current.
func NextStatuses(current models.OrderStatus) []models.OrderStatus {
	out := make([]models.OrderStatus, len(orderStateTransitions[current]))
	copy(out, orderStateTransitions[current])
	return out
}

// IsTerminal reports whether no further transitions exist.
func IsTerminal(s models.OrderStatus) bool {
	switch s {
	case models.OrderCompleted, models.OrderCancelled:
		return true
	case models.OrderPending, models.OrderAwaitingApproval, models.OrderProcessing, models.OrderShipped,
		models.OrderRented, models.OrderReturnShipped, models.OrderReturnReceived, models.OrderFailed:
		return false
	}
	return false
}

func applyStatusTransition(order *models.Order, target models.OrderStatus, now time.Time) (models.OrderStatus, error) {
	current := order.Status
	if !CanTransition(current, target) {
		return current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	order.Status = target
	order.UpdatedAt = now
	updateTimestamps(order, target, now)
	return current, nil
}

func updateTimestamps(order *models.Order, status models.OrderStatus, now time.Time) {
	if status == models.OrderReturnShipped && order.ReturnInitiatedAt == nil {
		order.ReturnInitiatedAt = &now
	}
}
