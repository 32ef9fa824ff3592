package models

import "fmt"

// OrderStatus is the lifecycle state of a rental order.
type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderAwaitingApproval OrderStatus = "awaiting_approval"
	OrderProcessing       OrderStatus = "processing"
	OrderShipped          OrderStatus = "shipped"
	OrderRented           OrderStatus = "rented"
	OrderReturnShipped    OrderStatus = "return_shipped"
	OrderReturnReceived   OrderStatus = "return_received"
	OrderCompleted        OrderStatus = "completed"
	OrderCancelled        OrderStatus = "cancelled"
	OrderFailed           OrderStatus = "failed"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderPending,
	OrderAwaitingApproval,
	OrderProcessing,
	OrderShipped,
	OrderRented,
	OrderReturnShipped,
	OrderReturnReceived,
	OrderCompleted,
	OrderCancelled,
	OrderFailed,
}

// ParseOrderStatus converts raw input into a known status.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the declared statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderAwaitingApproval, OrderProcessing, OrderShipped, OrderRented,
		OrderReturnShipped, OrderReturnReceived, OrderCompleted, OrderCancelled, OrderFailed:
		return true
	}
	return false
}

// HoldsInventory reports whether an order in this status blocks its outfits
// for the rental period.
func (s OrderStatus) HoldsInventory() bool {
	switch s {
	case OrderPending, OrderAwaitingApproval, OrderProcessing, OrderShipped, OrderRented:
		return true
	case OrderReturnShipped, OrderReturnReceived, OrderCompleted, OrderCancelled, OrderFailed:
		return false
	}
	return false
}

// Label is the customer-facing name of the status.
func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Pending Payment"
	case OrderAwaitingApproval:
		return "Awaiting Approval"
	case OrderProcessing:
		return "Processing"
	case OrderShipped:
		return "Shipped"
	case OrderRented:
		return "Rented"
	case OrderReturnShipped:
		return "Return Shipped"
	case OrderReturnReceived:
		return "Return Received"
	case OrderCompleted:
		return "Completed"
	case OrderCancelled:
		return "Cancelled"
	case OrderFailed:
		return "Payment Failed/Invalid"
	}
	return string(s)
}

// HoldingStatusValues returns the raw values of every inventory-holding status,
// suitable for SQL IN clauses.
func HoldingStatusValues() []string {
	values := make([]string, 0, len(AllOrderStatuses))
	for _, s := range AllOrderStatuses {
		if s.HoldsInventory() {
			values = append(values, string(s))
		}
	}
	return values
}
