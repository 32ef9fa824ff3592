// Package pricing computes rental totals with fixed-point arithmetic.
package pricing

import (
	"time"

	"mindvibe/internal/models"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DurationDays returns the inclusive number of calendar days between start
// and end, or 0 when end precedes start.
func DurationDays(start, end time.Time) int {
	s, e := models.DateOnly(start), models.DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s)/day) + 1
}

// OrderDurationDays is DurationDays for an order whose range may not be set yet.
func OrderDurationDays(order *models.Order) int {
	if order == nil || order.RentalStartDate == nil || order.RentalEndDate == nil {
		return 0
	}
	return DurationDays(*order.RentalStartDate, *order.RentalEndDate)
}

// ItemTotal is pricePerDay × days × quantity.
func ItemTotal(pricePerDay decimal.Decimal, days, quantity int) decimal.Decimal {
	if days <= 0 || quantity <= 0 {
		return decimal.Zero
	}
	return pricePerDay.Mul(decimal.NewFromInt(int64(days))).Mul(decimal.NewFromInt(int64(quantity)))
}

// ItemsTotal sums every line of the order over its rental duration.
func ItemsTotal(order *models.Order) decimal.Decimal {
	days := OrderDurationDays(order)
	total := decimal.Zero
	if order == nil {
		return total
	}
	for _, item := range order.Items {
		total = total.Add(ItemTotal(item.PricePerDay, days, item.Quantity))
	}
	return total
}

// TotalAmount is the items total plus shipping cost, rounded to cents.
func TotalAmount(order *models.Order) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}
	return ItemsTotal(order).Add(order.ShippingCost).Round(2)
}

// Recalculate recomputes the order total from its current state and stores it.
func Recalculate(order *models.Order) decimal.Decimal {
	order.TotalAmount = TotalAmount(order)
	return order.TotalAmount
}

// Line is a price and quantity pair used for cart previews.
type Line struct {
	PricePerDay decimal.Decimal
	Quantity    int
}

// CartDailyTotal returns the per-day cost of the given lines.
func CartDailyTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(ItemTotal(l.PricePerDay, 1, l.Quantity))
	}
	return total
}
