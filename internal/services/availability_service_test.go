package services_test

import (
	"testing"

	"mindvibe/internal/cart"
	"mindvibe/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailability_OverlapBoundaries(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)
	f.placeOrder(t, "u1", "2024-06-05", "2024-06-07", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"ends the day before", "2024-06-01", "2024-06-04", true},
		{"ends on first day", "2024-06-01", "2024-06-05", false},
		{"starts on last day", "2024-06-07", "2024-06-09", false},
		{"starts the day after", "2024-06-08", "2024-06-09", true},
		{"inside", "2024-06-06", "2024-06-06", false},
		{"covers", "2024-06-01", "2024-06-30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.availability.IsAvailable(f.ctx, dress.ID, mustDate(t, tt.start), mustDate(t, tt.end), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAvailability_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)

	ok, err := f.availability.IsAvailable(f.ctx, dress.ID, mustDate(t, "2024-06-03"), mustDate(t, "2024-06-01"), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.availability.IsAvailable(f.ctx, dress.ID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-03"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Inactive outfits are not the availability check's concern.
	hidden := f.addOutfit(t, "Hidden", "100.00", false)
	ok, err = f.availability.IsAvailable(f.ctx, hidden.ID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-03"), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailability_ReleasedByNonHoldingStatuses(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)
	order := f.awaitingApproval(t, "u1", "2024-06-01", "2024-06-03", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	start, end := mustDate(t, "2024-06-02"), mustDate(t, "2024-06-02")
	ok, err := f.availability.IsAvailable(f.ctx, dress.ID, start, end, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.orderSvc.RejectPayment(f.ctx, "admin", order.ID, "")
	require.NoError(t, err)
	ok, err = f.availability.IsAvailable(f.ctx, dress.ID, start, end, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailability_LimitedStock(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "500.00", true)
	f.placeOrder(t, "u1", "2024-06-01", "2024-06-03", cart.Entry{OutfitID: dress.ID, Quantity: 2})

	stock := services.NewAvailabilityService(f.orders, services.LimitedStock{Units: 3})
	start, end := mustDate(t, "2024-06-02"), mustDate(t, "2024-06-04")

	ok, err := stock.IsAvailable(f.ctx, dress.ID, start, end, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = stock.IsAvailable(f.ctx, dress.ID, start, end, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventoryPolicies(t *testing.T) {
	assert.True(t, services.SingleUnit{}.Allows(0, 5))
	assert.False(t, services.SingleUnit{}.Allows(1, 1))
	assert.True(t, services.LimitedStock{Units: 2}.Allows(1, 1))
	assert.False(t, services.LimitedStock{Units: 2}.Allows(2, 1))
}
