package services_test

import (
	"errors"
	"sync"
	"testing"

	"mindvibe/internal/cart"
	"mindvibe/internal/models"
	"mindvibe/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_SnapshotsPriceAndClearsCart(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Silk Gown", "500.00", true)
	f.fillCart(t, "s1", cart.Entry{OutfitID: dress.ID, Quantity: 2})

	res, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		UserID:    "u1",
		SessionID: "s1",
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-03"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Dropped)

	order := res.Order
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.DefaultPaymentMethod, order.PaymentMethod)
	assert.True(t, order.BelongsTo("u1"))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("3000.00")), order.TotalAmount.String())

	stored, err := f.orders.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].PricePerDay.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, stored.TotalAmount.Equal(order.TotalAmount))

	// Later price edits do not touch the order.
	dress.Price = decimal.RequireFromString("900.00")
	require.NoError(t, f.outfits.Update(f.ctx, dress))
	stored, err = f.orders.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].PricePerDay.Equal(decimal.RequireFromString("500.00")))

	c, err := f.carts.Load(f.ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, []string{services.RoutingOrderCreated}, f.publisher.routingKeys())
}

func TestPlaceOrder_DropsInactiveOutfit(t *testing.T) {
	f := newFixture(t)
	a := f.addOutfit(t, "Outfit A", "300.00", true)
	b := f.addOutfit(t, "Outfit B", "450.00", true)
	f.fillCart(t, "s1", cart.Entry{OutfitID: a.ID, Quantity: 1}, cart.Entry{OutfitID: b.ID, Quantity: 1})

	b.IsActive = false
	require.NoError(t, f.outfits.Update(f.ctx, b))

	res, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		SessionID: "s1",
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, res.Dropped)

	stored, err := f.orders.GetByID(f.ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, a.ID, stored.Items[0].OutfitID)
	assert.True(t, stored.Items[0].PricePerDay.Equal(decimal.RequireFromString("300.00")))
	assert.Nil(t, stored.UserID)
}

func TestPlaceOrder_AllOutfitsInactive(t *testing.T) {
	f := newFixture(t)
	b := f.addOutfit(t, "Outfit B", "450.00", false)
	f.fillCart(t, "s1", cart.Entry{OutfitID: b.ID, Quantity: 1}, cart.Entry{OutfitID: "vanished", Quantity: 1})

	_, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		SessionID: "s1",
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-02"),
	})
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	c, err := f.carts.Load(f.ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	orders, _ := f.orders.Count()
	assert.Zero(t, orders)
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.addOutfit(t, "A", "100.00", true)
	b := f.addOutfit(t, "B", "200.00", true)
	c := f.addOutfit(t, "C", "300.00", true)

	f.fillCart(t, "s1",
		cart.Entry{OutfitID: a.ID, Quantity: 1},
		cart.Entry{OutfitID: b.ID, Quantity: 1},
		cart.Entry{OutfitID: c.ID, Quantity: 1})

	// Someone else books C for an overlapping range after it was carted.
	f.placeOrder(t, "u2", "2024-06-03", "2024-06-05", cart.Entry{OutfitID: c.ID, Quantity: 1})
	ordersBefore, itemsBefore := f.orders.Count()

	_, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		UserID:    "u1",
		SessionID: "s1",
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-03"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrUnavailable)

	var conflict *services.AvailabilityConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{c.ID}, conflict.OutfitIDs)
	assert.Equal(t, []string{"C"}, conflict.OutfitNames)

	ordersAfter, itemsAfter := f.orders.Count()
	assert.Equal(t, ordersBefore, ordersAfter)
	assert.Equal(t, itemsBefore, itemsAfter)

	kept, err := f.carts.Load(f.ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, kept.Len())
}

func TestPlaceOrder_ConcurrentCheckoutsForSameOutfit(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Only One", "250.00", true)
	f.fillCart(t, "s1", cart.Entry{OutfitID: dress.ID, Quantity: 1})
	f.fillCart(t, "s2", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	start, end := mustDate(t, "2024-06-10"), mustDate(t, "2024-06-12")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, session := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			_, errs[i] = f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
				SessionID: session,
				Customer:  customer(),
				StartDate: start,
				EndDate:   end,
			})
		}(i, session)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, services.ErrUnavailable):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "100.00", true)
	f.fillCart(t, "s1", cart.Entry{OutfitID: dress.ID, Quantity: 1})

	base := services.CheckoutRequest{
		SessionID: "s1",
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-03"),
		EndDate:   mustDate(t, "2024-06-01"),
	}
	_, err := f.checkout.PlaceOrder(f.ctx, base)
	assert.ErrorIs(t, err, services.ErrValidation)

	past := base
	past.StartDate, past.EndDate = mustDate(t, "2024-05-01"), mustDate(t, "2024-05-02")
	_, err = f.checkout.PlaceOrder(f.ctx, past)
	assert.ErrorIs(t, err, services.ErrValidation)

	badEmail := base
	badEmail.EndDate = mustDate(t, "2024-06-04")
	badEmail.Customer.Email = "not-an-email"
	_, err = f.checkout.PlaceOrder(f.ctx, badEmail)
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "email")

	empty := base
	empty.SessionID = "nobody"
	empty.EndDate = mustDate(t, "2024-06-04")
	_, err = f.checkout.PlaceOrder(f.ctx, empty)
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	// Nothing was written and the cart survived.
	orders, _ := f.orders.Count()
	assert.Zero(t, orders)
	kept, err := f.carts.Load(f.ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, kept.Len())
}

func TestPlaceOrder_InjectedCartLeavesStoreAlone(t *testing.T) {
	f := newFixture(t)
	dress := f.addOutfit(t, "Gown", "120.00", true)
	injected, err := cart.New(cart.Entry{OutfitID: dress.ID, Quantity: 1})
	require.NoError(t, err)

	res, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		SessionID: "s9",
		Cart:      injected,
		Customer:  customer(),
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-02"),
	})
	require.NoError(t, err)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("240.00")))
	assert.Equal(t, 1, injected.Len())
}

func TestPrecheck(t *testing.T) {
	f := newFixture(t)
	free := f.addOutfit(t, "Free", "100.00", true)
	booked := f.addOutfit(t, "Booked", "200.00", true)
	gone := f.addOutfit(t, "Gone", "50.00", false)
	f.placeOrder(t, "u2", "2024-06-02", "2024-06-02", cart.Entry{OutfitID: booked.ID, Quantity: 1})

	f.fillCart(t, "s1",
		cart.Entry{OutfitID: free.ID, Quantity: 1},
		cart.Entry{OutfitID: booked.ID, Quantity: 1},
		cart.Entry{OutfitID: gone.ID, Quantity: 1})

	res, err := f.checkout.Precheck(f.ctx, "s1", mustDate(t, "2024-06-01"), mustDate(t, "2024-06-02"))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, []string{booked.ID}, res.Unavailable)
	assert.Equal(t, []string{gone.ID}, res.Dropped)
	assert.Equal(t, 2, res.DurationDays)
	assert.True(t, res.EstimatedTotal.Equal(decimal.RequireFromString("600.00")), res.EstimatedTotal.String())
}
