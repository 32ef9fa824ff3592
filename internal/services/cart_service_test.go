package services_test

import (
	"testing"

	"mindvibe/internal/cart"
	"mindvibe/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCartService_AddUpdateRemove(t *testing.T) {
	f := newFixture(t)
	svc := services.NewCartService(f.carts, f.outfits, zap.NewNop())
	dress := f.addOutfit(t, "Gown", "500.00", true)
	hidden := f.addOutfit(t, "Hidden", "100.00", false)

	c, err := svc.Add(f.ctx, "s1", dress.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Quantity(dress.ID))

	c, err = svc.Add(f.ctx, "s1", dress.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity(dress.ID))

	_, err = svc.Add(f.ctx, "s1", hidden.ID, 1)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.Add(f.ctx, "s1", "missing", 1)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.Add(f.ctx, "s1", dress.ID, 0)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.Update(f.ctx, "s1", hidden.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.Update(f.ctx, "s1", dress.ID, -1)
	assert.ErrorIs(t, err, services.ErrValidation)

	c, err = svc.Update(f.ctx, "s1", dress.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Quantity(dress.ID))

	c, err = svc.Remove(f.ctx, "s1", dress.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	c, err = svc.Remove(f.ctx, "s1", dress.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCartService_ViewPrunesUnavailable(t *testing.T) {
	f := newFixture(t)
	svc := services.NewCartService(f.carts, f.outfits, zap.NewNop())
	a := f.addOutfit(t, "A", "300.00", true)
	b := f.addOutfit(t, "B", "120.50", true)
	f.fillCart(t, "s1",
		cart.Entry{OutfitID: a.ID, Quantity: 2},
		cart.Entry{OutfitID: b.ID, Quantity: 1},
		cart.Entry{OutfitID: "vanished", Quantity: 1})

	b.IsActive = false
	require.NoError(t, f.outfits.Update(f.ctx, b))

	view, err := svc.View(f.ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, a.ID, view.Lines[0].Outfit.ID)
	assert.True(t, view.DailyTotal.Equal(decimal.RequireFromString("600.00")), view.DailyTotal.String())
	assert.ElementsMatch(t, []string{b.ID, "vanished"}, view.Removed)
	assert.NotEmpty(t, view.Warning)

	stored, err := f.carts.Load(f.ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, stored.IDs())

	again, err := svc.View(f.ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Removed)
	assert.Empty(t, again.Warning)
}
