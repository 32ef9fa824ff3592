package services_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mindvibe/internal/cart"
	"mindvibe/internal/database"
	"mindvibe/internal/models"
	"mindvibe/internal/repositories"
	"mindvibe/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// TestPlaceOrder_ConcurrentCheckoutsOnDatabase races checkouts through the
// GORM unit of work and row locks on a file-backed SQLite database.
func TestPlaceOrder_ConcurrentCheckoutsOnDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "checkout.db") + "?_busy_timeout=10000&_txlock=immediate"
	db, err := database.Initialize("sqlite", dsn, logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	outfits := repositories.NewGORMOutfitRepository(db)
	orders := repositories.NewGORMOrderRepository(db)
	carts := cart.NewMemoryStore()
	availability := services.NewAvailabilityService(orders, services.SingleUnit{})
	checkout := services.NewCheckoutService(repositories.NewGORMUnitOfWork(db), outfits, carts, availability, nil, zap.NewNop(),
		services.WithCheckoutClock(func() time.Time { return fixedNow }))

	const rounds, racers = 5, 4
	start, end := mustDate(t, "2024-06-10"), mustDate(t, "2024-06-12")
	for round := 0; round < rounds; round++ {
		dress := &models.Outfit{Name: fmt.Sprintf("Only One %d", round), Price: decimal.NewFromInt(250), IsActive: true}
		require.NoError(t, outfits.Create(ctx, dress))

		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			session := fmt.Sprintf("r%d-s%d", round, i)
			c, err := cart.New(cart.Entry{OutfitID: dress.ID, Quantity: 1})
			require.NoError(t, err)
			require.NoError(t, carts.Save(ctx, session, c))

			wg.Add(1)
			go func(i int, session string) {
				defer wg.Done()
				_, errs[i] = checkout.PlaceOrder(ctx, services.CheckoutRequest{
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
				t.Fatalf("round %d: unexpected error: %v", round, err)
			}
		}
		assert.Equal(t, 1, succeeded, "round %d", round)
		assert.Equal(t, racers-1, conflicted, "round %d", round)

		booked, err := orders.BookedQuantity(ctx, dress.ID, start, end, "")
		require.NoError(t, err)
		assert.Equal(t, 1, booked, "round %d", round)
	}
}
