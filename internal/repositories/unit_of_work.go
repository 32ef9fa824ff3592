package repositories

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// GORMUnitOfWork runs work inside a database transaction.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new instance of GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

func (u *GORMUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, TxRepositories{
			Outfits: NewGORMOutfitRepository(tx),
			Orders:  NewGORMOrderRepository(tx),
		})
	})
}

// MockUnitOfWork serialises transactions over the in-memory repositories
// and restores the order store when fn fails.
type MockUnitOfWork struct {
	Outfits *MockOutfitRepository
	Orders  *MockOrderRepository
	mu      sync.Mutex
}

// NewMockUnitOfWork creates a MockUnitOfWork over the given repositories.
func NewMockUnitOfWork(outfits *MockOutfitRepository, orders *MockOrderRepository) *MockUnitOfWork {
	return &MockUnitOfWork{Outfits: outfits, Orders: orders}
}

func (u *MockUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := u.Orders.snapshot()
	if err := fn(ctx, TxRepositories{Outfits: u.Outfits, Orders: u.Orders}); err != nil {
		u.Orders.restore(snapshot)
		return err
	}
	return nil
}
