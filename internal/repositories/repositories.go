package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindvibe/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("record not found")

func notFound(entity, field, value string) error {
	return fmt.Errorf("%w: %s with %s %s not found", ErrNotFound, entity, field, value)
}

func translate(err error, entity, field, value string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, field, value)
	}
	return fmt.Errorf("failed to get %s by %s %s: %w", entity, field, value, err)
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]models.Category, error)
	// Delete removes the category and detaches its outfits.
	Delete(ctx context.Context, id string) error
}

// OutfitFilter narrows outfit listings. Zero values mean no filter.
type OutfitFilter struct {
	CategoryID string
	Query      string
	ActiveOnly bool
	ExcludeID  string
	Limit      int
	Offset     int
}

// OutfitRepository defines the interface for outfit data access.
type OutfitRepository interface {
	Create(ctx context.Context, outfit *models.Outfit) error
	Update(ctx context.Context, outfit *models.Outfit) error
	GetByID(ctx context.Context, id string) (*models.Outfit, error)
	// GetByIDs returns the outfits that exist; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]models.Outfit, error)
	// LockByIDs is GetByIDs with the rows held for update until the
	// surrounding transaction ends.
	LockByIDs(ctx context.Context, ids []string) ([]models.Outfit, error)
	List(ctx context.Context, filter OutfitFilter) ([]models.Outfit, int64, error)
	Delete(ctx context.Context, id string) error
}

// OrderFilter narrows order listings. Zero values mean no filter.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
	Limit  int
	Offset int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create inserts the order row only. Items are written with CreateItems.
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// Update saves the order columns without touching items.
	Update(ctx context.Context, order *models.Order) error
	// BookedQuantity sums item quantities for outfitID across orders in an
	// inventory-holding status whose range overlaps [start, end] inclusively.
	BookedQuantity(ctx context.Context, outfitID string, start, end time.Time, excludeOrderID string) (int, error)
	CountItemsForOutfit(ctx context.Context, outfitID string) (int64, error)
	// ListStalePendingIDs returns ids of pending orders created before cutoff.
	ListStalePendingIDs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, profile *models.UserProfile) error
}

// TxRepositories are the repositories bound to one transaction.
type TxRepositories struct {
	Outfits OutfitRepository
	Orders  OrderRepository
}

// UnitOfWork runs fn inside a transaction. Any error returned by fn rolls
// back every write made through the supplied repositories.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
