package services

import (
	"context"
	"errors"
	"fmt"

	"mindvibe/internal/cart"
	"mindvibe/internal/models"
	"mindvibe/internal/pricing"
	"mindvibe/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages a visitor's cart through a cart.Store.
type CartService struct {
	store   cart.Store
	outfits repositories.OutfitRepository
	log     *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store cart.Store, outfits repositories.OutfitRepository, log *zap.Logger) *CartService {
	return &CartService{store: store, outfits: outfits, log: log}
}

// CartLine is a cart entry priced at the outfit's current rate.
type CartLine struct {
	Outfit     models.Outfit   `json:"outfit"`
	Quantity   int             `json:"quantity"`
	DailyTotal decimal.Decimal `json:"daily_total"`
}

// CartView is the priced cart shown to the customer.
type CartView struct {
	Lines      []CartLine      `json:"lines"`
	DailyTotal decimal.Decimal `json:"daily_total"`
	Removed    []string        `json:"removed,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}

func (s *CartService) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.store.Load(ctx, sessionID)
}

// Add puts quantity more of an active outfit into the cart.
func (s *CartService) Add(ctx context.Context, sessionID, outfitID string, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}
	outfit, err := s.outfits.GetByID(ctx, outfitID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if !outfit.IsActive {
		return nil, fmt.Errorf("%w: outfit %s is not available", ErrNotFound, outfitID)
	}

	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(outfitID, quantity); err != nil {
		return nil, cartError(err)
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update sets the quantity of an entry already in the cart. Zero removes it.
func (s *CartService) Update(ctx context.Context, sessionID, outfitID string, quantity int) (*cart.Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.Quantity(outfitID) == 0 {
		return nil, fmt.Errorf("%w: outfit %s is not in the cart", ErrNotFound, outfitID)
	}
	if err := c.Set(outfitID, quantity); err != nil {
		return nil, cartError(err)
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove drops an entry. Removing an absent entry is not an error.
func (s *CartService) Remove(ctx context.Context, sessionID, outfitID string) (*cart.Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(outfitID) {
		return c, nil
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// View prices the cart and prunes entries whose outfit vanished or was
// deactivated, saving the pruned cart.
func (s *CartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	outfits, err := s.outfits.GetByIDs(ctx, c.IDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Outfit, len(outfits))
	for _, o := range outfits {
		if o.IsActive {
			byID[o.ID] = o
		}
	}

	view := &CartView{Lines: []CartLine{}, DailyTotal: decimal.Zero}
	removed := c.Retain(func(id string) bool {
		_, ok := byID[id]
		return ok
	})
	if len(removed) > 0 {
		if err := s.store.Save(ctx, sessionID, c); err != nil {
			return nil, err
		}
		view.Removed = removed
		view.Warning = "Some items in your cart are no longer available and were removed."
		s.log.Info("pruned unavailable cart entries", zap.String("session_id", sessionID), zap.Strings("outfit_ids", removed))
	}

	lines := make([]pricing.Line, 0, c.Len())
	for _, e := range c.Entries() {
		o := byID[e.OutfitID]
		line := CartLine{Outfit: o, Quantity: e.Quantity, DailyTotal: pricing.ItemTotal(o.Price, 1, e.Quantity)}
		view.Lines = append(view.Lines, line)
		lines = append(lines, pricing.Line{PricePerDay: o.Price, Quantity: e.Quantity})
	}
	view.DailyTotal = pricing.CartDailyTotal(lines)
	return view, nil
}

func cartError(err error) error {
	if errors.Is(err, cart.ErrInvalidQuantity) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}
