package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"mindvibe/internal/cart"
	"mindvibe/internal/models"
	"mindvibe/internal/pricing"
	"mindvibe/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerInfo is the contact and shipping snapshot stored on an order.
type CustomerInfo struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"required,max=20"`
	Address   string `json:"address" validate:"required"`
}

// CheckoutRequest is everything needed to turn a cart into an order. When
// Cart is nil the cart stored for SessionID is used.
type CheckoutRequest struct {
	UserID    string
	SessionID string
	Customer  CustomerInfo
	Cart      *cart.Cart
	StartDate time.Time
	EndDate   time.Time
}

// CheckoutResult reports the created order and any cart entries that were
// dropped because their outfit is gone or inactive.
type CheckoutResult struct {
	Order   *models.Order `json:"order"`
	Dropped []string      `json:"dropped,omitempty"`
}

// CheckoutService assembles orders from carts.
type CheckoutService struct {
	uow          repositories.UnitOfWork
	outfits      repositories.OutfitRepository
	carts        cart.Store
	availability *AvailabilityService
	publisher    EventPublisher
	shippingCost decimal.Decimal
	clock        func() time.Time
	log          *zap.Logger
}

// CheckoutOption customises a CheckoutService.
type CheckoutOption func(*CheckoutService)

// WithCheckoutClock overrides the time source used to reject past start dates.
func WithCheckoutClock(clock func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.clock = clock }
}

// WithDefaultShippingCost sets the shipping cost given to new orders.
func WithDefaultShippingCost(cost decimal.Decimal) CheckoutOption {
	return func(s *CheckoutService) { s.shippingCost = cost }
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(
	uow repositories.UnitOfWork,
	outfits repositories.OutfitRepository,
	carts cart.Store,
	availability *AvailabilityService,
	publisher EventPublisher,
	log *zap.Logger,
	opts ...CheckoutOption,
) *CheckoutService {
	s := &CheckoutService{
		uow:          uow,
		outfits:      outfits,
		carts:        carts,
		availability: availability,
		publisher:    publisher,
		shippingCost: decimal.Zero,
		clock:        time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckoutService) checkDates(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return start, end, validationError("rental start and end dates are required")
	}
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return start, end, validationError("end date must be on or after start date")
	}
	if start.Before(models.DateOnly(s.clock())) {
		return start, end, validationError("start date cannot be in the past")
	}
	return start, end, nil
}

func checkCustomer(c CustomerInfo) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return validationError("invalid customer fields: %s", strings.Join(fields, ", "))
		}
		return validationError("%v", err)
	}
	return nil
}

func (s *CheckoutService) loadCart(ctx context.Context, req CheckoutRequest) (*cart.Cart, error) {
	if req.Cart != nil {
		return req.Cart.Clone(), nil
	}
	c, err := s.carts.Load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// PlaceOrder validates the request and, in one transaction, locks the cart's
// outfits, re-checks availability, then creates the order and its items. The
// cart is cleared only after the transaction commits. On any failure nothing
// is written and the stored cart is left as it was, except that a cart whose
// every outfit became unavailable is emptied.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := checkCustomer(req.Customer); err != nil {
		return nil, err
	}
	start, end, err := s.checkDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	working, err := s.loadCart(ctx, req)
	if err != nil {
		return nil, err
	}
	if working.IsEmpty() {
		return nil, ErrEmptyCart
	}

	var (
		order   *models.Order
		dropped []string
	)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, repos repositories.TxRepositories) error {
		locked, err := repos.Outfits.LockByIDs(ctx, working.IDs())
		if err != nil {
			return err
		}
		active := make(map[string]models.Outfit, len(locked))
		for _, o := range locked {
			if o.IsActive {
				active[o.ID] = o
			}
		}
		dropped = working.Retain(func(id string) bool {
			_, ok := active[id]
			return ok
		})
		if working.IsEmpty() {
			return ErrEmptyCart
		}

		conflict := &AvailabilityConflictError{}
		for _, e := range working.Entries() {
			ok, err := s.availability.IsAvailableIn(ctx, repos.Orders, e.OutfitID, start, end, e.Quantity, "")
			if err != nil {
				return err
			}
			if !ok {
				conflict.OutfitIDs = append(conflict.OutfitIDs, e.OutfitID)
				conflict.OutfitNames = append(conflict.OutfitNames, active[e.OutfitID].Name)
			}
		}
		if len(conflict.OutfitIDs) > 0 {
			return conflict
		}

		order = &models.Order{
			FirstName:       strings.TrimSpace(req.Customer.FirstName),
			LastName:        strings.TrimSpace(req.Customer.LastName),
			Email:           strings.TrimSpace(req.Customer.Email),
			Phone:           strings.TrimSpace(req.Customer.Phone),
			Address:         strings.TrimSpace(req.Customer.Address),
			RentalStartDate: &start,
			RentalEndDate:   &end,
			ShippingCost:    s.shippingCost,
			Status:          models.OrderPending,
			PaymentMethod:   models.DefaultPaymentMethod,
		}
		if req.UserID != "" {
			uid := req.UserID
			order.UserID = &uid
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, working.Len())
		for _, e := range working.Entries() {
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				OutfitID:    e.OutfitID,
				PricePerDay: active[e.OutfitID].Price,
				Quantity:    e.Quantity,
			})
		}
		if err := repos.Orders.CreateItems(ctx, items); err != nil {
			return err
		}
		order.Items = items
		pricing.Recalculate(order)
		return repos.Orders.Update(ctx, order)
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) && req.Cart == nil && len(dropped) > 0 {
			if saveErr := s.carts.Save(ctx, req.SessionID, working); saveErr != nil {
				s.log.Warn("failed to save pruned cart", zap.String("session_id", req.SessionID), zap.Error(saveErr))
			}
		}
		var conflict *AvailabilityConflictError
		if errors.As(err, &conflict) {
			s.log.Info("checkout rejected, outfits unavailable",
				zap.Strings("outfit_ids", conflict.OutfitIDs),
				zap.String("start", start.Format(models.DateLayout)),
				zap.String("end", end.Format(models.DateLayout)))
		}
		return nil, err
	}

	if err := s.carts.Clear(ctx, req.SessionID); err != nil {
		s.log.Warn("order placed but cart was not cleared", zap.String("order_id", order.ID), zap.Error(err))
	}
	if len(dropped) > 0 {
		s.log.Info("dropped unavailable outfits at checkout", zap.String("order_id", order.ID), zap.Strings("outfit_ids", dropped))
	}
	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	publishEvent(s.publisher, s.log, RoutingOrderCreated, newOrderEvent(order, "", req.UserID, s.clock()))

	return &CheckoutResult{Order: order, Dropped: dropped}, nil
}

// PrecheckResult is the outcome of a non-binding availability check.
type PrecheckResult struct {
	Available      bool            `json:"available"`
	Unavailable    []string        `json:"unavailable,omitempty"`
	Dropped        []string        `json:"dropped,omitempty"`
	DurationDays   int             `json:"duration_days"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
}

// Precheck runs the availability check for every cart entry outside any
// transaction. A positive answer is not a reservation.
func (s *CheckoutService) Precheck(ctx context.Context, sessionID string, startDate, endDate time.Time) (*PrecheckResult, error) {
	start, end, err := s.checkDates(startDate, endDate)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	outfits, err := s.outfits.GetByIDs(ctx, c.IDs())
	if err != nil {
		return nil, err
	}
	active := make(map[string]models.Outfit, len(outfits))
	for _, o := range outfits {
		if o.IsActive {
			active[o.ID] = o
		}
	}

	days := pricing.DurationDays(start, end)
	res := &PrecheckResult{Available: true, DurationDays: days, EstimatedTotal: s.shippingCost}
	for _, e := range c.Entries() {
		o, ok := active[e.OutfitID]
		if !ok {
			res.Dropped = append(res.Dropped, e.OutfitID)
			continue
		}
		free, err := s.availability.IsAvailable(ctx, e.OutfitID, start, end, e.Quantity)
		if err != nil {
			return nil, err
		}
		if !free {
			res.Available = false
			res.Unavailable = append(res.Unavailable, e.OutfitID)
		}
		res.EstimatedTotal = res.EstimatedTotal.Add(pricing.ItemTotal(o.Price, days, e.Quantity))
	}
	if len(res.Dropped) == c.Len() {
		res.Available = false
	}
	return res, nil
}
