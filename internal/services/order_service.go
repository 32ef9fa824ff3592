package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindvibe/internal/models"
	"mindvibe/internal/pricing"
	"mindvibe/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	OrdersPerPage = 20

	noteTimeLayout = "2006-01-02 15:04"
	systemActor    = "system"
)

// OrderService drives orders through their lifecycle. Every mutation runs
// in its own transaction with the order row locked.
type OrderService struct {
	uow          repositories.UnitOfWork
	orders       repositories.OrderRepository
	availability *AvailabilityService
	publisher    EventPublisher
	clock        func() time.Time
	log          *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	uow repositories.UnitOfWork,
	orders repositories.OrderRepository,
	availability *AvailabilityService,
	publisher EventPublisher,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		uow:          uow,
		orders:       orders,
		availability: availability,
		publisher:    publisher,
		clock:        time.Now,
		log:          log,
	}
}

// WithClock returns a copy of the service using clock as its time source.
func (s *OrderService) WithClock(clock func() time.Time) *OrderService {
	cp := *s
	cp.clock = clock
	return &cp
}

func (s *OrderService) now() time.Time {
	return s.clock().UTC()
}

type orderMutation func(ctx context.Context, repos repositories.TxRepositories, order *models.Order, now time.Time) error

// mutate loads the order for update, applies fn and saves the result. An
// event is published after commit when the status changed.
func (s *OrderService) mutate(ctx context.Context, orderID, actor string, fn orderMutation) (*models.Order, error) {
	var (
		order    *models.Order
		previous models.OrderStatus
		now      = s.now()
	)
	err := s.uow.RunInTx(ctx, func(ctx context.Context, repos repositories.TxRepositories) error {
		o, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepositoryError(err)
		}
		previous = o.Status
		if err := fn(ctx, repos, o, now); err != nil {
			return err
		}
		pricing.Recalculate(o)
		if err := repos.Orders.Update(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status != previous {
		s.log.Info("order status changed",
			zap.String("order_id", order.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(order.Status)),
			zap.String("actor", actor))
		publishEvent(s.publisher, s.log, RoutingOrderStatusChanged, newOrderEvent(order, previous, actor, now))
	}
	return order, nil
}

func owned(order *models.Order, userID string) error {
	if !order.BelongsTo(userID) {
		return fmt.Errorf("%w: order %s", ErrNotFound, order.ID)
	}
	return nil
}

func appendNote(existing, line string) string {
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return existing + "\n" + line
}

// ---- customer operations ----

// ListForUser returns one page of the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.orders.List(ctx, repositories.OrderFilter{UserID: userID, Limit: OrdersPerPage, Offset: (page - 1) * OrdersPerPage})
}

// GetForUser returns an order only when it belongs to userID.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if err := owned(order, userID); err != nil {
		return nil, err
	}
	return order, nil
}

// PaymentSubmission is the customer's proof of a bank transfer.
type PaymentSubmission struct {
	PaidAt   time.Time
	SlipPath string
}

// SubmitPayment records payment proof on a pending or failed order and moves
// it to awaiting approval. Resubmitting after a failure re-checks that the
// outfits are still free, since a failed order does not hold them.
func (s *OrderService) SubmitPayment(ctx context.Context, userID, orderID string, in PaymentSubmission) (*models.Order, error) {
	if strings.TrimSpace(in.SlipPath) == "" {
		return nil, validationError("payment slip is required")
	}
	if in.PaidAt.IsZero() {
		return nil, validationError("payment date and time are required")
	}
	return s.mutate(ctx, orderID, userID, func(ctx context.Context, repos repositories.TxRepositories, order *models.Order, now time.Time) error {
		if err := owned(order, userID); err != nil {
			return err
		}
		if order.Status != models.OrderPending && order.Status != models.OrderFailed {
			return fmt.Errorf("%w: payment cannot be submitted while order is %s", ErrInvalidTransition, order.Status)
		}
		if order.Status == models.OrderFailed {
			if err := s.recheckItems(ctx, repos, order); err != nil {
				return err
			}
		}
		if _, err := applyStatusTransition(order, models.OrderAwaitingApproval, now); err != nil {
			return err
		}
		paidAt := in.PaidAt.UTC()
		order.PaymentSlip = in.SlipPath
		order.PaymentDatetime = &paidAt
		order.Paid = false
		return nil
	})
}

func (s *OrderService) recheckItems(ctx context.Context, repos repositories.TxRepositories, order *models.Order) error {
	if order.RentalStartDate == nil || order.RentalEndDate == nil {
		return nil
	}
	conflict := &AvailabilityConflictError{}
	for _, item := range order.Items {
		ok, err := s.availability.IsAvailableIn(ctx, repos.Orders, item.OutfitID, *order.RentalStartDate, *order.RentalEndDate, item.Quantity, order.ID)
		if err != nil {
			return err
		}
		if !ok {
			conflict.OutfitIDs = append(conflict.OutfitIDs, item.OutfitID)
			if item.Outfit != nil {
				conflict.OutfitNames = append(conflict.OutfitNames, item.Outfit.Name)
			}
		}
	}
	if len(conflict.OutfitIDs) > 0 {
		if len(conflict.OutfitNames) != len(conflict.OutfitIDs) {
			conflict.OutfitNames = nil
		}
		return conflict
	}
	return nil
}

// ReturnSubmission is the customer's evidence that the outfits were sent back.
type ReturnSubmission struct {
	TrackingNumber string
	SlipPath       string
}

// SubmitReturn records return shipping details once per order.
func (s *OrderService) SubmitReturn(ctx context.Context, userID, orderID string, in ReturnSubmission) (*models.Order, error) {
	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking == "" {
		return nil, validationError("return tracking number is required")
	}
	if strings.TrimSpace(in.SlipPath) == "" {
		return nil, validationError("return slip is required")
	}
	return s.mutate(ctx, orderID, userID, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if err := owned(order, userID); err != nil {
			return err
		}
		if order.HasReturnInfo() {
			return fmt.Errorf("%w: return details were already submitted", ErrInvalidTransition)
		}
		if order.Status != models.OrderShipped && order.Status != models.OrderRented {
			return fmt.Errorf("%w: return cannot be submitted while order is %s", ErrInvalidTransition, order.Status)
		}
		if _, err := applyStatusTransition(order, models.OrderReturnShipped, now); err != nil {
			return err
		}
		order.ReturnTrackingNumber = &tracking
		order.ReturnSlip = in.SlipPath
		return nil
	})
}

// CancelOwn lets a customer cancel an order that has not been paid for.
func (s *OrderService) CancelOwn(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return s.mutate(ctx, orderID, userID, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if err := owned(order, userID); err != nil {
			return err
		}
		if order.Paid {
			return fmt.Errorf("%w: paid orders cannot be cancelled by the customer", ErrInvalidTransition)
		}
		_, err := applyStatusTransition(order, models.OrderCancelled, now)
		return err
	})
}

// ---- operator operations ----

// List returns one page of all orders, optionally filtered by status.
func (s *OrderService) List(ctx context.Context, status models.OrderStatus, page int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.orders.List(ctx, repositories.OrderFilter{Status: status, Limit: OrdersPerPage, Offset: (page - 1) * OrdersPerPage})
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return order, nil
}

// ApprovePayment confirms the submitted proof and starts fulfilment.
func (s *OrderService) ApprovePayment(ctx context.Context, actor, orderID string) (*models.Order, error) {
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if order.Status != models.OrderAwaitingApproval {
			return fmt.Errorf("%w: only orders awaiting approval can be approved, order is %s", ErrInvalidTransition, order.Status)
		}
		if order.PaymentSlip == "" {
			return fmt.Errorf("%w: no payment slip to approve", ErrInvalidTransition)
		}
		if _, err := applyStatusTransition(order, models.OrderProcessing, now); err != nil {
			return err
		}
		order.Paid = true
		order.AdminPaymentNote = appendNote(order.AdminPaymentNote,
			fmt.Sprintf("Payment approved by %s on %s", actor, now.Format(noteTimeLayout)))
		return nil
	})
}

// RejectPayment marks the submitted proof invalid. The customer may resubmit.
func (s *OrderService) RejectPayment(ctx context.Context, actor, orderID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment proof could not be verified"
	}
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if order.Status != models.OrderAwaitingApproval {
			return fmt.Errorf("%w: only orders awaiting approval can be rejected, order is %s", ErrInvalidTransition, order.Status)
		}
		if _, err := applyStatusTransition(order, models.OrderFailed, now); err != nil {
			return err
		}
		order.Paid = false
		order.AdminPaymentNote = appendNote(order.AdminPaymentNote,
			fmt.Sprintf("Payment rejected by %s on %s: %s", actor, now.Format(noteTimeLayout), reason))
		return nil
	})
}

// MarkShipped records dispatch with an optional tracking code.
func (s *OrderService) MarkShipped(ctx context.Context, actor, orderID, trackingNumber string) (*models.Order, error) {
	tracking := strings.TrimSpace(trackingNumber)
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if _, err := applyStatusTransition(order, models.OrderShipped, now); err != nil {
			return err
		}
		if tracking != "" {
			order.ShippingTrackingNumber = &tracking
		}
		return nil
	})
}

func (s *OrderService) MarkRented(ctx context.Context, actor, orderID string) (*models.Order, error) {
	return s.simpleTransition(ctx, actor, orderID, models.OrderRented)
}

func (s *OrderService) MarkReturnReceived(ctx context.Context, actor, orderID string) (*models.Order, error) {
	return s.simpleTransition(ctx, actor, orderID, models.OrderReturnReceived)
}

// Complete closes an order after the returned outfits pass inspection.
func (s *OrderService) Complete(ctx context.Context, actor, orderID string) (*models.Order, error) {
	return s.simpleTransition(ctx, actor, orderID, models.OrderCompleted)
}

// Cancel is the operator escape hatch for orders that have not started fulfilment.
func (s *OrderService) Cancel(ctx context.Context, actor, orderID, reason string) (*models.Order, error) {
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		if _, err := applyStatusTransition(order, models.OrderCancelled, now); err != nil {
			return err
		}
		line := fmt.Sprintf("Cancelled by %s on %s", actor, now.Format(noteTimeLayout))
		if r := strings.TrimSpace(reason); r != "" {
			line += ": " + r
		}
		order.AdminPaymentNote = appendNote(order.AdminPaymentNote, line)
		return nil
	})
}

func (s *OrderService) simpleTransition(ctx context.Context, actor, orderID string, target models.OrderStatus) (*models.Order, error) {
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
		_, err := applyStatusTransition(order, target, now)
		return err
	})
}

// SetShippingCost changes the shipping cost while the order is still
// awaiting payment and recomputes the total.
func (s *OrderService) SetShippingCost(ctx context.Context, actor, orderID string, cost decimal.Decimal) (*models.Order, error) {
	if cost.IsNegative() {
		return nil, validationError("shipping cost must not be negative")
	}
	return s.mutate(ctx, orderID, actor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, _ time.Time) error {
		switch order.Status {
		case models.OrderPending, models.OrderAwaitingApproval, models.OrderFailed:
		default:
			return fmt.Errorf("%w: shipping cost is fixed once payment is approved", ErrInvalidTransition)
		}
		order.ShippingCost = cost.Round(2)
		return nil
	})
}

// BulkResult summarises a bulk operator action. Reasons maps each skipped
// id to the error that stopped it.
type BulkResult struct {
	Updated int               `json:"updated"`
	Skipped []string          `json:"skipped"`
	Reasons map[string]string `json:"reasons,omitempty"`
}

// bulk runs op once per distinct id, each in its own transaction. A failing
// row is skipped and counted, never aborting the rest. Only a cancelled
// context ends the batch early, and the partial result is still returned.
func (s *OrderService) bulk(ctx context.Context, ids []string, op func(ctx context.Context, id string) error) (BulkResult, error) {
	res := BulkResult{Skipped: []string{}}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		err := op(ctx, id)
		if err == nil {
			res.Updated++
			continue
		}
		res.Skipped = append(res.Skipped, id)
		if res.Reasons == nil {
			res.Reasons = make(map[string]string)
		}
		res.Reasons[id] = err.Error()

		switch {
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation), errors.Is(err, ErrUnavailable):
			s.log.Debug("bulk row skipped", zap.String("order_id", id), zap.Error(err))
		default:
			s.log.Error("bulk row failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	return res, nil
}

func (s *OrderService) BulkApprove(ctx context.Context, actor string, ids []string) (BulkResult, error) {
	return s.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := s.ApprovePayment(ctx, actor, id)
		return err
	})
}

func (s *OrderService) BulkReject(ctx context.Context, actor string, ids []string, reason string) (BulkResult, error) {
	return s.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := s.RejectPayment(ctx, actor, id, reason)
		return err
	})
}

func (s *OrderService) BulkShip(ctx context.Context, actor string, ids []string) (BulkResult, error) {
	return s.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := s.MarkShipped(ctx, actor, id, "")
		return err
	})
}

func (s *OrderService) BulkReturnReceived(ctx context.Context, actor string, ids []string) (BulkResult, error) {
	return s.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := s.MarkReturnReceived(ctx, actor, id)
		return err
	})
}

// ---- gateway and housekeeping ----

// GatewayResult is an asynchronous payment outcome reported by a gateway.
type GatewayResult struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Method    string `json:"method"`
}

const (
	GatewaySuccess = "success"
	GatewayFailed  = "failed"
)

const (
	gatewayFailureNote  = "Gateway reported failure"
	gatewayConflictNote = "Gateway reported success but the outfits were rebooked"
)

// RecordGatewayResult applies a gateway outcome. A success marks the order
// paid and moves it to processing. A failure moves an unpaid order under
// review to failed and leaves a pending order pending. Repeated deliveries
// of the same outcome are no-ops.
//
// A failed order no longer holds its outfits, so a success for it re-checks
// availability first. When they were rebooked the order stays failed, gets a
// note for a refund, and the conflict is returned after commit.
func (s *OrderService) RecordGatewayResult(ctx context.Context, res GatewayResult) (*models.Order, error) {
	status := strings.ToLower(strings.TrimSpace(res.Status))
	if res.OrderID == "" {
		return nil, validationError("order id is required")
	}
	if status != GatewaySuccess && status != GatewayFailed {
		return nil, validationError("unknown gateway status %q", res.Status)
	}

	var conflict error
	order, err := s.mutate(ctx, res.OrderID, systemActor, func(ctx context.Context, repos repositories.TxRepositories, order *models.Order, now time.Time) error {
		if order.Paid {
			return nil
		}
		ref := strings.TrimSpace(res.Reference)
		sameRef := ref == "" || (order.PaymentReference != nil && *order.PaymentReference == ref)
		if ref != "" {
			order.PaymentReference = &ref
		}

		if status == GatewayFailed {
			if sameRef && (order.Status == models.OrderFailed || strings.Contains(order.AdminPaymentNote, gatewayFailureNote)) {
				return nil
			}
			if order.Status == models.OrderAwaitingApproval {
				if _, err := applyStatusTransition(order, models.OrderFailed, now); err != nil {
					return err
				}
			}
			order.AdminPaymentNote = appendNote(order.AdminPaymentNote,
				fmt.Sprintf("%s on %s", gatewayFailureNote, now.Format(noteTimeLayout)))
			return nil
		}

		if order.Status == models.OrderFailed {
			if err := s.recheckItems(ctx, repos, order); err != nil {
				var unavailable *AvailabilityConflictError
				if !errors.As(err, &unavailable) {
					return err
				}
				conflict = err
				if !sameRef || !strings.Contains(order.AdminPaymentNote, gatewayConflictNote) {
					order.AdminPaymentNote = appendNote(order.AdminPaymentNote,
						fmt.Sprintf("%s on %s, refund required", gatewayConflictNote, now.Format(noteTimeLayout)))
				}
				return nil
			}
		}

		if _, err := applyStatusTransition(order, models.OrderProcessing, now); err != nil {
			return err
		}
		order.Paid = true
		if m := strings.TrimSpace(res.Method); m != "" {
			order.PaymentMethod = m
		}
		if order.PaymentDatetime == nil {
			order.PaymentDatetime = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.log.Warn("gateway success for rebooked order",
			zap.String("order_id", order.ID),
			zap.Error(conflict))
		return order, conflict
	}
	return order, nil
}

// ExpireStalePending cancels pending orders created more than olderThan ago.
// Orders already awaiting approval are never touched.
func (s *OrderService) ExpireStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	ids, err := s.orders.ListStalePendingIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		_, err := s.mutate(ctx, id, systemActor, func(_ context.Context, _ repositories.TxRepositories, order *models.Order, now time.Time) error {
			if order.Status != models.OrderPending {
				return fmt.Errorf("%w: order left pending", ErrInvalidTransition)
			}
			if _, err := applyStatusTransition(order, models.OrderCancelled, now); err != nil {
				return err
			}
			order.AdminPaymentNote = appendNote(order.AdminPaymentNote,
				fmt.Sprintf("Cancelled automatically on %s: no payment received", now.Format(noteTimeLayout)))
			return nil
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
		default:
			return expired, err
		}
	}
	return expired, nil
}
