package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"mindvibe/internal/cart"
	"mindvibe/internal/models"
	"mindvibe/internal/repositories"
	"mindvibe/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishedMessage struct {
	exchange   string
	routingKey string
	event      services.OrderEvent
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(exchange, routingKey string, body []byte) error {
	var ev services.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{exchange: exchange, routingKey: routingKey, event: ev})
	return nil
}

func (p *recordingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.messages))
	for i, m := range p.messages {
		keys[i] = m.routingKey
	}
	return keys
}

var fixedNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ctx          context.Context
	outfits      *repositories.MockOutfitRepository
	orders       *repositories.MockOrderRepository
	uow          *repositories.MockUnitOfWork
	carts        *cart.MemoryStore
	availability *services.AvailabilityService
	checkout     *services.CheckoutService
	orderSvc     *services.OrderService
	publisher    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	outfits := repositories.NewMockOutfitRepository()
	orders := repositories.NewMockOrderRepository(outfits)
	uow := repositories.NewMockUnitOfWork(outfits, orders)
	carts := cart.NewMemoryStore()
	pub := &recordingPublisher{}
	availability := services.NewAvailabilityService(orders, services.SingleUnit{})

	clock := func() time.Time { return fixedNow }
	return &fixture{
		ctx:          context.Background(),
		outfits:      outfits,
		orders:       orders,
		uow:          uow,
		carts:        carts,
		availability: availability,
		checkout:     services.NewCheckoutService(uow, outfits, carts, availability, pub, log, services.WithCheckoutClock(clock)),
		orderSvc:     services.NewOrderService(uow, orders, availability, pub, log).WithClock(clock),
		publisher:    pub,
	}
}

func (f *fixture) addOutfit(t *testing.T, name, price string, active bool) *models.Outfit {
	t.Helper()
	o := &models.Outfit{Name: name, Price: decimal.RequireFromString(price), IsActive: active}
	require.NoError(t, f.outfits.Create(f.ctx, o))
	return o
}

func (f *fixture) fillCart(t *testing.T, sessionID string, entries ...cart.Entry) {
	t.Helper()
	c, err := cart.New(entries...)
	require.NoError(t, err)
	require.NoError(t, f.carts.Save(f.ctx, sessionID, c))
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func customer() services.CustomerInfo {
	return services.CustomerInfo{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@example.com",
		Phone:     "0812345678",
		Address:   "12 Silk Road, Bangkok",
	}
}

// placeOrder checks out a fresh cart holding entries for userID.
func (f *fixture) placeOrder(t *testing.T, userID, start, end string, entries ...cart.Entry) *models.Order {
	t.Helper()
	session := "session-" + userID + "-" + start
	f.fillCart(t, session, entries...)
	res, err := f.checkout.PlaceOrder(f.ctx, services.CheckoutRequest{
		UserID:    userID,
		SessionID: session,
		Customer:  customer(),
		StartDate: mustDate(t, start),
		EndDate:   mustDate(t, end),
	})
	require.NoError(t, err)
	return res.Order
}

func (f *fixture) status(t *testing.T, orderID string) models.OrderStatus {
	t.Helper()
	o, err := f.orders.GetByID(f.ctx, orderID)
	require.NoError(t, err)
	return o.Status
}

// awaitingApproval places an order and submits payment proof for it.
func (f *fixture) awaitingApproval(t *testing.T, userID, start, end string, entries ...cart.Entry) *models.Order {
	t.Helper()
	order := f.placeOrder(t, userID, start, end, entries...)
	order, err := f.orderSvc.SubmitPayment(f.ctx, userID, order.ID, services.PaymentSubmission{
		PaidAt:   fixedNow,
		SlipPath: "payment_slips/" + order.ID + ".jpg",
	})
	require.NoError(t, err)
	return order
}
