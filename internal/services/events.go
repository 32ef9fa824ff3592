package services

import (
	"encoding/json"
	"time"

	"mindvibe/internal/models"

	"go.uber.org/zap"
)

const (
	// OrdersExchange is the topic exchange order events are published to.
	OrdersExchange = "orders"

	RoutingOrderCreated       = "order.created"
	RoutingOrderStatusChanged = "order.status_changed"
)

// EventPublisher delivers a message to an exchange.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent is the payload of every order message.
type OrderEvent struct {
	OrderID        string             `json:"order_id"`
	UserID         string             `json:"user_id,omitempty"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    string             `json:"total_amount"`
	Actor          string             `json:"actor,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newOrderEvent(order *models.Order, previous models.OrderStatus, actor string, now time.Time) OrderEvent {
	ev := OrderEvent{
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount.StringFixed(2),
		Actor:          actor,
		OccurredAt:     now,
	}
	if order.UserID != nil {
		ev.UserID = *order.UserID
	}
	return ev
}

// publishEvent is best effort. A failed publish never undoes a committed change.
func publishEvent(publisher EventPublisher, log *zap.Logger, routingKey string, ev OrderEvent) {
	if publisher == nil {
		log.Debug("event publisher not configured, skipping", zap.String("routing_key", routingKey), zap.String("order_id", ev.OrderID))
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("failed to marshal order event", zap.String("order_id", ev.OrderID), zap.Error(err))
		return
	}
	if err := publisher.Publish(OrdersExchange, routingKey, body); err != nil {
		log.Warn("failed to publish order event",
			zap.String("routing_key", routingKey),
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
		return
	}
	log.Debug("published order event", zap.String("routing_key", routingKey), zap.String("order_id", ev.OrderID))
}
