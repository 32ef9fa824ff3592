package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mindvibe/internal/services"
	"mindvibe/pkg/rabbitmq"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PaymentResultConsumer applies gateway outcomes read from the
// payment_results queue.
type PaymentResultConsumer struct {
	orders *services.OrderService
	log    *zap.Logger
}

func NewPaymentResultConsumer(orders *services.OrderService, log *zap.Logger) *PaymentResultConsumer {
	return &PaymentResultConsumer{orders: orders, log: log}
}

// Handle decodes one message. Malformed messages, outcomes the order cannot
// accept and successes for rebooked outfits are permanent failures. Anything
// else is retried.
func (p *PaymentResultConsumer) Handle(msg amqp.Delivery) error {
	var res services.GatewayResult
	if err := json.Unmarshal(msg.Body, &res); err != nil {
		return fmt.Errorf("%w: %v", rabbitmq.ErrPermanent, err)
	}

	order, err := p.orders.RecordGatewayResult(context.Background(), res)
	switch {
	case err == nil:
		p.log.Info("gateway result applied",
			zap.String("order_id", order.ID),
			zap.String("gateway_status", res.Status),
			zap.String("order_status", string(order.Status)))
		return nil
	case errors.Is(err, services.ErrUnavailable):
		// The order keeps a refund note; redelivery cannot free the outfits.
		return fmt.Errorf("%w: %v", rabbitmq.ErrPermanent, err)
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", rabbitmq.ErrPermanent, err)
	}
	return err
}
