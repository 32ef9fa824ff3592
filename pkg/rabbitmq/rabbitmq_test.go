package rabbitmq_test

import (
	"errors"
	"fmt"
	"testing"

	"mindvibe/pkg/rabbitmq"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockAcknowledger is a mock implementation of amqp.Acknowledger
type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	args := m.Called(tag, multiple)
	return args.Error(0)
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	args := m.Called(tag, multiple, requeue)
	return args.Error(0)
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	args := m.Called(tag, requeue)
	return args.Error(0)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name   string
		result error
		setup  func(a *MockAcknowledger)
	}{
		{
			name:   "ack on success",
			result: nil,
			setup:  func(a *MockAcknowledger) { a.On("Ack", uint64(7), false).Return(nil).Once() },
		},
		{
			name:   "requeue on transient failure",
			result: errors.New("database unavailable"),
			setup:  func(a *MockAcknowledger) { a.On("Nack", uint64(7), false, true).Return(nil).Once() },
		},
		{
			name:   "drop on permanent failure",
			result: fmt.Errorf("%w: bad json", rabbitmq.ErrPermanent),
			setup:  func(a *MockAcknowledger) { a.On("Nack", uint64(7), false, false).Return(nil).Once() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := new(MockAcknowledger)
			tt.setup(ack)
			msg := amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte(`{}`)}

			called := 0
			rabbitmq.Dispatch(msg, func(amqp.Delivery) error {
				called++
				return tt.result
			}, zap.NewNop())

			assert.Equal(t, 1, called)
			ack.AssertExpectations(t)
		})
	}
}
