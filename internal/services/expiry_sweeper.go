package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically cancels pending orders that never received a
// payment, releasing the outfits they hold.
type ExpirySweeper struct {
	orders   *OrderService
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
}

// NewExpirySweeper creates a new ExpirySweeper.
func NewExpirySweeper(orders *OrderService, ttl, interval time.Duration, log *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{orders: orders, ttl: ttl, interval: interval, log: log}
}

// Start launches the sweep loop and returns a stop function that waits for
// the loop to exit.
func (w *ExpirySweeper) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.loop(stop)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *ExpirySweeper) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.SweepOnce(context.Background())
		}
	}
}

// SweepOnce runs a single pass and returns how many orders were cancelled.
func (w *ExpirySweeper) SweepOnce(ctx context.Context) int {
	n, err := w.orders.ExpireStalePending(ctx, w.ttl)
	if err != nil {
		w.log.Error("pending order sweep failed", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		w.log.Info("expired stale pending orders", zap.Int("expired", n), zap.Duration("ttl", w.ttl))
	}
	return n
}
