// Package worker runs background consumers of marketplace events.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-marketplace/internal/events"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 256
	deliveryTimeout  = 5 * time.Second
)

// Handler delivers one event.
type Handler interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves event delivery off the request path. Events are
// queued by a wildcard subscription and delivered by a fixed pool of
// goroutines. When the queue is full new events are dropped and counted.
type NotificationWorker struct {
	queue   chan events.Event
	handler Handler
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// StartNotificationWorker subscribes to every event on dispatcher and starts
// the delivery pool. workers and queueSize <= 0 select defaults.
func StartNotificationWorker(dispatcher events.Dispatcher, handler Handler, logger *zap.Logger, workers, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &NotificationWorker{
		queue:   make(chan events.Event, queueSize),
		handler: handler,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	dispatcher.SubscribeAll(w.enqueue)
	logger.Info("notification worker started", zap.Int("workers", workers), zap.Int("queue_size", queueSize))
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.dropped.Add(1)
		w.logger.Warn("notification queue full; event dropped",
			zap.String("event", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for event := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := w.handler.Handle(ctx, event); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("event", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
		cancel()
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (w *NotificationWorker) Dropped() int64 {
	return w.dropped.Load()
}

// Stop stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
