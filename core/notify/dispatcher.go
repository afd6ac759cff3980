package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher queues events and delivers them to the next sink on a background
// goroutine. Notify never blocks: when the queue is full the event is dropped
// and a warning is logged.
type Dispatcher struct {
	next   Sink
	logger *zap.Logger
	queue  chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher with the given queue size.
func NewDispatcher(next Sink, size int, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	d := &Dispatcher{
		next:   next,
		logger: logger,
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Notification sink panicked",
				zap.String("action", string(event.Action)),
				zap.Any("panic", r),
			)
		}
	}()
	d.next.Notify(context.Background(), event)
}

// Notify enqueues the event.
func (d *Dispatcher) Notify(_ context.Context, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Notification dropped after close", zap.String("action", string(event.Action)))
		return
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("Notification queue full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("machine_name", event.Record.MachineName),
		)
	}
}

// Close stops accepting events and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
