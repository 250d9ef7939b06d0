package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher hands notifications to a Sink on background workers so the
// caller never waits for delivery. When the queue is full the notification
// is dropped and logged.
type Dispatcher struct {
	sink    Sink
	queue   chan Notification
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines draining a queue of size buffer
func NewDispatcher(sink Sink, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Notification, buffer),
		timeout: 5 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify enqueues n and returns immediately. It never returns an error.
func (d *Dispatcher) Notify(_ context.Context, n Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logrus.WithField("employee_id", n.EmployeeID).Warn("Notification dropped: dispatcher closed")
		return nil
	}
	select {
	case d.queue <- n:
	default:
		logrus.WithFields(logrus.Fields{
			"employee_id": n.EmployeeID,
			"category":    n.Category,
		}).Warn("Notification dropped: queue full")
	}
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Notify(ctx, n); err != nil {
			logrus.WithFields(logrus.Fields{
				"employee_id": n.EmployeeID,
				"category":    n.Category,
				"error":       err.Error(),
			}).Error("Notification delivery failed")
		}
		cancel()
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
