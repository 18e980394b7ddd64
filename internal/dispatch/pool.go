// Package dispatch decouples webhook delivery from request handling: callers
// enqueue lifecycle events and a fixed set of workers drains the queue.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/service"
)

// Sender delivers one event to a merchant's subscriptions.
type Sender interface {
	Trigger(ctx context.Context, merchantID uuid.UUID, eventType string, payload map[string]any) (*service.TriggerResult, error)
}

// Event is one queued webhook notification.
type Event struct {
	Payload    map[string]any
	EventType  string
	MerchantID uuid.UUID
}

// Pool is a bounded worker pool draining a buffered event queue. Enqueue
// never blocks: when the queue is full the event is dropped and logged,
// trading delivery guarantees for request latency.
type Pool struct {
	sender  Sender
	queue   chan Event
	logger  *slog.Logger
	wg      sync.WaitGroup
	workers int
}

// NewPool creates a stopped pool with the given worker count and queue
// capacity.
func NewPool(sender Sender, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		sender:  sender,
		queue:   make(chan Event, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. They run until Stop is called or ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("webhook dispatcher started",
		"workers", p.workers,
		"queue_size", cap(p.queue),
	)
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}

// Enqueue queues an event for delivery without blocking. Returns false when
// the queue is saturated and the event was dropped.
func (p *Pool) Enqueue(merchantID uuid.UUID, eventType string, payload map[string]any) {
	event := Event{MerchantID: merchantID, EventType: eventType, Payload: payload}
	select {
	case p.queue <- event:
	default:
		p.logger.Warn("webhook queue saturated, dropping event",
			"merchant_id", merchantID,
			"event_type", eventType,
		)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.queue:
			if !ok {
				return
			}
			result, err := p.sender.Trigger(ctx, event.MerchantID, event.EventType, event.Payload)
			if err != nil {
				p.logger.Error("webhook dispatch failed",
					"worker", id,
					"merchant_id", event.MerchantID,
					"event_type", event.EventType,
					"error", err,
				)
				continue
			}
			if result.Attempted > 0 {
				p.logger.Debug("webhook event dispatched",
					"worker", id,
					"event_type", event.EventType,
					"attempted", result.Attempted,
					"delivered", result.Delivered,
				)
			}
		}
	}
}
