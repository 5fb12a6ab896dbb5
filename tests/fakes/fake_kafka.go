package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/service"
)

// FakeAuditProducer is an in-memory AuditService for tests.
type FakeAuditProducer struct {
	ch chan *models.AuthEvent

	mu     sync.Mutex
	events []*models.AuthEvent
}

// NewFakeAuditProducer creates a new FakeAuditProducer buffering up to buf events.
func NewFakeAuditProducer(buf int) *FakeAuditProducer {
	return &FakeAuditProducer{ch: make(chan *models.AuthEvent, buf)}
}

// LogEvent records the event. It never blocks: once the channel is full,
// events are still kept for Events.
func (p *FakeAuditProducer) LogEvent(ctx context.Context, event *models.AuthEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()

	select {
	case p.ch <- event:
	default:
	}
	return nil
}

// DrainOne retrieves one audit event from the channel.
func (p *FakeAuditProducer) DrainOne(ctx context.Context, timeout time.Duration) (*models.AuthEvent, error) {
	select {
	case m := <-p.ch:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// Events returns every event logged so far.
func (p *FakeAuditProducer) Events() []*models.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.AuthEvent(nil), p.events...)
}

// HasEvent reports whether an event of the given type was logged.
func (p *FakeAuditProducer) HasEvent(eventType string) bool {
	for _, e := range p.Events() {
		if string(e.EventType) == eventType {
			return true
		}
	}
	return false
}

var _ service.AuditService = (*FakeAuditProducer)(nil)
