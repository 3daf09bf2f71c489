// Package notify relays state-change events to external transports. The
// memory publisher backs tests and single-process deployments; the redis
// publisher fans out to other replicas and push relays.
package notify

import (
	"context"
	"sync"

	"keepsafe/internal/domain"
)

type MemoryPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

// ByType filters the snapshot to one event type.
func (p *MemoryPublisher) ByType(eventType domain.EventType) []domain.Event {
	var out []domain.Event
	for _, event := range p.Events() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
