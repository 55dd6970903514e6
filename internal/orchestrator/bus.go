package orchestrator

import (
	"sync"

	"github.com/sells-group/audit-cli/internal/model"
)

// Subscriber receives workflow events. Subscribers run synchronously on the
// publisher's goroutine and must not block.
type Subscriber func(model.Event)

// Bus fans workflow events out to subscribers. Events from one publisher are
// delivered in order.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber for all events.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// SubscribeType registers a subscriber for one event type.
func (b *Bus) SubscribeType(t model.EventType, fn Subscriber) {
	b.Subscribe(func(ev model.Event) {
		if ev.Type == t {
			fn(ev)
		}
	})
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev model.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
