package bus

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Bus is an in-process publish/subscribe event bus with topic filtering.
// Session lifecycle changes and inbound traffic are published here; the HTTP
// event stream, the archive recorder, and tests subscribe.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	dropped atomic.Uint64
}

// subscriber owns one delivery channel. filter matches as a prefix of the
// event kind, so "wa." selects every collaborator event and "" selects all.
type subscriber struct {
	filter string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Publish fans evt out to every subscriber whose filter prefixes evt.Kind.
// Delivery never blocks: subscribers that cannot keep up lose events, and
// the bus counts the losses.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.filter) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a delivery channel for kinds starting with namespace.
// bufSize sets how far the subscriber may fall behind before losing events.
// The returned function cancels the subscription.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	sub := &subscriber{filter: namespace, ch: make(chan Event, bufSize)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
}

// Dropped reports how many events were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
