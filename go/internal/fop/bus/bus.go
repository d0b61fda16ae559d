// Package bus fans the UI events of one field of play out to in-process subscribers.
package bus

import (
	"sync"

	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

const DefaultBuffer = 256

// Bus delivers events in publish order to every subscriber. Publish never blocks:
// a subscriber whose buffer is full loses the event.
type Bus struct {
	platform string
	metrics  metrics.Collector

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription receives events on C until Close is called or the bus is closed.
type Subscription struct {
	Name string
	C    <-chan events.Event

	ch   chan events.Event
	bus  *Bus
	once sync.Once
}

func New(platform string, m metrics.Collector) *Bus {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	return &Bus{
		platform: platform,
		metrics:  m,
		subs:     make(map[*Subscription]struct{}),
	}
}

func (b *Bus) Platform() string { return b.platform }

// Subscribe registers a named subscriber with the given buffer size.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan events.Event, buffer)
	s := &Subscription{Name: name, C: ch, ch: ch, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(ch) })
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish hands ev to every subscriber without waiting.
func (b *Bus) Publish(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.metrics.RecordEventPublished(b.platform, string(ev.Kind()))
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.metrics.RecordEventDropped(b.platform, s.Name)
			log.Warn().
				Str("platform", b.platform).
				Str("subscriber", s.Name).
				Str("event_type", string(ev.Kind())).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.once.Do(func() { close(s.ch) })
	}
	b.subs = nil
}

// Close unsubscribes; C is closed afterwards.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.bus.subs != nil {
		delete(s.bus.subs, s)
	}
	s.once.Do(func() { close(s.ch) })
}
