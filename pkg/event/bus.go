package event

import (
	"log/slog"
	"sync"
)

// Handler receives one emitted Event.
type Handler func(Event)

// Bus is a synchronous, in-process fan-out. Emit first delivers to global
// listeners (registered via OnAll) in registration order, then to typed
// listeners (registered via Subscribe) for the event's Kind, also in
// registration order. A panicking handler never aborts delivery to the
// remaining listeners.
type Bus struct {
	mu       sync.Mutex
	global   []Handler
	typed    map[string][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{typed: make(map[string][]Handler)}
}

// OnAll registers a listener invoked for every event, regardless of kind.
func (b *Bus) OnAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, h)
}

// Subscribe registers a listener invoked only for events whose Kind()
// equals kind.
func (b *Bus) Subscribe(kind string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[kind] = append(b.typed[kind], h)
}

// Emit delivers ev to global listeners, then typed listeners for ev.Kind().
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	global := append([]Handler(nil), b.global...)
	typed := append([]Handler(nil), b.typed[ev.Kind()]...)
	b.mu.Unlock()

	for _, h := range global {
		safeCall(h, ev)
	}
	for _, h := range typed {
		safeCall(h, ev)
	}
}

func safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event listener panicked", "kind", ev.Kind(), "panic", r)
		}
	}()
	h(ev)
}
