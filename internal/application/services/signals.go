package services

import "sync"

// Event names an in-process signal.
type Event string

// EventNotificationsChanged asks every notification view to refetch now.
const EventNotificationsChanged Event = "notifications:refetch"

// Signals is a small synchronous pub/sub bus. Handlers run on the
// publisher's goroutine and must not block.
type Signals struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

type subscription struct {
	event Event
	fn    func(Event)
}

func NewSignals() *Signals {
	return &Signals{subs: make(map[int]subscription)}
}

// Subscribe registers fn for ev and returns the function that removes it.
func (s *Signals) Subscribe(ev Event, fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = subscription{event: ev, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Publish runs every handler subscribed to ev.
func (s *Signals) Publish(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.event == ev {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Channel delivers ev as a coalescing wake-up: several publishes before the
// reader catches up arrive as one.
func (s *Signals) Channel(ev Event) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	cancel := s.Subscribe(ev, func(Event) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, cancel
}
