// Package events fans out directory change notifications to in-process
// subscribers, feeding the admin UI's WebSocket stream.
package events

import (
	"sync"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
)

// Event types published by the directory service.
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
	TypeUserRenamed = "user.renamed"
	TypeUserDeleted = "user.deleted"
)

// Event describes one directory mutation.
type Event struct {
	Type     string            `json:"type"`
	DomainID int64             `json:"domainId"`
	User     *domain.EmailUser `json:"user,omitempty"`
	UserID   int64             `json:"userId"`
	At       time.Time         `json:"at"`
}

// Broker is a non-blocking fan-out of events to subscribers. A subscriber
// that falls behind loses events rather than stalling a directory mutation.
type Broker struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	closed bool
}

// NewBroker creates a broker whose subscriber channels hold up to buffer
// pending events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{
		subs:   map[chan Event]struct{}{},
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop
		}
	}
}

// Close shuts the broker down and closes all subscriber channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
