// Package live distributes document-update events to mounted views. The
// executor publishes after every successful mutation; views subscribe and
// reconcile their section lists against the incoming document.
package live

import (
	"context"
	"sync"

	"contentpilot/internal/content"
	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

// Event carries the updated document for one mutation.
type Event struct {
	DocumentID string            `json:"documentId"`
	Document   *content.Document `json:"document,omitempty"`
}

// Feed is the live-update transport contract.
type Feed interface {
	// Publish delivers an event to all current subscribers.
	Publish(ctx context.Context, ev Event) error

	// Subscribe returns a channel of future events and a cancel func
	// that releases the subscription. The channel closes on cancel.
	Subscribe(ctx context.Context) (<-chan Event, func())

	// Close shuts the feed down.
	Close() error
}

// MemoryFeed fans events out in-process. Slow subscribers drop events
// rather than block the publisher.
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewMemoryFeed creates an in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every subscriber.
func (f *MemoryFeed) Publish(ctx context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			logging.L(logging.CategoryLive).Warn("subscriber lagging, dropping event",
				zap.Int("subscriber", id),
				zap.String("document", ev.DocumentID))
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, 16)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close drops all subscribers.
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	return nil
}
