// Package notify carries "something changed" signals between components
// without any of them knowing who listens.
package notify

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindRegistered    Kind = "registered"
	KindEventsUpdated Kind = "events.updated"
)

type Message struct {
	Kind    Kind      `json:"kind"`
	EventID string    `json:"event_id,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	Title   string    `json:"title,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Handler func(Message)

// Bus is an in-process Publisher delivering synchronously to subscribers in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a func that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(_ context.Context, msg Message) error {
	if msg.At.IsZero() {
		msg.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

// Multi publishes to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
