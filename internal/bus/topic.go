package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Publisher is the write side of a topic.
type Publisher[T any] interface {
	Publish(v T)
}

// Topic is a named single-slot mailbox. The slot, its generation counter and
// the wake channel are guarded by mu, so a reader always copies out one whole
// value as it was published.
type Topic[T any] struct {
	name string

	mu      sync.Mutex
	value   T
	gen     uint64
	changed chan struct{}

	subscribers atomic.Int64
}

// NewTopic creates a standalone topic. Most callers go through Register so the
// topic is visible by name.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, changed: make(chan struct{})}
}

func (t *Topic[T]) Name() string {
	return t.name
}

// Publish stores v as the current value and wakes blocked readers.
// Safe for concurrent use by any number of producers.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	t.value = v
	t.gen++
	close(t.changed)
	t.changed = make(chan struct{})
	t.mu.Unlock()
}

// Subscribe returns a fresh cursor. A new cursor has seen nothing, so the
// latest value (if one was ever published) is immediately readable.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	t.subscribers.Add(1)
	return &Subscription[T]{topic: t}
}

// Stats reports the topic counters.
func (t *Topic[T]) Stats() TopicStats {
	t.mu.Lock()
	published := t.gen
	t.mu.Unlock()
	var zero T
	return TopicStats{
		Name:        t.name,
		Type:        fmt.Sprintf("%T", zero),
		Published:   published,
		Subscribers: t.subscribers.Load(),
	}
}

// TopicStats is a point-in-time snapshot of one topic.
type TopicStats struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Published   uint64 `json:"published"`
	Subscribers int64  `json:"subscribers"`
}

// Subscription is one consumer's read cursor. It remembers the generation it
// last returned; it is meant to be used from a single goroutine.
type Subscription[T any] struct {
	topic *Topic[T]
	seen  uint64
}

// TryRead returns the current value if it is newer than the last one this
// cursor returned. It never blocks.
func (s *Subscription[T]) TryRead() (T, bool) {
	v, _, ok := s.TryReadMissed()
	return v, ok
}

// TryReadMissed is TryRead that also reports how many publishes were
// overwritten before the returned value, counted under the same lock.
func (s *Subscription[T]) TryReadMissed() (T, uint64, bool) {
	t := s.topic
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen == s.seen {
		var zero T
		return zero, 0, false
	}
	return t.value, s.advance(), true
}

// Read blocks until a value newer than the last one returned is available.
func (s *Subscription[T]) Read() T {
	v, _ := s.ReadContext(context.Background())
	return v
}

// ReadContext is Read with cancellation; it returns ctx.Err() when ctx ends
// first.
func (s *Subscription[T]) ReadContext(ctx context.Context) (T, error) {
	v, _, err := s.ReadContextMissed(ctx)
	return v, err
}

// ReadContextMissed is ReadContext that also reports how many publishes were
// overwritten before the returned value, including those made while blocked.
func (s *Subscription[T]) ReadContextMissed(ctx context.Context) (T, uint64, error) {
	t := s.topic
	for {
		t.mu.Lock()
		if t.gen != s.seen {
			v := t.value
			missed := s.advance()
			t.mu.Unlock()
			return v, missed, nil
		}
		wait := t.changed
		t.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, 0, ctx.Err()
		}
	}
}

// advance moves the cursor to the current generation and returns the number
// of generations skipped. t.mu must be held.
func (s *Subscription[T]) advance() uint64 {
	missed := s.topic.gen - s.seen - 1
	s.seen = s.topic.gen
	return missed
}

// Missed reports how many publishes happened since this cursor last read.
func (s *Subscription[T]) Missed() uint64 {
	t := s.topic
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen <= s.seen {
		return 0
	}
	return t.gen - s.seen - 1
}
