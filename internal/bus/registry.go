package bus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTopicExists   = errors.New("bus: topic already exists")
	ErrTopicNotFound = errors.New("bus: topic not found")
	ErrTopicType     = errors.New("bus: topic type mismatch")
	ErrInvalidName   = errors.New("bus: invalid topic name")
)

type namedTopic interface {
	Name() string
	Stats() TopicStats
}

// Registry stores topics by name. Topics are added once and never removed.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]namedTopic
}

func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]namedTopic)}
}

// Register creates the topic name carrying T.
func Register[T any](r *Registry, name string) (*Topic[T], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicExists, name)
	}
	t := NewTopic[T](name)
	r.topics[name] = t
	return t, nil
}

// Lookup returns the topic name, checking it carries T.
func Lookup[T any](r *Registry, name string) (*Topic[T], error) {
	r.mu.RLock()
	nt, ok := r.topics[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
	}
	t, ok := nt.(*Topic[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %s carries %s, not %T", ErrTopicType, name, nt.Stats().Type, zero)
	}
	return t, nil
}

// Names returns registered topic names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a snapshot of every topic ordered by name.
func (r *Registry) Stats() []TopicStats {
	r.mu.RLock()
	list := make([]TopicStats, 0, len(r.topics))
	for _, t := range r.topics {
		list = append(list, t.Stats())
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
