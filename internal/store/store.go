// Package store holds the reactive model container and the driver that
// applies handler-produced transforms to it.
package store

import (
	"context"
	"sync"

	"unionwatch/internal/event"
)

// Store is a mutex-guarded model container. Readers observe a
// linearized sequence of completed Set and Modify calls; every
// completed write publishes a snapshot to subscribers.
type Store[T any] struct {
	mutex sync.RWMutex
	value T
	bus   *event.Bus[T]
}

func New[T any](ctx context.Context) *Store[T] {
	return &Store[T]{
		bus: event.NewBus[T](ctx, event.BusOptions{Name: "model"}),
	}
}

// Set replaces the model. Any value held before the first Set is
// silently overwritten.
func (s *Store[T]) Set(value T) {
	s.mutex.Lock()
	s.value = value
	s.mutex.Unlock()
	s.bus.Publish(value)
}

// Modify applies fn to the current model under the write lock.
func (s *Store[T]) Modify(fn func(T) T) {
	if fn == nil {
		return
	}
	s.mutex.Lock()
	s.value = fn(s.value)
	value := s.value
	s.mutex.Unlock()
	s.bus.Publish(value)
}

func (s *Store[T]) Read() T {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.value
}

// Subscribe delivers a snapshot after every completed write.
func (s *Store[T]) Subscribe() (<-chan T, func()) {
	return s.bus.Subscribe()
}

func (s *Store[T]) Close() {
	s.bus.Close()
}
