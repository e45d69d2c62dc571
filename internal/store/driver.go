package store

import (
	"fmt"
	"sync"

	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
)

// Handler turns a delivered batch into a model transform. It is caller
// code and may panic; the driver neutralizes such faults.
type Handler[T any] func(overlay.Change) func(T) T

// Driver applies handler transforms to the store under an
// exactly-once-initialize contract: the first delivered batch seeds the
// store with Set, every later batch goes through Modify. The
// AwaitingInitialSet state is consumed by the first delivery whether or
// not the handler faulted; a faulted first batch therefore seeds the
// store with the unchanged seed value. That is the inherited behavior
// and is kept deliberately.
type Driver[T any] struct {
	store    *Store[T]
	seed     T
	handler  Handler[T]
	logger   *logging.Logger
	registry *metrics.Registry

	mutex       sync.Mutex
	initialized bool
}

func NewDriver[T any](store *Store[T], seed T, handler Handler[T], logger *logging.Logger, registry *metrics.Registry) *Driver[T] {
	if logger == nil {
		logger = logging.NewLoggerWithOutput(nil, logging.LevelInfo, nil)
	}
	if registry == nil {
		registry = metrics.Default
	}
	return &Driver[T]{
		store:    store,
		seed:     seed,
		handler:  handler,
		logger:   logger,
		registry: registry,
	}
}

// Deliver runs the handler for one batch and applies its transform.
// Handler faults are logged and replaced by the identity transform;
// they never escape to the caller, so the watch loop keeps running.
func (driver *Driver[T]) Deliver(change overlay.Change) {
	transform := driver.invoke(change)

	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	wasInitialized := driver.initialized
	driver.initialized = true

	if !wasInitialized {
		driver.store.Set(driver.apply(transform, driver.seed))
		return
	}
	driver.store.Modify(func(current T) T {
		return driver.apply(transform, current)
	})
}

// Initialized reports whether the first batch has been delivered.
func (driver *Driver[T]) Initialized() bool {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	return driver.initialized
}

func (driver *Driver[T]) invoke(change overlay.Change) (transform func(T) T) {
	defer func() {
		if recovered := recover(); recovered != nil {
			driver.fault(recovered)
			transform = nil
		}
	}()
	if driver.handler == nil {
		return nil
	}
	return driver.handler(change)
}

// apply guards the transform itself: the handler returns a closure that
// also runs caller code, and a panic there must leave the model at its
// previous value.
func (driver *Driver[T]) apply(transform func(T) T, current T) (next T) {
	if transform == nil {
		return current
	}
	next = current
	defer func() {
		if recovered := recover(); recovered != nil {
			driver.fault(recovered)
			next = current
		}
	}()
	return transform(current)
}

func (driver *Driver[T]) fault(recovered any) {
	driver.registry.IncHandlerFault()
	driver.logger.Error("user exception", map[string]string{
		"error": fmt.Sprintf("%v", recovered),
	})
}
