package store

import (
	"context"
	"testing"

	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
)

func newTestDriver(t *testing.T, seed int, handler Handler[int]) (*Driver[int], *Store[int]) {
	t.Helper()
	s := New[int](context.Background())
	t.Cleanup(s.Close)
	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(10), logging.LevelDebug, nil)
	return NewDriver(s, seed, handler, logger, &metrics.Registry{}), s
}

func TestDriverFirstDeliverySeedsStore(t *testing.T) {
	driver, s := newTestDriver(t, 100, func(change overlay.Change) func(int) int {
		return func(current int) int {
			return current + change.Len()
		}
	})

	batch := overlay.Change{}
	batch.Set("doc", "a.md", overlay.Entry{Op: overlay.OpRefresh, Refresh: overlay.RefreshExisting})
	driver.Deliver(batch)

	if !driver.Initialized() {
		t.Fatal("expected driver to be initialized")
	}
	if got := s.Read(); got != 101 {
		t.Fatalf("expected transform applied to seed, got %d", got)
	}
}

func TestDriverExactlyOnceInitialize(t *testing.T) {
	var inputs []int
	driver, s := newTestDriver(t, 0, func(overlay.Change) func(int) int {
		return func(current int) int {
			inputs = append(inputs, current)
			return current + 1
		}
	})
	output, cancelSub := s.Subscribe()
	defer cancelSub()

	if driver.Initialized() {
		t.Fatal("expected driver to start uninitialized")
	}
	for i := 0; i < 5; i++ {
		driver.Deliver(overlay.Change{})
	}

	// Exactly one write started from the seed; every later one continued
	// from the previous value. A second seeding write would reset an
	// input to zero.
	if len(inputs) != 5 {
		t.Fatalf("expected 5 transform applications, got %d", len(inputs))
	}
	for i, input := range inputs {
		if input != i {
			t.Fatalf("delivery %d: expected to start from %d, got %d", i, i, input)
		}
	}

	// Each delivery produced exactly one completed store write.
	for want := 1; want <= 5; want++ {
		select {
		case got := <-output:
			if got != want {
				t.Fatalf("expected snapshot %d, got %d", want, got)
			}
		default:
			t.Fatalf("expected a snapshot for write %d", want)
		}
	}
	select {
	case got := <-output:
		t.Fatalf("unexpected extra snapshot %d", got)
	default:
	}
}

func TestDriverAccumulatesAcrossDeliveries(t *testing.T) {
	driver, s := newTestDriver(t, 10, func(overlay.Change) func(int) int {
		return func(current int) int {
			return current + 1
		}
	})

	driver.Deliver(overlay.Change{})
	driver.Deliver(overlay.Change{})
	driver.Deliver(overlay.Change{})

	if got := s.Read(); got != 13 {
		t.Fatalf("expected 13 after seed+3, got %d", got)
	}
}

func TestDriverNeutralizesHandlerPanic(t *testing.T) {
	calls := 0
	driver, s := newTestDriver(t, 0, func(overlay.Change) func(int) int {
		calls++
		if calls == 2 {
			panic("boom")
		}
		return func(current int) int {
			return current + 1
		}
	})

	driver.Deliver(overlay.Change{}) // seed -> 1
	driver.Deliver(overlay.Change{}) // faults, model unchanged
	driver.Deliver(overlay.Change{}) // continues -> 2

	if got := s.Read(); got != 2 {
		t.Fatalf("expected fault to leave model unchanged, got %d", got)
	}
}

// A faulted first batch still consumes the initializing transition:
// the store ends up seeded with the unchanged seed value.
func TestDriverFaultedFirstBatchStillInitializes(t *testing.T) {
	driver, s := newTestDriver(t, 42, func(overlay.Change) func(int) int {
		panic("first batch fault")
	})

	driver.Deliver(overlay.Change{})

	if !driver.Initialized() {
		t.Fatal("expected initialization to fire despite the fault")
	}
	if got := s.Read(); got != 42 {
		t.Fatalf("expected untouched seed, got %d", got)
	}
}

func TestDriverGuardsTransformPanic(t *testing.T) {
	calls := 0
	driver, s := newTestDriver(t, 0, func(overlay.Change) func(int) int {
		calls++
		invocation := calls
		return func(current int) int {
			if invocation == 2 {
				panic("transform fault")
			}
			return current + 1
		}
	})

	driver.Deliver(overlay.Change{}) // -> 1
	driver.Deliver(overlay.Change{}) // transform faults, unchanged
	driver.Deliver(overlay.Change{}) // -> 2

	if got := s.Read(); got != 2 {
		t.Fatalf("expected transform fault neutralized, got %d", got)
	}
}
