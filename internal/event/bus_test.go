package event

import (
	"context"
	"testing"
	"time"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{})
	t.Cleanup(bus.Close)

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(42)

	select {
	case got := <-ch:
		if got != 42 {
			t.Fatalf("expected 42, got %d", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for value")
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{})
	t.Cleanup(bus.Close)

	ch, cancel := bus.Subscribe()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusFilteredSubscription(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{})
	t.Cleanup(bus.Close)

	ch, cancel := bus.SubscribeFiltered(func(value int) bool {
		return value%2 == 0
	})
	defer cancel()

	bus.Publish(1)
	bus.Publish(2)

	select {
	case got := <-ch:
		if got != 2 {
			t.Fatalf("expected filtered value 2, got %d", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for filtered value")
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{SubscriberBufferSize: 1})
	t.Cleanup(bus.Close)

	_, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(1)
	bus.Publish(2)

	if dropped := bus.Dropped(); dropped != 1 {
		t.Fatalf("expected 1 drop, got %d", dropped)
	}
}

// A subscriber cancelling while a publish is in flight closes a channel
// the publisher may already hold in its snapshot; the send must not
// panic, it drops the value and removes the racing subscriber.
func TestBusPublishSurvivesConcurrentCancel(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{SubscriberBufferSize: 1})
	t.Cleanup(bus.Close)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			bus.Publish(i)
		}
	}()

	for i := 0; i < 2000; i++ {
		_, cancel := bus.Subscribe()
		cancel()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for publisher")
	}
	if count := bus.SubscriberCount(); count != 0 {
		t.Fatalf("expected no subscribers left, got %d", count)
	}
}

func TestBusContextCancelCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus[int](ctx, BusOptions{})

	ch, subCancel := bus.Subscribe()
	defer subCancel()

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close on context cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}

	if count := bus.SubscriberCount(); count != 0 {
		t.Fatalf("expected no subscribers after close, got %d", count)
	}
}
