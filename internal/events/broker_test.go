package events

import (
	"testing"
	"time"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker(4)
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(Event{Type: TypeUserCreated, DomainID: 1, UserID: 7})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeUserCreated || ev.UserID != 7 {
				t.Fatalf("subscriber %d got unexpected event: %+v", i, ev)
			}
			if ev.At.IsZero() {
				t.Fatalf("publish must stamp the event time")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBrokerSlowSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBroker(1)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: TypeUserUpdated, UserID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}

	// Only the first event fit the buffer
	ev := <-ch
	if ev.UserID != 0 {
		t.Fatalf("expected first event, got %+v", ev)
	}
}

func TestBrokerCancelIdempotent(t *testing.T) {
	b := NewBroker(1)
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()
	cancel() // second cancel must not panic

	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after cancel")
	}

	// Publishing after cancel must not panic either
	b.Publish(Event{Type: TypeUserDeleted})
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(1)
	ch, _ := b.Subscribe()
	b.Close()

	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after broker close")
	}
	// Subscribing after close yields a closed channel
	ch2, _ := b.Subscribe()
	if _, open := <-ch2; open {
		t.Fatalf("expected closed channel from closed broker")
	}
}
