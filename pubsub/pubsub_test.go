package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestInmemPubSub(t *testing.T) {
	t.Run("delivers_to_all_subscribers", func(t *testing.T) {
		ps := NewInmem()

		var wg sync.WaitGroup
		wg.Add(2)

		got := make([]string, 2)
		for i := range 2 {
			_, err := ps.Sub("rooms.a", func(data []byte) {
				got[i] = string(data)
				wg.Done()
			})
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
		}

		if err := ps.Pub("rooms.a", []byte("hello")); err != nil {
			t.Fatalf("publish: %v", err)
		}

		wg.Wait()
		for i, msg := range got {
			if msg != "hello" {
				t.Errorf("subscriber %d got %q, want hello", i, msg)
			}
		}
	})

	t.Run("topics_are_isolated", func(t *testing.T) {
		ps := NewInmem()

		received := make(chan []byte, 1)
		if _, err := ps.Sub("rooms.a", func(data []byte) {
			received <- data
		}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		if err := ps.Pub("rooms.b", []byte("wrong topic")); err != nil {
			t.Fatalf("publish: %v", err)
		}

		select {
		case data := <-received:
			t.Errorf("got message %q from another topic", data)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("preserves_publish_order", func(t *testing.T) {
		ps := NewInmem()

		received := make(chan string, 3)
		if _, err := ps.Sub("rooms.a", func(data []byte) {
			received <- string(data)
		}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		for _, msg := range []string{"one", "two", "three"} {
			if err := ps.Pub("rooms.a", []byte(msg)); err != nil {
				t.Fatalf("publish %s: %v", msg, err)
			}
		}

		for _, want := range []string{"one", "two", "three"} {
			if got := <-received; got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		}
	})

	t.Run("unsubscribe_stops_delivery", func(t *testing.T) {
		ps := NewInmem()

		received := make(chan []byte, 1)
		unsub, err := ps.Sub("rooms.a", func(data []byte) {
			received <- data
		})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		if err := unsub(); err != nil {
			t.Fatalf("unsubscribe: %v", err)
		}

		if err := ps.Pub("rooms.a", []byte("late")); err != nil {
			t.Fatalf("publish: %v", err)
		}

		select {
		case data := <-received:
			t.Errorf("got message %q after unsubscribe", data)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("stalled_subscriber_never_blocks_publisher", func(t *testing.T) {
		ps := NewInmem()

		// The callback stalls on the very first delivery, so the
		// subscriber's buffer eventually fills up.
		gate := make(chan struct{})
		if _, err := ps.Sub("rooms.a", func([]byte) {
			<-gate
		}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		published := make(chan struct{})
		go func() {
			defer close(published)
			for range 200 {
				if err := ps.Pub("rooms.a", []byte("x")); err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}()

		select {
		case <-published:
		case <-time.After(2 * time.Second):
			t.Fatal("publisher blocked behind a stalled subscriber")
		}

		// Other subscribers stay reachable while one is stalled.
		received := make(chan []byte, 1)
		if _, err := ps.Sub("rooms.b", func(data []byte) {
			received <- data
		}); err != nil {
			t.Fatalf("subscribe other topic: %v", err)
		}
		if err := ps.Pub("rooms.b", []byte("hello")); err != nil {
			t.Fatalf("publish other topic: %v", err)
		}
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("delivery on another topic stalled")
		}

		close(gate)
	})

	t.Run("unsubscribe_twice_is_safe", func(t *testing.T) {
		ps := NewInmem()

		unsub, err := ps.Sub("rooms.a", func([]byte) {})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		if err := unsub(); err != nil {
			t.Fatalf("first unsubscribe: %v", err)
		}
		if err := unsub(); err != nil {
			t.Fatalf("second unsubscribe: %v", err)
		}
	})
}
