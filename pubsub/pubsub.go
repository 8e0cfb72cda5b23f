// Package pubsub decouples room-state broadcasting from its transport.
// The service publishes once per mutation; the transport delivers to every
// current subscriber of the request's topic.
package pubsub

import "sync"

// PubSub is a topic-based at-least-once broadcaster. Sub returns an
// unsubscribe func. There is no replay: subscribers only see messages
// published after they subscribed.
type PubSub interface {
	Pub(topic string, data []byte) error
	Sub(topic string, cb func(data []byte)) (func() error, error)
}

// Inmem is a single-process PubSub. Per-subscriber delivery goroutines keep
// publishers non-blocking while preserving publish order per subscriber.
// When a subscriber falls behind its buffer, further messages for it are
// dropped rather than blocking the publisher.
type Inmem struct {
	mu   sync.RWMutex
	subs map[string]map[*inmemSub]struct{}
}

type inmemSub struct {
	ch   chan []byte
	done chan struct{}
}

func NewInmem() *Inmem {
	return &Inmem{
		subs: map[string]map[*inmemSub]struct{}{},
	}
}

func (ps *Inmem) Pub(topic string, data []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for sub := range ps.subs[topic] {
		select {
		case sub.ch <- data:
		case <-sub.done:
		default: // subscriber buffer full, drop
		}
	}

	return nil
}

func (ps *Inmem) Sub(topic string, cb func(data []byte)) (func() error, error) {
	sub := &inmemSub{
		ch:   make(chan []byte, 64),
		done: make(chan struct{}),
	}

	ps.mu.Lock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = map[*inmemSub]struct{}{}
	}
	ps.subs[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		for {
			select {
			case data := <-sub.ch:
				cb(data)
			case <-sub.done:
				return
			}
		}
	}()

	return func() error {
		ps.mu.Lock()
		if _, ok := ps.subs[topic][sub]; ok {
			delete(ps.subs[topic], sub)
			if len(ps.subs[topic]) == 0 {
				delete(ps.subs, topic)
			}
			close(sub.done)
		}
		ps.mu.Unlock()
		return nil
	}, nil
}
