package pubsub

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Nats adapts a NATS connection to the PubSub interface for multi-process
// deployments.
type Nats struct {
	conn *nats.Conn
}

func NewNats(conn *nats.Conn) *Nats {
	return &Nats{conn: conn}
}

func (ps *Nats) Pub(topic string, data []byte) error {
	if err := ps.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

func (ps *Nats) Sub(topic string, cb func(data []byte)) (func() error, error) {
	sub, err := ps.conn.Subscribe(topic, func(msg *nats.Msg) {
		cb(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", topic, err)
	}

	return func() error {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("nats unsubscribe %s: %w", topic, err)
		}
		return nil
	}, nil
}
