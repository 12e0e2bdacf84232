package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Signal is the body published on change channels. It carries no state:
// subscribers re-read whatever they care about.
type Signal struct {
	Channel   string    `json:"channel"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DecodeSignal parses a Signal, returning a zero Signal for foreign payloads.
func DecodeSignal(payload []byte) Signal {
	var s Signal
	_ = json.Unmarshal(payload, &s)
	return s
}

// Listen subscribes to channel and invokes handler for every message until the
// returned cancel func is called or the broker closes the subscription.
func Listen(ctx context.Context, broker Broker, channel string, handler func([]byte)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handler(msg)
			}
		}
	}()

	return cancel, nil
}
