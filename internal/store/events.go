package store

import (
	"context"
	"errors"

	"github.com/Karan-0412/nabha/pkg/messaging"
)

var errNoBroker = errors.New("store has no broker")

func (s *Store) publish(ctx context.Context, channel string) {
	if s.broker == nil {
		return
	}
	sig := messaging.Signal{
		Channel:   channel,
		Source:    s.cfg.Source,
		Timestamp: s.Now().UTC(),
	}
	if err := s.broker.Publish(ctx, channel, sig); err != nil {
		s.logger.Warn("Failed to publish change signal", "channel", channel, "error", err.Error())
	}
}

// OnDBUpdate calls handler after every database write. The returned func unsubscribes.
func (s *Store) OnDBUpdate(handler func()) (func(), error) {
	return s.subscribe(ChannelDB, handler)
}

func (s *Store) OnNotificationsUpdate(handler func()) (func(), error) {
	return s.subscribe(ChannelNotifications, handler)
}

func (s *Store) OnMessagesUpdate(handler func()) (func(), error) {
	return s.subscribe(ChannelMessages, handler)
}

// Subscribe exposes the raw signal stream of one channel, for relays such as the websocket hub.
func (s *Store) Subscribe(channel string, handler func(messaging.Signal)) (func(), error) {
	if s.broker == nil {
		return nil, errNoBroker
	}
	return messaging.Listen(s.ctx, s.broker, channel, func(payload []byte) {
		sig := messaging.DecodeSignal(payload)
		if sig.Channel == "" {
			sig.Channel = channel
		}
		handler(sig)
	})
}

func (s *Store) subscribe(channel string, handler func()) (func(), error) {
	return s.Subscribe(channel, func(messaging.Signal) { handler() })
}
