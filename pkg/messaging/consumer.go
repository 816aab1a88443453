package messaging

import (
	"context"
)

// Consume subscribes to channel and hands every payload to handle until ctx is
// done or the broker closes the subscription. Handler errors go to onError and do
// not stop consumption; onError may be nil.
func Consume(ctx context.Context, broker Broker, channel string, handle func([]byte) error, onError func(error)) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := handle(msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
