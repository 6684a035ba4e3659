package messaging

import (
	"context"
)

// Broker publishes and consumes application events. Delivery is at most
// once; consumers must tolerate missed messages.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
