package relay

import "context"

// Producer sends one wire message to the broker.
type Producer interface {
	Send(ctx context.Context, topic string, value []byte) error
}

// Broker is the external pub/sub system the relay delivers to.
// adapters/mqtt and adapters/memory provide implementations.
type Broker interface {
	Producer

	// Connect establishes the connection. It may be called again after a failure.
	Connect(ctx context.Context) error

	// Subscribe routes raw messages on topic to handler. Subscribing again to
	// the same topic replaces the handler.
	Subscribe(ctx context.Context, topic string, handler func(topic string, raw []byte)) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionNotifier is implemented by brokers that reconnect on their own and
// report connectivity changes. The relay then leaves reconnection to the broker.
type ConnectionNotifier interface {
	OnConnectionChange(func(connected bool, err error))
}
