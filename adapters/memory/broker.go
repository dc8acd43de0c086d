// Package memory provides an in-process broker for examples and tests.
//
// Sent messages are recorded and dispatched synchronously to the handler
// subscribed to the same topic. Connect and send failures can be injected.
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("memory broker: closed")

// Message is a recorded wire message.
type Message struct {
	Topic string
	Value []byte
}

// Broker is an in-memory relay.Broker.
type Broker struct {
	mu         sync.Mutex
	connected  bool
	closed     bool
	connectErr error
	sendErr    error
	failNext   int
	failErr    error
	connects   int
	sent       []Message
	handlers   map[string]func(topic string, raw []byte)
}

// NewBroker creates a disconnected broker.
func NewBroker() *Broker {
	return &Broker{handlers: make(map[string]func(string, []byte))}
}

// Connect marks the broker connected unless a connect error is set.
func (b *Broker) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connects++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	b.closed = false
	return nil
}

// Send records the message and hands it to the topic's handler.
func (b *Broker) Send(ctx context.Context, topic string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	switch {
	case b.closed:
		b.mu.Unlock()
		return ErrClosed
	case b.failNext > 0:
		b.failNext--
		err := b.failErr
		b.mu.Unlock()
		return err
	case b.sendErr != nil:
		err := b.sendErr
		b.mu.Unlock()
		return err
	}

	msg := Message{Topic: topic, Value: append([]byte(nil), value...)}
	b.sent = append(b.sent, msg)
	h := b.handlers[topic]
	b.mu.Unlock()

	if h != nil {
		h(topic, msg.Value)
	}
	return nil
}

// Subscribe sets the handler for topic, replacing any previous one.
func (b *Broker) Subscribe(_ context.Context, topic string, handler func(topic string, raw []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = handler
	return nil
}

// Close disconnects the broker. Subscriptions are kept.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connected = false
	b.closed = true
	return nil
}

// SetConnectError makes Connect fail with err. Nil restores normal behavior.
func (b *Broker) SetConnectError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectErr = err
}

// SetSendError makes every Send fail with err. Nil restores normal behavior.
func (b *Broker) SetSendError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// FailNextSends makes the next n sends fail with err.
func (b *Broker) FailNextSends(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = n
	b.failErr = err
}

// Sent returns a copy of the successfully sent messages in send order.
func (b *Broker) Sent() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, len(b.sent))
	copy(out, b.sent)
	return out
}

// Connects returns how many times Connect was called.
func (b *Broker) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// Connected reports whether the last Connect succeeded and Close was not called since.
func (b *Broker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Deliver injects a raw message as if it arrived from the broker.
// It reports whether a handler was subscribed.
func (b *Broker) Deliver(topic string, raw []byte) bool {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()

	if h == nil {
		return false
	}
	h(topic, raw)
	return true
}
