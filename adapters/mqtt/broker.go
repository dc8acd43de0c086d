// Package mqtt adapts an MQTT broker, through the Eclipse Paho client, to
// the relay's Broker contract.
//
// Application topics are mapped under a configurable prefix, published with
// QoS 1 and restored on every reconnect. Paho reconnects on its own, so the
// adapter implements relay.ConnectionNotifier.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: operation timed out")

// Config configures the MQTT broker adapter.
type Config struct {
	Brokers     []string      // Broker URLs, e.g. tcp://localhost:1883
	ClientID    string        // MQTT client id
	TopicPrefix string        // Prepended to every application topic
	QoS         byte          // Publish and subscribe QoS (default 1)
	Timeout     time.Duration // Ack timeout for connect, publish and subscribe (default 10s)
}

// Broker is a relay.Broker backed by an MQTT connection.
type Broker struct {
	client  paho.Client
	prefix  string
	qos     byte
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[string]func(topic string, raw []byte)
	onChange func(connected bool, err error)
}

// New creates a broker adapter. It does not connect; call Connect.
func New(cfg Config) (*Broker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("mqtt: at least one broker URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("mqtt: client id is required")
	}

	b := newBroker(cfg)

	opts := paho.NewClientOptions().
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(b.timeout).
		SetOnConnectHandler(b.handleConnect).
		SetConnectionLostHandler(b.handleConnectionLost)
	for _, url := range cfg.Brokers {
		opts.AddBroker(url)
	}

	b.client = paho.NewClient(opts)
	return b, nil
}

func newBroker(cfg Config) *Broker {
	b := &Broker{
		prefix:   cfg.TopicPrefix,
		qos:      cfg.QoS,
		timeout:  cfg.Timeout,
		handlers: make(map[string]func(string, []byte)),
	}
	if b.qos == 0 {
		b.qos = 1
	}
	if b.timeout <= 0 {
		b.timeout = 10 * time.Second
	}
	return b
}

// Connect opens the connection and waits for the broker to accept it.
func (b *Broker) Connect(ctx context.Context) error {
	if err := b.wait(ctx, b.client.Connect()); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	return nil
}

// Send publishes value to topic and waits for the broker acknowledgement.
func (b *Broker) Send(ctx context.Context, topic string, value []byte) error {
	if !b.client.IsConnectionOpen() {
		return errors.New("mqtt: not connected")
	}
	if err := b.wait(ctx, b.client.Publish(b.wireTopic(topic), b.qos, false, value)); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe routes messages on topic to handler. The subscription is restored
// after every reconnect.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler func(topic string, raw []byte)) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()

	if !b.client.IsConnectionOpen() {
		return nil
	}
	return b.subscribe(ctx, topic, handler)
}

// OnConnectionChange registers the connectivity callback.
func (b *Broker) OnConnectionChange(fn func(connected bool, err error)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Close disconnects, giving in-flight work 250ms to finish.
func (b *Broker) Close() error {
	b.client.Disconnect(250)
	return nil
}

func (b *Broker) subscribe(ctx context.Context, topic string, handler func(string, []byte)) error {
	tok := b.client.Subscribe(b.wireTopic(topic), b.qos, func(_ paho.Client, msg paho.Message) {
		handler(b.appTopic(msg.Topic()), msg.Payload())
	})
	if err := b.wait(ctx, tok); err != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, err)
	}
	return nil
}

// handleConnect runs on every (re)connect. Clean sessions drop subscriptions,
// so they are restored before the relay is told the connection is ready.
func (b *Broker) handleConnect(_ paho.Client) {
	b.mu.RLock()
	handlers := make(map[string]func(string, []byte), len(b.handlers))
	for t, h := range b.handlers {
		handlers[t] = h
	}
	b.mu.RUnlock()

	var errs []error
	for topic, h := range handlers {
		if err := b.subscribe(context.Background(), topic, h); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		b.notify(false, err)
		return
	}
	b.notify(true, nil)
}

func (b *Broker) handleConnectionLost(_ paho.Client, err error) {
	b.notify(false, err)
}

func (b *Broker) notify(connected bool, err error) {
	b.mu.RLock()
	fn := b.onChange
	b.mu.RUnlock()

	if fn != nil {
		fn(connected, err)
	}
}

func (b *Broker) wait(ctx context.Context, tok paho.Token) error {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

func (b *Broker) wireTopic(topic string) string {
	return b.prefix + topic
}

func (b *Broker) appTopic(wire string) string {
	return strings.TrimPrefix(wire, b.prefix)
}
