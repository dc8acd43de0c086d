package relay

import (
	"fmt"

	"github.com/benbjohnson/clock"
)

// Option is a function that configures a Service.
//
// Example:
//
//	svc, err := relay.NewService(
//	    relay.WithBroker(broker),
//	    relay.WithLogger(logger),
//	    relay.WithStateStore(file.NewQueueStore("./data/relay-queue.json")),
//	    relay.WithConfig(cfg), // optional
//	)
type Option func(*Service) error

// WithBroker sets the broker the relay delivers to.
// Without a broker the relay is disabled and Publish drops messages.
func WithBroker(broker Broker) Option {
	return func(s *Service) error {
		if broker == nil {
			return fmt.Errorf("broker cannot be nil")
		}
		s.broker = broker
		return nil
	}
}

// WithLogger sets the logger instance for the service.
// Logger is required and must not be nil.
//
// This is a required option for NewService.
//
// Use NoopLogger for silent operation or adapters/zaplog for zap.
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithConfig sets the relay configuration.
// This is an optional configuration - if not provided, DefaultConfig() is used.
func WithConfig(cfg Config) Option {
	return func(s *Service) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		s.cfg = cfg
		return nil
	}
}

// WithStateStore sets where the retry queue is persisted between restarts.
// This is an optional configuration - by default the queue lives in memory only.
func WithStateStore(store QueueStore) Option {
	return func(s *Service) error {
		if store == nil {
			return fmt.Errorf("state store cannot be nil")
		}
		s.store = store
		return nil
	}
}

// WithDeadLetterRepository sets a durable sink for dead letters.
// This is an optional configuration - without it dead letters are only
// logged and signalled.
func WithDeadLetterRepository(repo DeadLetterRepository) Option {
	return func(s *Service) error {
		if repo == nil {
			return fmt.Errorf("dead letter repository cannot be nil")
		}
		s.deadLetters = repo
		return nil
	}
}

// WithNotifications sets the receiver of retry and dead-letter signals.
// This is an optional configuration - if not provided, NoOpNotificationService is used.
//
// Combine several services with NotificationFanout.
func WithNotifications(service NotificationService) Option {
	return func(s *Service) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		s.notifier = service
		return nil
	}
}

// WithClock sets the clock driving timestamps, backoff and the background loops.
// Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(s *Service) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.clock = c
		return nil
	}
}

// WithRandom sets the jitter source. It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(s *Service) error {
		if random == nil {
			return fmt.Errorf("random source cannot be nil")
		}
		s.random = random
		return nil
	}
}

// WithIDGenerator sets the generator for queued message and chunk set ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) error {
		if gen == nil {
			return fmt.Errorf("id generator cannot be nil")
		}
		s.newID = gen
		return nil
	}
}
