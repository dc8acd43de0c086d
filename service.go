package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/RCK777-BALL/WorkPro3-sub006/chunk"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var errNoDeadLetterRepository = NewError(ErrCodeConfiguration, "no dead letter repository configured")

// Service is the relay between the application and the broker.
//
// It owns the Publisher, RetryQueue, RetryScheduler, chunk AssemblyStore and
// HealthReporter, and runs the retry and chunk cleanup loops between Start
// and Close.
//
// Thread safety: Safe for concurrent use.
type Service struct {
	cfg         Config
	broker      Broker
	logger      Logger
	notifier    NotificationService
	store       QueueStore
	deadLetters DeadLetterRepository
	clock       clock.Clock
	random      func() float64
	newID       func() string

	enabled       bool
	selfHealing   bool
	everConnected atomic.Bool

	producer  *connection
	consumer  *connection
	queue     *RetryQueue
	publisher *Publisher
	scheduler *RetryScheduler
	health    *HealthReporter
	assembly  *chunk.AssemblyStore
	listeners *listenerRegistry

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewService creates a new relay service with the provided options.
//
// Required options:
//   - WithLogger: logger instance
//
// Optional options:
//   - WithBroker: broker to deliver to (without it the relay is disabled)
//   - WithConfig: relay configuration (default: DefaultConfig())
//   - WithStateStore: retry queue persistence (default: memory only)
//   - WithDeadLetterRepository: durable dead-letter sink
//   - WithNotifications: signal receiver (default: NoOpNotificationService)
//   - WithClock, WithRandom, WithIDGenerator: test hooks
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		cfg:      DefaultConfig(),
		notifier: &NoOpNotificationService{},
		store:    memoryQueueStore{},
		clock:    clock.New(),
		random:   rand.Float64,
		newID:    uuid.NewString,
		baseCtx:  context.Background(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	s.enabled = s.cfg.Enabled && s.broker != nil
	if notifier, ok := s.broker.(ConnectionNotifier); ok {
		s.selfHealing = true
		notifier.OnConnectionChange(s.handleConnectionChange)
	}

	queue, err := NewRetryQueue(s.cfg.QueueLimit,
		WithQueueStore(s.store),
		WithQueueLogger(s.logger),
		WithQueueClock(s.clock),
		WithQueueIDGenerator(s.newID),
		WithDeadLetterHandler(s.handleDeadLetter),
	)
	if err != nil {
		return nil, err
	}

	s.producer = newConnection()
	s.consumer = newConnection()
	s.queue = queue
	s.listeners = newListenerRegistry()
	s.publisher = &Publisher{
		enabled:   s.enabled,
		chunkSize: s.cfg.ChunkSize,
		producer:  s.broker,
		conn:      s.producer,
		queue:     queue,
		notifier:  s.notifier,
		logger:    s.logger,
		clock:     s.clock,
		newID:     s.newID,
	}
	s.scheduler = &RetryScheduler{
		queue:       queue,
		publisher:   s.publisher,
		strategy:    s.cfg.Strategy(),
		notifier:    s.notifier,
		logger:      s.logger,
		clock:       s.clock,
		random:      s.random,
		ensureReady: s.ensureReady,
	}
	s.health = &HealthReporter{
		enabled:   s.enabled,
		producer:  s.producer,
		consumer:  s.consumer,
		queue:     queue,
		publisher: s.publisher,
	}

	if s.enabled {
		s.assembly, err = chunk.NewAssemblyStore(s.cfg.ChunkDir, s.cfg.ChunkSize, s.cfg.ChunkTTL,
			chunk.WithClock(s.clock), chunk.WithMaxMessageSize(s.cfg.MaxMessageSize))
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to create chunk store", err)
		}
	}

	return s, nil
}

// Start restores the retry queue, connects to the broker and starts the
// background loops. A failed connection is not fatal: messages are queued
// and the connection is retried on every scheduler tick.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return NewError(ErrCodeConfiguration, "service already started")
	}

	if err := s.queue.Restore(ctx); err != nil {
		s.logger.Errorf("Starting with an empty retry queue: %v", err)
	}
	if n := s.queue.PurgeExhausted(ctx, s.cfg.MaxAttempts); n > 0 {
		s.logger.Warnf("Dead-lettered %d restored messages that exhausted their attempts", n)
	}

	if !s.enabled {
		s.logger.Info("Relay disabled: no broker configured")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(runCtx)
	s.baseCtx = gctx
	s.cancel = cancel
	s.group = group

	s.connect(ctx)

	group.Go(func() error {
		s.scheduler.Run(gctx, s.cfg.RetryInterval)
		return nil
	})
	group.Go(func() error {
		s.runSweeper(gctx)
		return nil
	})

	s.logger.Infof("Relay started (queue limit %d, chunk size %d)", s.cfg.QueueLimit, s.cfg.ChunkSize)
	return nil
}

// Close stops the background loops and disconnects from the broker.
func (s *Service) Close() error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	_ = group.Wait()

	s.producer.markDisconnected()
	s.consumer.markDisconnected()

	if err := s.broker.Close(); err != nil {
		return NewErrorWithCause(ErrCodeDelivery, "failed to close broker", err)
	}
	s.logger.Info("Relay stopped")
	return nil
}

// Publish delivers payload to topic. It never fails: undeliverable messages
// are queued for retry. See Publisher.Publish.
func (s *Service) Publish(ctx context.Context, topic string, payload any) {
	s.publisher.Publish(ctx, topic, payload)
}

// Health returns the current health snapshot.
func (s *Service) Health() model.HealthSnapshot {
	return s.health.Health()
}

// Subscribe registers listener for topic. The broker subscription is made
// now when connected, otherwise on the next successful connect.
func (s *Service) Subscribe(ctx context.Context, topic string, listener Listener) error {
	if topic == "" {
		return NewError(ErrCodeValidation, "topic is required")
	}
	if listener == nil {
		return NewError(ErrCodeValidation, "listener is required")
	}

	first := s.listeners.add(topic, listener)
	if !first || !s.enabled || !s.producer.ready() {
		return nil
	}

	if err := s.broker.Subscribe(ctx, topic, s.handleRaw); err != nil {
		return NewErrorWithCause(ErrCodeDelivery, fmt.Sprintf("failed to subscribe to %s", topic), err)
	}
	s.logger.Infof("Subscribed to topic %s", topic)
	return nil
}

// Receive handles one raw wire message. Plain messages are delivered at once;
// chunk envelopes are delivered when their set is complete and verified.
// Returns the delivered payload, or false when nothing was delivered.
func (s *Service) Receive(ctx context.Context, topic string, raw []byte) (json.RawMessage, bool) {
	payload := raw

	if env, ok := chunk.ParseEnvelope(raw); ok {
		if s.assembly == nil {
			s.logger.Warnf("Dropping chunk for topic %s: relay disabled", topic)
			return nil, false
		}
		data, complete, err := s.assembly.Accept(env)
		if err != nil {
			s.logger.Warnf("Dropping chunk %d/%d of %s on topic %s: %v",
				env.Chunk.Index+1, env.Chunk.Total, env.Chunk.ID, topic, err)
			return nil, false
		}
		if !complete {
			return nil, false
		}
		payload = data
	}

	if !json.Valid(payload) {
		s.logger.Warnf("Dropping non-JSON message on topic %s (%d bytes)", topic, len(payload))
		return nil, false
	}

	n := s.listeners.dispatch(ctx, topic, payload)
	s.logger.Debugf("Delivered message on topic %s to %d listeners", topic, n)
	return payload, true
}

// Drain runs one retry drain now. See RetryScheduler.Drain.
func (s *Service) Drain(ctx context.Context) (delivered int, deadLettered int) {
	return s.scheduler.Drain(ctx)
}

// Sweep runs one chunk cleanup now. See chunk.AssemblyStore.Sweep.
func (s *Service) Sweep() (expired int, orphaned int, err error) {
	if s.assembly == nil {
		return 0, 0, nil
	}
	return s.assembly.Sweep()
}

// DeadLetters returns the newest dead letters from the configured repository,
// optionally limited to one topic.
func (s *Service) DeadLetters(ctx context.Context, topic string, limit int) ([]model.DeadLetter, error) {
	if s.deadLetters == nil {
		return nil, errNoDeadLetterRepository
	}

	var (
		items []model.DeadLetter
		err   error
	)
	if topic == "" {
		items, err = s.deadLetters.FindRecent(ctx, limit)
	} else {
		items, err = s.deadLetters.FindByTopic(ctx, topic, limit)
	}
	if err != nil {
		if IsNoData(err) {
			return []model.DeadLetter{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load dead letters", err)
	}
	return items, nil
}

// DeleteDeadLetter removes a stored dead letter once an operator has dealt with it.
func (s *Service) DeleteDeadLetter(ctx context.Context, id int64) error {
	if s.deadLetters == nil {
		return errNoDeadLetterRepository
	}
	if err := s.deadLetters.Delete(ctx, model.DeadLetter{ID: id}); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to delete dead letter", err)
	}
	return nil
}

// DeadLetterStats returns dead-letter counts by reason.
func (s *Service) DeadLetterStats(ctx context.Context) (model.DeadLetterStats, error) {
	if s.deadLetters == nil {
		return model.DeadLetterStats{}, errNoDeadLetterRepository
	}
	stats, err := s.deadLetters.GetStats(ctx)
	if err != nil {
		return stats, NewErrorWithCause(ErrCodeDatabase, "failed to load dead letter stats", err)
	}
	return stats, nil
}

// RetrySchedule describes the configured backoff schedule.
func (s *Service) RetrySchedule() string {
	return s.scheduler.GetRetrySchedule()
}

// connect attempts a broker connection unless one is already in progress.
func (s *Service) connect(ctx context.Context) bool {
	if !s.producer.beginConnect() {
		return s.producer.ready()
	}
	s.consumer.beginConnect()

	if err := s.broker.Connect(ctx); err != nil {
		s.producer.markFailed()
		s.consumer.markFailed()
		s.logger.Warnf("Broker connection failed: %v", err)
		return false
	}

	s.onConnected(ctx)
	return true
}

func (s *Service) onConnected(ctx context.Context) {
	s.everConnected.Store(true)
	if s.producer.markReady() {
		s.logger.Info("Broker connection ready")
	}

	for _, topic := range s.listeners.topics() {
		if err := s.broker.Subscribe(ctx, topic, s.handleRaw); err != nil {
			s.consumer.markFailed()
			s.logger.Errorf("Failed to subscribe to %s: %v", topic, err)
			return
		}
	}
	s.consumer.markReady()
}

// ensureReady is the scheduler's readiness hook. Brokers that reconnect on
// their own are left alone once they have connected at least once.
func (s *Service) ensureReady(ctx context.Context) bool {
	if s.producer.ready() {
		return true
	}
	if !s.enabled {
		return false
	}
	if s.selfHealing && s.everConnected.Load() {
		return false
	}
	return s.connect(ctx)
}

func (s *Service) handleConnectionChange(connected bool, err error) {
	if connected {
		s.everConnected.Store(true)
		s.consumer.markReady()
		if s.producer.markReady() {
			s.logger.Info("Broker connection restored")
		}
		return
	}

	s.producer.markFailed()
	s.consumer.markFailed()
	s.logger.Warnf("Broker connection lost: %v", err)
}

func (s *Service) handleRaw(topic string, raw []byte) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	s.Receive(ctx, topic, raw)
}

func (s *Service) handleDeadLetter(ctx context.Context, dl model.DeadLetter) {
	s.logger.Warnf("Dead-lettered message %s for topic %s after %d attempts (%s): %s",
		dl.MessageID, dl.Topic, dl.Attempts, dl.Reason, dl.LastError)

	if err := s.notifier.NotifyDeadLetter(ctx, dl); err != nil {
		s.logger.Errorf("Failed to send dead letter notification: %v", err)
	}

	if s.deadLetters == nil {
		return
	}
	if _, err := s.deadLetters.Save(ctx, dl); err != nil {
		s.logger.Errorf("Failed to store dead letter %s: %v", dl.MessageID, err)
	}
}

func (s *Service) runSweeper(ctx context.Context) {
	ticker := s.clock.Ticker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, orphaned, err := s.assembly.Sweep()
			if err != nil {
				s.logger.Errorf("Chunk sweep failed: %v", err)
			}
			if expired > 0 || orphaned > 0 {
				s.logger.Infof("Chunk sweep: expired=%d, orphaned=%d", expired, orphaned)
			}
		}
	}
}
