package relay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/adapters/memory"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// testStore is an in-memory QueueStore that records every save.
type testStore struct {
	mu      sync.Mutex
	items   []model.QueuedMessage
	saves   int
	saveErr error
	loadErr error
}

func (s *testStore) Load(context.Context) ([]model.QueuedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]model.QueuedMessage(nil), s.items...), nil
}

func (s *testStore) Save(_ context.Context, items []model.QueuedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items = append([]model.QueuedMessage(nil), items...)
	return nil
}

func (s *testStore) snapshot() ([]model.QueuedMessage, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.QueuedMessage(nil), s.items...), s.saves
}

// testDeadLetterRepo is an in-memory DeadLetterRepository.
type testDeadLetterRepo struct {
	mu    sync.Mutex
	items []model.DeadLetter
}

func (r *testDeadLetterRepo) Save(_ context.Context, m model.DeadLetter) (model.DeadLetter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = int64(len(r.items) + 1)
	r.items = append(r.items, m)
	return m, nil
}

func (r *testDeadLetterRepo) Delete(_ context.Context, m model.DeadLetter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, dl := range r.items {
		if dl.ID == m.ID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNoData
}

func (r *testDeadLetterRepo) FindRecent(_ context.Context, limit int) ([]model.DeadLetter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return nil, ErrNoData
	}
	var out []model.DeadLetter
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.items[i])
	}
	return out, nil
}

func (r *testDeadLetterRepo) FindByTopic(ctx context.Context, topic string, limit int) ([]model.DeadLetter, error) {
	all, err := r.FindRecent(ctx, math.MaxInt)
	if err != nil {
		return nil, err
	}
	var out []model.DeadLetter
	for _, dl := range all {
		if dl.Topic == topic && len(out) < limit {
			out = append(out, dl)
		}
	}
	return out, nil
}

func (r *testDeadLetterRepo) GetStats(context.Context) (model.DeadLetterStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := model.DeadLetterStats{TotalItems: len(r.items)}
	for _, dl := range r.items {
		switch dl.Reason {
		case model.ReasonMaxAttempts:
			stats.Exhausted++
		case model.ReasonQueueOverflow:
			stats.Overflowed++
		}
	}
	return stats, nil
}

// recordingNotifier records every signal it receives.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []model.QueuedMessage
	scheduled []time.Duration
	dead      []model.DeadLetter
	failures  []string
}

func (n *recordingNotifier) NotifyRetrySuccess(_ context.Context, msg model.QueuedMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
	return nil
}

func (n *recordingNotifier) NotifyRetryScheduled(_ context.Context, _ model.QueuedMessage, delay time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = append(n.scheduled, delay)
	return nil
}

func (n *recordingNotifier) NotifyDeadLetter(_ context.Context, dl model.DeadLetter) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dead = append(n.dead, dl)
	return nil
}

func (n *recordingNotifier) NotifyDeliveryFailure(_ context.Context, topic string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, topic)
	return nil
}

func (n *recordingNotifier) deadReasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.dead))
	for i, dl := range n.dead {
		out[i] = dl.Reason
	}
	return out
}

// recordingLogger keeps formatted log lines.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) { l.add("DEBUG", format, args...) }
func (l *recordingLogger) Infof(format string, args ...interface{})  { l.add("INFO", format, args...) }
func (l *recordingLogger) Warnf(format string, args ...interface{})  { l.add("WARN", format, args...) }
func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.add("ERROR", format, args...) }
func (l *recordingLogger) Info(message string)                       { l.add("INFO", "%s", message) }

func (l *recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// sequentialIDs returns ids "m1", "m2", ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("m%d", n)
	}
}

// harness wires a Service to an in-memory broker and a mock clock.
type harness struct {
	svc      *Service
	broker   *memory.Broker
	clock    *clock.Mock
	store    *testStore
	notifier *recordingNotifier
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ChunkDir = t.TempDir()
	return cfg
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		broker:   memory.NewBroker(),
		clock:    clock.NewMock(),
		store:    &testStore{},
		notifier: &recordingNotifier{},
	}
	h.clock.Set(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	base := []Option{
		WithBroker(h.broker),
		WithLogger(&NoopLogger{}),
		WithConfig(cfg),
		WithStateStore(h.store),
		WithNotifications(h.notifier),
		WithClock(h.clock),
		WithRandom(func() float64 { return 0.5 }),
		WithIDGenerator(sequentialIDs()),
	}

	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

// connect brings the producer up without starting the background loops.
func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.True(t, h.svc.connect(context.Background()))
}

var errBrokerDown = errors.New("broker down")
