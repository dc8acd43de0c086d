package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// ReasonProducerUnavailable is the LastError of messages queued while the
// broker connection was not ready.
const ReasonProducerUnavailable = "producer unavailable"

// DeadLetterHandler is called for every message removed from the queue
// without being delivered. It runs outside the queue lock.
type DeadLetterHandler func(ctx context.Context, dl model.DeadLetter)

// RetryQueue is a bounded FIFO of messages waiting for redelivery.
//
// When the queue is full the oldest entry is evicted and dead-lettered, so
// newer events win over very stale ones. Every mutation writes a full snapshot
// through the QueueStore while the lock is held, so snapshots land in mutation
// order. Snapshot failures are logged and the in-memory queue keeps working.
//
// Thread safety: Safe for concurrent use.
type RetryQueue struct {
	mu           sync.Mutex
	items        []model.QueuedMessage
	limit        int
	backpressure bool

	store        QueueStore
	clock        clock.Clock
	logger       Logger
	newID        func() string
	onDeadLetter DeadLetterHandler
}

// QueueOption configures a RetryQueue.
type QueueOption func(*RetryQueue) error

// WithQueueStore sets the snapshot store. Default: memory only.
func WithQueueStore(store QueueStore) QueueOption {
	return func(q *RetryQueue) error {
		if store == nil {
			return fmt.Errorf("queue store cannot be nil")
		}
		q.store = store
		return nil
	}
}

// WithQueueLogger sets the logger. Default: NoopLogger.
func WithQueueLogger(logger Logger) QueueOption {
	return func(q *RetryQueue) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		q.logger = logger
		return nil
	}
}

// WithQueueClock sets the clock used for enqueue timestamps.
func WithQueueClock(c clock.Clock) QueueOption {
	return func(q *RetryQueue) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		q.clock = c
		return nil
	}
}

// WithQueueIDGenerator sets the message id generator. Default: random UUIDs.
func WithQueueIDGenerator(gen func() string) QueueOption {
	return func(q *RetryQueue) error {
		if gen == nil {
			return fmt.Errorf("id generator cannot be nil")
		}
		q.newID = gen
		return nil
	}
}

// WithDeadLetterHandler sets the callback for evicted and exhausted messages.
func WithDeadLetterHandler(h DeadLetterHandler) QueueOption {
	return func(q *RetryQueue) error {
		q.onDeadLetter = h
		return nil
	}
}

// NewRetryQueue creates an empty queue holding at most limit messages.
// Call Restore to load a previously saved snapshot.
func NewRetryQueue(limit int, opts ...QueueOption) (*RetryQueue, error) {
	if limit <= 0 {
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("queue limit must be > 0, got %d", limit))
	}

	q := &RetryQueue{
		limit:  limit,
		store:  memoryQueueStore{},
		clock:  clock.New(),
		logger: &NoopLogger{},
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply queue option", err)
		}
	}

	return q, nil
}

// Enqueue appends a message that is due immediately, with reason as its
// LastError. If the queue is full the oldest entry is dead-lettered first.
func (q *RetryQueue) Enqueue(ctx context.Context, topic string, payload json.RawMessage, reason string) model.QueuedMessage {
	now := q.clock.Now()
	msg := model.NewQueuedMessage(q.newID(), topic, payload, reason, now)

	var evicted []model.DeadLetter

	q.mu.Lock()
	for len(q.items) >= q.limit {
		oldest := q.items[0]
		q.removeAtLocked(0)
		evicted = append(evicted, model.NewDeadLetter(oldest, model.ReasonQueueOverflow, now))
	}
	q.items = append(q.items, msg)
	if q.overThresholdLocked() {
		q.backpressure = true
	}
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Debugf("Queued message %s for topic %s: %s", msg.ID, topic, reason)
	for _, dl := range evicted {
		q.logger.Warnf("Retry queue full, evicted message %s for topic %s", dl.MessageID, dl.Topic)
		q.emitDeadLetter(ctx, dl)
	}

	return msg
}

// Peek returns the head of the queue without removing it.
func (q *RetryQueue) Peek() (model.QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.QueuedMessage{}, false
	}
	return q.items[0], true
}

// Complete removes a delivered message. Backpressure clears once the
// queue is back below the high-water mark.
func (q *RetryQueue) Complete(ctx context.Context, id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.removeLocked(id) {
		return false
	}
	if q.backpressure && !q.overThresholdLocked() {
		q.backpressure = false
	}
	q.persistLocked(ctx)
	return true
}

// Update replaces the queued copy of msg, matched by ID.
func (q *RetryQueue) Update(ctx context.Context, msg model.QueuedMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == msg.ID {
			q.items[i] = msg
			q.persistLocked(ctx)
			return true
		}
	}
	return false
}

// DeadLetter removes msg from the queue and hands it to the dead-letter handler.
// Backpressure is left as it is; only a successful delivery clears it.
func (q *RetryQueue) DeadLetter(ctx context.Context, msg model.QueuedMessage, reason string) (model.DeadLetter, bool) {
	q.mu.Lock()
	removed := q.removeLocked(msg.ID)
	if removed {
		q.persistLocked(ctx)
	}
	q.mu.Unlock()

	if !removed {
		return model.DeadLetter{}, false
	}

	dl := model.NewDeadLetter(msg, reason, q.clock.Now())
	q.emitDeadLetter(ctx, dl)
	return dl, true
}

// PurgeExhausted dead-letters every message that already used maxAttempts.
// Used after Restore, since a snapshot written by an older configuration may
// hold messages the current limit no longer allows.
func (q *RetryQueue) PurgeExhausted(ctx context.Context, maxAttempts int) int {
	now := q.clock.Now()
	var purged []model.DeadLetter

	q.mu.Lock()
	kept := q.items[:0]
	for _, msg := range q.items {
		if msg.ShouldDeadLetter(maxAttempts) {
			purged = append(purged, model.NewDeadLetter(msg, model.ReasonMaxAttempts, now))
			continue
		}
		kept = append(kept, msg)
	}
	clear(q.items[len(kept):])
	q.items = kept
	if len(purged) > 0 {
		q.persistLocked(ctx)
	}
	q.mu.Unlock()

	for _, dl := range purged {
		q.emitDeadLetter(ctx, dl)
	}
	return len(purged)
}

// Len returns the number of queued messages.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Backpressure reports whether the queue is near capacity.
func (q *RetryQueue) Backpressure() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.backpressure
}

// Snapshot returns a copy of the queued messages in FIFO order.
func (q *RetryQueue) Snapshot() []model.QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.QueuedMessage, len(q.items))
	copy(out, q.items)
	return out
}

// Restore replaces the queue content with the stored snapshot.
// If the snapshot holds more than limit messages the newest ones are kept.
func (q *RetryQueue) Restore(ctx context.Context) error {
	items, err := q.store.Load(ctx)
	if err != nil {
		return NewErrorWithCause(ErrCodePersistence, "failed to load queue snapshot", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(items) > q.limit {
		q.logger.Warnf("Queue snapshot holds %d messages, keeping newest %d", len(items), q.limit)
		items = items[len(items)-q.limit:]
	}
	q.items = append([]model.QueuedMessage(nil), items...)
	q.backpressure = q.overThresholdLocked()

	if len(q.items) > 0 {
		q.logger.Infof("Restored %d queued messages", len(q.items))
	}
	return nil
}

// overThresholdLocked reports occupancy >= 80% of the limit.
func (q *RetryQueue) overThresholdLocked() bool {
	return len(q.items)*5 >= q.limit*4
}

func (q *RetryQueue) removeLocked(id string) bool {
	for i := range q.items {
		if q.items[i].ID == id {
			q.removeAtLocked(i)
			return true
		}
	}
	return false
}

// removeAtLocked shifts the tail down and zeroes the vacated slot so the
// backing array does not keep the removed payload alive.
func (q *RetryQueue) removeAtLocked(i int) {
	last := len(q.items) - 1
	copy(q.items[i:], q.items[i+1:])
	q.items[last] = model.QueuedMessage{}
	q.items = q.items[:last]
}

func (q *RetryQueue) persistLocked(ctx context.Context) {
	snapshot := make([]model.QueuedMessage, len(q.items))
	copy(snapshot, q.items)

	if err := q.store.Save(ctx, snapshot); err != nil {
		q.logger.Errorf("Failed to save queue snapshot: %v", err)
	}
}

func (q *RetryQueue) emitDeadLetter(ctx context.Context, dl model.DeadLetter) {
	if q.onDeadLetter != nil {
		q.onDeadLetter(ctx, dl)
	}
}
