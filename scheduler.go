package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/RCK777-BALL/WorkPro3-sub006/retry"
	"github.com/benbjohnson/clock"
)

// RetryScheduler drains the RetryQueue with exponential backoff.
//
// Draining is strict FIFO: a head message that is not yet due, or that fails
// and is rescheduled, stops the drain so later messages for the same topic
// never overtake it. Messages that fail maxAttempts times are dead-lettered
// and the drain moves on to the next one.
//
// Thread safety: Safe for concurrent use. Only one drain runs at a time;
// overlapping calls return immediately.
type RetryScheduler struct {
	queue     *RetryQueue
	publisher *Publisher
	strategy  retry.Strategy
	notifier  NotificationService
	logger    Logger
	clock     clock.Clock
	random    func() float64

	// ensureReady reports whether the producer can send, reconnecting first
	// when the broker does not reconnect on its own.
	ensureReady func(ctx context.Context) bool

	draining atomic.Bool
}

// Drain delivers due messages from the head of the queue.
// Returns the number of delivered and dead-lettered messages.
func (s *RetryScheduler) Drain(ctx context.Context) (delivered int, deadLettered int) {
	if !s.draining.CompareAndSwap(false, true) {
		return 0, 0
	}
	defer s.draining.Store(false)

	if s.queue.Len() == 0 {
		return 0, 0
	}
	if !s.ensureReady(ctx) {
		s.logger.Debugf("Producer not ready, skipping retry drain (%d queued)", s.queue.Len())
		return 0, 0
	}

	for ctx.Err() == nil {
		msg, ok := s.queue.Peek()
		if !ok {
			break
		}
		now := s.clock.Now()
		if !msg.IsDue(now) {
			break
		}

		err := s.publisher.deliver(ctx, msg.Topic, msg.Payload)
		if err == nil {
			s.queue.Complete(ctx, msg.ID)
			delivered++
			s.logger.Debugf("Retried message %s for topic %s delivered after %d failed attempts (queued %v)",
				msg.ID, msg.Topic, msg.Attempts, msg.GetAge(now))
			if nerr := s.notifier.NotifyRetrySuccess(ctx, msg); nerr != nil {
				s.logger.Errorf("Failed to send retry success notification: %v", nerr)
			}
			continue
		}

		msg.RecordFailure(err)
		s.publisher.recordFailure(msg.Topic, err)

		if s.strategy.ShouldDeadLetter(msg.Attempts) {
			if _, ok := s.queue.DeadLetter(ctx, msg, model.ReasonMaxAttempts); ok {
				deadLettered++
			}
			continue
		}

		delay := s.strategy.NextDelay(msg.Attempts, s.random())
		msg.ScheduleRetry(now, delay)
		s.queue.Update(ctx, msg)

		s.logger.Infof("Retry of message %s for topic %s failed (attempt %d/%d), next in %v: %v",
			msg.ID, msg.Topic, msg.Attempts, s.strategy.MaxAttempts, delay, err)
		if nerr := s.notifier.NotifyRetryScheduled(ctx, msg, delay); nerr != nil {
			s.logger.Errorf("Failed to send retry scheduled notification: %v", nerr)
		}
		break
	}

	if delivered > 0 || deadLettered > 0 {
		s.logger.Infof("Retry drain: delivered=%d, dead-lettered=%d, remaining=%d",
			delivered, deadLettered, s.queue.Len())
	}
	return delivered, deadLettered
}

// Run drains the queue every interval until ctx is cancelled.
func (s *RetryScheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	s.logger.Info("Retry scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retry scheduler stopped")
			return
		case <-ticker.C:
			s.Drain(ctx)
		}
	}
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
func (s *RetryScheduler) GetRetrySchedule() string {
	return s.strategy.GetRetrySchedule()
}
