package model

import (
	"encoding/json"
	"time"
)

// QueuedMessage is a message that failed immediate delivery and waits in the
// retry queue.
//
// Lifecycle:
//  1. Created by the publisher on send failure (Attempts=0, NextAttemptAt=EnqueuedAt)
//  2. Each failed retry increments Attempts and pushes NextAttemptAt out
//  3. Removed on successful delivery or when dead-lettered
//
// Attempts never decreases and NextAttemptAt is never before EnqueuedAt.
type QueuedMessage struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	EnqueuedAt    time.Time       `json:"enqueuedAt"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	LastError     string          `json:"lastError,omitempty"`
}

// NewQueuedMessage creates a queue entry that is due immediately.
// The reason the message could not be delivered is kept as LastError.
func NewQueuedMessage(id, topic string, payload json.RawMessage, reason string, now time.Time) QueuedMessage {
	return QueuedMessage{
		ID:            id,
		Topic:         topic,
		Payload:       payload,
		Attempts:      0,
		EnqueuedAt:    now,
		NextAttemptAt: now,
		LastError:     reason,
	}
}

// RecordFailure counts a failed delivery attempt.
func (m *QueuedMessage) RecordFailure(err error) {
	m.Attempts++
	if err != nil {
		m.LastError = err.Error()
	}
}

// ScheduleRetry sets the next attempt time to now+delay.
func (m *QueuedMessage) ScheduleRetry(now time.Time, delay time.Duration) {
	next := now.Add(delay)
	if next.Before(m.EnqueuedAt) {
		next = m.EnqueuedAt
	}
	m.NextAttemptAt = next
}

// IsDue reports whether the message may be attempted at now.
func (m QueuedMessage) IsDue(now time.Time) bool {
	return !m.NextAttemptAt.After(now)
}

// ShouldDeadLetter reports whether the message has exhausted its attempts.
func (m QueuedMessage) ShouldDeadLetter(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

// GetAge returns how long the message has been queued.
func (m QueuedMessage) GetAge(now time.Time) time.Duration {
	return now.Sub(m.EnqueuedAt)
}
