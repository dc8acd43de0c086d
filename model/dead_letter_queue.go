package model

import "time"

// Dead-letter reasons.
const (
	// ReasonMaxAttempts marks a message that failed maxAttempts deliveries.
	ReasonMaxAttempts = "max attempts exceeded"

	// ReasonQueueOverflow marks a message evicted because the retry queue was full.
	ReasonQueueOverflow = "queue overflow"
)

// DeadLetter is a message the relay gave up on.
//
// Dead letters are always logged and signalled. When a dead-letter repository
// is configured they are also stored for operator inspection.
type DeadLetter struct {
	ID             int64     `json:"id" db:"id"`
	MessageID      string    `json:"messageId" db:"message_id"`
	Topic          string    `json:"topic" db:"topic"`
	Payload        string    `json:"payload" db:"payload"`
	Attempts       int       `json:"attempts" db:"attempts"`
	LastError      string    `json:"lastError" db:"last_error"`
	Reason         string    `json:"reason" db:"reason"`
	EnqueuedAt     time.Time `json:"enqueuedAt" db:"enqueued_at"`
	DeadLetteredAt time.Time `json:"deadLetteredAt" db:"dead_lettered_at"`
}

// TableName returns the database table name for DeadLetter.
func (d DeadLetter) TableName() string {
	return tablePrefix + "dead_letters"
}

// NewDeadLetter creates a dead letter from a queued message.
func NewDeadLetter(msg QueuedMessage, reason string, now time.Time) DeadLetter {
	return DeadLetter{
		MessageID:      msg.ID,
		Topic:          msg.Topic,
		Payload:        string(msg.Payload),
		Attempts:       msg.Attempts,
		LastError:      msg.LastError,
		Reason:         reason,
		EnqueuedAt:     msg.EnqueuedAt,
		DeadLetteredAt: now,
	}
}

// DeadLetterStats summarises the dead-letter store for dashboards.
type DeadLetterStats struct {
	TotalItems  int       `json:"totalItems"`
	Exhausted   int       `json:"exhausted"`
	Overflowed  int       `json:"overflowed"`
	LastUpdated time.Time `json:"lastUpdated"`
}
