package relay

import (
	"context"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
)

// QueueStore persists the retry queue between process restarts.
//
// Save receives the complete queue after every mutation and replaces the
// previous snapshot. Implementations need not be safe for concurrent use;
// the retry queue serializes calls.
type QueueStore interface {
	// Load returns the last saved snapshot, or an empty slice when none exists.
	Load(ctx context.Context) ([]model.QueuedMessage, error)

	// Save replaces the stored snapshot with items.
	Save(ctx context.Context, items []model.QueuedMessage) error
}

// DeadLetterRepository stores messages the relay gave up on.
type DeadLetterRepository interface {
	// Save creates a dead letter (if ID=0) or updates an existing one.
	Save(ctx context.Context, m model.DeadLetter) (model.DeadLetter, error)

	// Delete permanently removes a dead letter.
	// Returns ErrNoData if it does not exist.
	Delete(ctx context.Context, m model.DeadLetter) error

	// FindRecent returns the newest dead letters first.
	// Returns ErrNoData if none exist.
	FindRecent(ctx context.Context, limit int) ([]model.DeadLetter, error)

	// FindByTopic returns the newest dead letters for a topic.
	// Returns ErrNoData if none exist.
	FindByTopic(ctx context.Context, topic string, limit int) ([]model.DeadLetter, error)

	// GetStats returns aggregate counts by reason.
	GetStats(ctx context.Context) (model.DeadLetterStats, error)
}

// memoryQueueStore keeps no state; the queue lives in memory only.
type memoryQueueStore struct{}

func (memoryQueueStore) Load(context.Context) ([]model.QueuedMessage, error) { return nil, nil }

func (memoryQueueStore) Save(context.Context, []model.QueuedMessage) error { return nil }
