package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/coregx/relica"
)

// DefaultTablePrefix is the table prefix used by NewDeadLetterRepository.
const DefaultTablePrefix = "relay_"

// DeadLetterRepository implements relay.DeadLetterRepository using Relica.
type DeadLetterRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewDeadLetterRepository creates a new DeadLetterRepository with default table prefix.
func NewDeadLetterRepository(sqlDB *sql.DB, driverName string) *DeadLetterRepository {
	return NewDeadLetterRepositoryWithPrefix(sqlDB, driverName, DefaultTablePrefix)
}

// NewDeadLetterRepositoryWithPrefix creates a new DeadLetterRepository with custom table prefix.
func NewDeadLetterRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *DeadLetterRepository {
	return &DeadLetterRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *DeadLetterRepository) tableName() string {
	return r.tablePrefix + "dead_letters"
}

// Save creates or updates a dead letter.
func (r *DeadLetterRepository) Save(ctx context.Context, m model.DeadLetter) (model.DeadLetter, error) {
	if m.ID == 0 {
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert dead letter", err)
		}
		return m, nil
	}

	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update dead letter", err)
	}
	return m, nil
}

// Delete removes a dead letter. Returns ErrNoData if no row has m.ID.
func (r *DeadLetterRepository) Delete(ctx context.Context, m model.DeadLetter) error {
	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).
		Where("id = ?", m.ID).One(&count)
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to look up dead letter", err)
	}
	if count == 0 {
		return relay.ErrNoData
	}

	err = r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Delete()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to delete dead letter", err)
	}
	return nil
}

// FindRecent retrieves the newest dead letters.
func (r *DeadLetterRepository) FindRecent(ctx context.Context, limit int) ([]model.DeadLetter, error) {
	var dls []model.DeadLetter
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		OrderBy("dead_lettered_at DESC").
		Limit(int64(limit)).
		All(&dls)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find dead letters", err)
	}
	if len(dls) == 0 {
		return nil, relay.ErrNoData
	}
	return dls, nil
}

// FindByTopic retrieves the newest dead letters for a topic.
func (r *DeadLetterRepository) FindByTopic(ctx context.Context, topic string, limit int) ([]model.DeadLetter, error) {
	var dls []model.DeadLetter
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("topic = ?", topic).
		OrderBy("dead_lettered_at DESC").
		Limit(int64(limit)).
		All(&dls)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find dead letters by topic", err)
	}
	if len(dls) == 0 {
		return nil, relay.ErrNoData
	}
	return dls, nil
}

// GetStats retrieves dead-letter statistics.
func (r *DeadLetterRepository) GetStats(ctx context.Context) (model.DeadLetterStats, error) {
	var stats model.DeadLetterStats
	var total, exhausted, overflowed int64

	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).One(&total)
	if err != nil {
		return stats, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to count dead letters", err)
	}

	err = r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).
		Where("reason = ?", model.ReasonMaxAttempts).One(&exhausted)
	if err != nil {
		return stats, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to count exhausted dead letters", err)
	}

	err = r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).
		Where("reason = ?", model.ReasonQueueOverflow).One(&overflowed)
	if err != nil {
		return stats, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to count overflowed dead letters", err)
	}

	stats.TotalItems = int(total)
	stats.Exhausted = int(exhausted)
	stats.Overflowed = int(overflowed)
	stats.LastUpdated = time.Now()
	return stats, nil
}
