package events

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/settings"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultDeleteBatchSize   = 5000
	maxDeleteBatchesPerRun   = 200
)

// RetentionCleaner periodically deletes old rows from the events table.
type RetentionCleaner struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
}

// NewRetentionCleaner constructs a cleaner with default cadence.
func NewRetentionCleaner(db *gorm.DB) *RetentionCleaner {
	if db == nil {
		return nil
	}
	return &RetentionCleaner{
		db:        db,
		interval:  defaultRetentionInterval,
		batchSize: defaultDeleteBatchSize,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("event retention cleaner started (interval=%s)", c.interval)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (c *RetentionCleaner) cleanupOnce(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -settings.EventsRetentionDays())

	deleted := int64(0)
	for batch := 0; batch < maxDeleteBatchesPerRun; batch++ {
		result := c.db.WithContext(ctx).
			Where("id IN (?)", c.db.Model(&models.Event{}).
				Select("id").
				Where("created_at < ?", cutoff).
				Limit(c.batchSize)).
			Delete(&models.Event{})
		if result.Error != nil {
			log.WithError(result.Error).Warn("event retention delete failed")
			return
		}
		deleted += result.RowsAffected
		if result.RowsAffected < int64(c.batchSize) {
			break
		}
	}
	if deleted > 0 {
		log.Infof("event retention removed %d rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
