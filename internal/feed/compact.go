package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Compactor trims the change-event outbox on a cron schedule, keeping
// the newest N events. Clients that fall further behind than the kept
// window resync with a full snapshot instead of replaying the feed.
type Compactor struct {
	db       *gorm.DB
	schedule string
	keep     int
}

// NewCompactor creates a Compactor. Schedule is a 5-field cron
// expression; keep is how many of the newest events survive a sweep.
func NewCompactor(db *gorm.DB, schedule string, keep int) (*Compactor, error) {
	if db == nil {
		return nil, fmt.Errorf("feed: compactor: db is required")
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("feed: compactor: bad schedule %q: %w", schedule, err)
	}
	if keep <= 0 {
		keep = 1000
	}
	return &Compactor{db: db, schedule: schedule, keep: keep}, nil
}

// Compact runs one sweep, deleting every event older than the newest
// keep rows. Returns the number of events removed.
func (c *Compactor) Compact(ctx context.Context) (int64, error) {
	var count int64
	db := c.db.WithContext(ctx)
	if err := db.Model(&models.ChangeEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("feed: compact: count events: %w", err)
	}
	if count <= int64(c.keep) {
		return 0, nil
	}

	// Find the id floor: the oldest event inside the kept window.
	var floor models.ChangeEvent
	err := db.Order("id DESC").Offset(c.keep - 1).Limit(1).First(&floor).Error
	if err != nil {
		return 0, fmt.Errorf("feed: compact: find floor: %w", err)
	}

	result := db.Where("id < ?", floor.ID).Delete(&models.ChangeEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("feed: compact: delete events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Run sweeps on the configured cron schedule until the context is
// cancelled. Sweep failures are logged and the loop continues.
func (c *Compactor) Run(ctx context.Context) {
	for {
		wait := nextCronDuration(c.schedule)
		if wait <= 0 {
			wait = time.Minute
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			removed, err := c.Compact(ctx)
			if err != nil {
				log.Printf("feed: compact sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("feed: compacted %d change events", removed)
			}
		}
	}
}
