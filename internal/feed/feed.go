// Package feed turns the change-event outbox into a live stream. A
// Watcher polls the outbox table on an interval, tracks a cursor over
// the auto-increment id, and emits every new event to a channel. A
// cron-scheduled compactor trims old events so the outbox stays small.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siteboard/siteboard/internal/models"
	"gorm.io/gorm"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 3 * time.Second

// pollBatchSize caps how many events one Poll reads, so a client that
// was offline for a while catches up in bounded chunks.
const pollBatchSize = 500

// Watcher polls the change-event outbox and emits new rows in id order.
// The cursor starts at the current maximum id, so a freshly started
// watcher sees only changes made after it began (the initial state
// comes from a Store.FetchAll snapshot, not from replaying the feed).
type Watcher struct {
	db           *gorm.DB
	pollInterval time.Duration

	mu     sync.Mutex
	cursor uint
	seeded bool
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	DB           *gorm.DB
	PollInterval time.Duration // defaults to DefaultPollInterval
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("feed: watcher: db is required")
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Watcher{db: opts.DB, pollInterval: poll}, nil
}

// Seed establishes the cursor baseline at the current maximum event id.
// Call it after loading the snapshot and before Run, so no event that
// the snapshot already reflects is replayed. Safe to skip; the first
// Poll seeds automatically.
func (w *Watcher) Seed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seedLocked()
}

func (w *Watcher) seedLocked() error {
	var maxID uint
	if err := w.db.Model(&models.ChangeEvent{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return fmt.Errorf("feed: seed cursor: %w", err)
	}
	w.cursor = maxID
	w.seeded = true
	return nil
}

// Poll runs one read cycle: fetches events past the cursor in id order
// and advances the cursor. The first call seeds the baseline and
// returns nothing.
func (w *Watcher) Poll(ctx context.Context) ([]models.ChangeEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.seeded {
		if err := w.seedLocked(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var events []models.ChangeEvent
	err := w.db.WithContext(ctx).
		Where("id > ?", w.cursor).
		Order("id ASC").
		Limit(pollBatchSize).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("feed: poll events: %w", err)
	}
	if len(events) > 0 {
		w.cursor = events[len(events)-1].ID
	}
	return events, nil
}

// Run starts the watcher loop. It polls on the configured interval and
// sends new events to the returned channel in id order. The channel is
// closed when the context is cancelled.
func (w *Watcher) Run(ctx context.Context) <-chan models.ChangeEvent {
	ch := make(chan models.ChangeEvent, 64)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				events, err := w.Poll(ctx)
				if err != nil {
					continue
				}
				for _, e := range events {
					select {
					case ch <- e:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch
}
