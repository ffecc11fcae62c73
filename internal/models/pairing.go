package models

import "time"

// Pairing is a persistent 1:1 link between two resources (driver and
// truck), independent of any job or shift. Each side appears in at most
// one pairing.
type Pairing struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LeftID    string    `gorm:"size:32;not null;uniqueIndex" json:"leftId"`  // equipment side
	RightID   string    `gorm:"size:32;not null;uniqueIndex" json:"rightId"` // personnel side
	CreatedAt time.Time `json:"-"`
}
