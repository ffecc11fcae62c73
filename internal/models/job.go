package models

import "time"

// Shift identifies the half-day a job runs in.
type Shift string

const (
	ShiftDay   Shift = "day"
	ShiftNight Shift = "night"
)

// Valid reports whether s is a known shift value.
func (s Shift) Valid() bool { return s == ShiftDay || s == ShiftNight }

// Job is the scheduling context resources are placed into. Each job
// occupies one shift on one date; its rows (crew, equipment, trucks)
// hold the assignments.
type Job struct {
	ID           string    `gorm:"primaryKey;size:32" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Type         string    `gorm:"size:32;default:paving" json:"type"`
	Shift        Shift     `gorm:"size:8;not null;index" json:"shift"`
	Date         string    `gorm:"size:10;not null;index" json:"date"` // YYYY-MM-DD
	Finalized    bool      `gorm:"default:false" json:"finalized"`
	DefaultStart string    `gorm:"size:5;default:'07:00'" json:"defaultStart"` // HH:MM
	DefaultEnd   string    `gorm:"size:5;default:'15:00'" json:"defaultEnd"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}
