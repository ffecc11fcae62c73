package models

import "time"

// RowType is the category slot within a job a resource is placed into.
type RowType string

const (
	RowForeman   RowType = "foreman"
	RowCrew      RowType = "crew"
	RowEquipment RowType = "equipment"
	RowTrucks    RowType = "trucks"
)

// TimeSlot is a start/end pair in HH:MM, inherited from the job's
// defaults on placement and from the parent on attachment.
type TimeSlot struct {
	Start string `gorm:"column:start_time;size:5" json:"start"`
	End   string `gorm:"column:end_time;size:5" json:"end"`
}

// Assignment places a resource on a job row. A non-nil ParentID makes
// it an attached child of another assignment (operator on excavator);
// attached assignments share the parent's time slot.
type Assignment struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	ResourceID  string    `gorm:"size:32;not null;index" json:"resourceId"`
	JobID       string    `gorm:"size:32;not null;index" json:"jobId"`
	Row         RowType   `gorm:"size:32;not null" json:"row"`
	Position    int       `gorm:"default:0" json:"position"`
	ParentID    *string   `gorm:"size:32;index" json:"attachedTo,omitempty"`
	Slot        TimeSlot  `gorm:"embedded" json:"slot"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	EquipConfig string    `gorm:"type:json" json:"equipConfig,omitempty"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	Parent   *Assignment  `gorm:"foreignKey:ParentID" json:"-"`
	Children []Assignment `gorm:"foreignKey:ParentID" json:"-"`
}

// Attached reports whether the assignment is a child of another one.
func (a Assignment) Attached() bool { return a.ParentID != nil }

// AttachedToID returns the parent assignment id, or "" when standalone.
func (a Assignment) AttachedToID() string {
	if a.ParentID == nil {
		return ""
	}
	return *a.ParentID
}
