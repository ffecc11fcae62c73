package models

import "time"

// MagnetRule declares whether and how many resources of SourceType may
// attach to a resource of TargetType, and whether such an attachment is
// required before the target counts as ready. One row per (source, target).
type MagnetRule struct {
	SourceType ResourceType `gorm:"primaryKey;size:32" json:"sourceType"`
	TargetType ResourceType `gorm:"primaryKey;size:32" json:"targetType"`
	CanAttach  bool         `gorm:"default:false" json:"canAttach"`
	IsRequired bool         `gorm:"default:false" json:"isRequired"`
	MaxCount   int          `gorm:"default:1" json:"maxCount"`
	UpdatedAt  time.Time    `json:"-"`
}

// DropRule declares which resource types may be placed in a row type.
// AllowedTypes is a JSON array of ResourceType strings.
type DropRule struct {
	Row          RowType   `gorm:"primaryKey;size:32" json:"row"`
	AllowedTypes string    `gorm:"type:json;not null" json:"allowedTypes"`
	UpdatedAt    time.Time `json:"-"`
}

// JobRowConfig optionally splits one job row into named boxes, each with
// its own allowed-types subset. Boxes is a JSON array of RowBox.
type JobRowConfig struct {
	JobID     string    `gorm:"primaryKey;size:32" json:"jobId"`
	Row       RowType   `gorm:"primaryKey;size:32" json:"row"`
	Boxes     string    `gorm:"type:json;not null" json:"boxes"`
	UpdatedAt time.Time `json:"-"`
}

// RowBox is one sub-box of a split row.
type RowBox struct {
	Name         string         `json:"name"`
	AllowedTypes []ResourceType `json:"allowedTypes"`
}
