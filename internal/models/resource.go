package models

import "time"

// ResourceKind discriminates personnel from machines.
type ResourceKind string

const (
	KindEmployee  ResourceKind = "employee"
	KindEquipment ResourceKind = "equipment"
)

// ResourceType is the role or equipment category a resource belongs to.
// Magnet and drop rules are keyed by these values.
type ResourceType string

const (
	TypeForeman   ResourceType = "foreman"
	TypeOperator  ResourceType = "operator"
	TypeDriver    ResourceType = "driver"
	TypeScrewman  ResourceType = "screwman"
	TypeLaborer   ResourceType = "laborer"
	TypeExcavator ResourceType = "excavator"
	TypePaver     ResourceType = "paver"
	TypeRoller    ResourceType = "roller"
	TypeTruck     ResourceType = "truck"
	TypeSweeper   ResourceType = "sweeper"
)

// Resource is a person or machine that can be scheduled onto jobs.
// Kind discriminates the two shapes; type-specific behavior keys off Type.
type Resource struct {
	ID         string       `gorm:"primaryKey;size:32" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	Kind       ResourceKind `gorm:"size:16;not null;index" json:"kind"`
	Type       ResourceType `gorm:"size:32;not null;index" json:"type"`
	Identifier string       `gorm:"size:64" json:"identifier"` // unit number or phone
	OnSite     bool         `gorm:"default:false" json:"onSite"`
	CreatedAt  time.Time    `json:"-"`
	UpdatedAt  time.Time    `json:"-"`
}

// IsEmployee reports whether the resource is a person.
func (r Resource) IsEmployee() bool { return r.Kind == KindEmployee }

// IsEquipment reports whether the resource is a machine.
func (r Resource) IsEquipment() bool { return r.Kind == KindEquipment }
