package models

import "time"

// ChangeEvent is one row of the change-feed outbox. The store appends
// one event per mutation in the same transaction as the mutation itself,
// so feed consumers see a gap-free, per-table-ordered stream.
type ChangeEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex" json:"eventId"` // UUID, for at-least-once dedup
	Table     string    `gorm:"column:table_name;size:32;not null;index" json:"table"`
	Op        string    `gorm:"size:8;not null" json:"op"` // insert, update, delete
	RowID     string    `gorm:"size:32;not null" json:"rowId"`
	Actor     string    `gorm:"size:64" json:"actor"` // client that produced the change
	Payload   string    `gorm:"type:json" json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Change-event operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Watched table names used in ChangeEvent.Table.
const (
	TableAssignments = "assignments"
	TableJobs        = "jobs"
	TableResources   = "resources"
	TablePairings    = "pairings"
)
