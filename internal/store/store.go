// Package store is the persistence collaborator: authoritative CRUD for
// scheduling data over GORM, with a change-feed outbox written in the
// same transaction as every mutation.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/outbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Snapshot is the bulk load returned by FetchAll on startup.
type Snapshot struct {
	Resources   []models.Resource
	Jobs        []models.Job
	Assignments []models.Assignment
	Rules       []models.MagnetRule
	DropRules   []models.DropRule
	RowConfigs  []models.JobRowConfig
	Pairings    []models.Pairing
}

// Store wraps a GORM connection with the actor name stamped on outbox
// events, so clients can recognize their own changes in the feed.
type Store struct {
	db    *gorm.DB
	actor string
}

// New creates a Store.
func New(db *gorm.DB, actor string) *Store {
	return &Store{db: db, actor: actor}
}

// GenerateID creates a unique assignment ID in asn-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("store: generate ID: %w", err)
	}
	return "asn-" + hex.EncodeToString(b)[:5], nil
}

// generateUniqueID generates an ID and retries once on collision.
func (s *Store) generateUniqueID(ctx context.Context) (string, error) {
	for range 2 {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("store: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("store: failed to generate unique ID after retries")
}

// CreateAssignment persists a new assignment under an authoritative id,
// ignoring any temp id the caller's copy carries. Returns the stored row.
func (s *Store) CreateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error) {
	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.Parent, a.Children = nil, nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("store: create assignment: %w", err)
		}
		return outbox.Append(tx, models.TableAssignments, models.OpInsert, a.ID, s.actor, a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAssignment replaces a persisted assignment's fields by id.
func (s *Store) UpdateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error) {
	a.Parent, a.Children = nil, nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Assignment
		if err := tx.Where("id = ?", a.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("store: assignment not found: %s", a.ID)
			}
			return fmt.Errorf("store: load assignment %s: %w", a.ID, err)
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).
			Select("ResourceID", "JobID", "Row", "Position", "ParentID", "Start", "End", "Note", "EquipConfig").
			Updates(&a).Error; err != nil {
			return fmt.Errorf("store: update assignment %s: %w", a.ID, err)
		}
		return outbox.Append(tx, models.TableAssignments, models.OpUpdate, a.ID, s.actor, a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAssignment removes one assignment row. Cascades are the graph
// layer's concern; the store deletes exactly what it is told to.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Assignment{})
		if result.Error != nil {
			return fmt.Errorf("store: delete assignment %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			// Already gone; deletes are idempotent across clients.
			return nil
		}
		return outbox.Append(tx, models.TableAssignments, models.OpDelete, id, s.actor, nil)
	})
}

// FetchAll bulk-loads everything a client needs to build its board.
func (s *Store) FetchAll(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)
	var snap Snapshot

	if err := db.Find(&snap.Resources).Error; err != nil {
		return nil, fmt.Errorf("store: fetch resources: %w", err)
	}
	if err := db.Find(&snap.Jobs).Error; err != nil {
		return nil, fmt.Errorf("store: fetch jobs: %w", err)
	}
	if err := db.Order("id ASC").Find(&snap.Assignments).Error; err != nil {
		return nil, fmt.Errorf("store: fetch assignments: %w", err)
	}
	if err := db.Find(&snap.Rules).Error; err != nil {
		return nil, fmt.Errorf("store: fetch rules: %w", err)
	}
	if err := db.Find(&snap.DropRules).Error; err != nil {
		return nil, fmt.Errorf("store: fetch drop rules: %w", err)
	}
	if err := db.Find(&snap.RowConfigs).Error; err != nil {
		return nil, fmt.Errorf("store: fetch row configs: %w", err)
	}
	if err := db.Order("id ASC").Find(&snap.Pairings).Error; err != nil {
		return nil, fmt.Errorf("store: fetch pairings: %w", err)
	}
	return &snap, nil
}

// UpsertRule inserts or updates one magnet interaction rule.
func (s *Store) UpsertRule(ctx context.Context, rule models.MagnetRule) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "target_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"can_attach", "is_required", "max_count"}),
	}).Create(&rule)
	if result.Error != nil {
		return fmt.Errorf("store: upsert rule %s->%s: %w", rule.SourceType, rule.TargetType, result.Error)
	}
	return nil
}

// UpsertDropRule inserts or updates one row-placement rule.
func (s *Store) UpsertDropRule(ctx context.Context, rule models.DropRule) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "row"}},
		DoUpdates: clause.AssignmentColumns([]string{"allowed_types"}),
	}).Create(&rule)
	if result.Error != nil {
		return fmt.Errorf("store: upsert drop rule %s: %w", rule.Row, result.Error)
	}
	return nil
}
