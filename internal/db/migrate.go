package db

import (
	"encoding/json"
	"fmt"

	"github.com/siteboard/siteboard/internal/config"
	"github.com/siteboard/siteboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Resource{},
		&models.Job{},
		&models.Assignment{},
		&models.MagnetRule{},
		&models.DropRule{},
		&models.JobRowConfig{},
		&models.Pairing{},
		&models.ChangeEvent{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedRules upserts MagnetRule rows from configuration.
func SeedRules(db *gorm.DB, rules []config.RuleConfig) error {
	for _, rc := range rules {
		rule := models.MagnetRule{
			SourceType: models.ResourceType(rc.Source),
			TargetType: models.ResourceType(rc.Target),
			CanAttach:  rc.CanAttach,
			IsRequired: rc.IsRequired,
			MaxCount:   rc.MaxCount,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_type"}, {Name: "target_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_attach", "is_required", "max_count"}),
		}).Create(&rule)
		if result.Error != nil {
			return fmt.Errorf("db: seed rule %s->%s: %w", rc.Source, rc.Target, result.Error)
		}
	}
	return nil
}

// SeedDropRules upserts DropRule rows from configuration.
func SeedDropRules(db *gorm.DB, rows []config.RowConfig) error {
	for _, rc := range rows {
		allowed, err := json.Marshal(rc.Allowed)
		if err != nil {
			return fmt.Errorf("db: marshal allowed types for row %q: %w", rc.Row, err)
		}

		rule := models.DropRule{
			Row:          models.RowType(rc.Row),
			AllowedTypes: string(allowed),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "row"}},
			DoUpdates: clause.AssignmentColumns([]string{"allowed_types"}),
		}).Create(&rule)
		if result.Error != nil {
			return fmt.Errorf("db: seed drop rule %q: %w", rc.Row, result.Error)
		}
	}
	return nil
}
