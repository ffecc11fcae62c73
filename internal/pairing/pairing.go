// Package pairing maintains persistent 1:1 resource pairings (a driver
// and their truck), independent of jobs and shifts. Each side of a
// pairing is unique: pairing a resource evicts any prior pairing either
// side was part of.
package pairing

import (
	"errors"
	"fmt"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/outbox"
	"gorm.io/gorm"
)

// Pair links leftID (the equipment side) with rightID (the personnel
// side), removing any existing pairing that involves either resource.
// The eviction and the insert commit in one transaction.
func Pair(db *gorm.DB, leftID, rightID, actor string) (*models.Pairing, error) {
	if leftID == "" || rightID == "" {
		return nil, fmt.Errorf("pairing: both sides are required")
	}
	if leftID == rightID {
		return nil, fmt.Errorf("pairing: cannot pair %s with itself", leftID)
	}

	for _, id := range []string{leftID, rightID} {
		var count int64
		if err := db.Model(&models.Resource{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("pairing: check resource %s: %w", id, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("pairing: resource not found: %s", id)
		}
	}

	p := models.Pairing{LeftID: leftID, RightID: rightID}
	err := db.Transaction(func(tx *gorm.DB) error {
		var prior []models.Pairing
		if err := tx.Where("left_id IN ? OR right_id IN ?", []string{leftID, rightID}, []string{leftID, rightID}).
			Find(&prior).Error; err != nil {
			return fmt.Errorf("pairing: find prior: %w", err)
		}
		for _, old := range prior {
			if err := tx.Delete(&models.Pairing{}, old.ID).Error; err != nil {
				return fmt.Errorf("pairing: evict %d: %w", old.ID, err)
			}
			if err := outbox.Append(tx, models.TablePairings, models.OpDelete, fmt.Sprint(old.ID), actor, nil); err != nil {
				return err
			}
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("pairing: create %s-%s: %w", leftID, rightID, err)
		}
		return outbox.Append(tx, models.TablePairings, models.OpInsert, fmt.Sprint(p.ID), actor, p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PartnerOf returns the resource paired with id, or "" when unpaired.
func PartnerOf(db *gorm.DB, id string) (string, error) {
	var p models.Pairing
	err := db.Where("left_id = ? OR right_id = ?", id, id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pairing: partner of %s: %w", id, err)
	}
	if p.LeftID == id {
		return p.RightID, nil
	}
	return p.LeftID, nil
}

// Unpair removes the pairing that involves id, if any.
func Unpair(db *gorm.DB, id, actor string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var p models.Pairing
		err := tx.Where("left_id = ? OR right_id = ?", id, id).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pairing: find for %s: %w", id, err)
		}
		if err := tx.Delete(&models.Pairing{}, p.ID).Error; err != nil {
			return fmt.Errorf("pairing: remove %d: %w", p.ID, err)
		}
		return outbox.Append(tx, models.TablePairings, models.OpDelete, fmt.Sprint(p.ID), actor, nil)
	})
}

// List returns all pairings ordered by creation.
func List(db *gorm.DB) ([]models.Pairing, error) {
	var out []models.Pairing
	if err := db.Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("pairing: list: %w", err)
	}
	return out, nil
}
