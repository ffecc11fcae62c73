package pairing

import (
	"strings"
	"testing"

	"github.com/siteboard/siteboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Resource{}, &models.Pairing{}, &models.ChangeEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, r := range []models.Resource{
		{ID: "res-truck1", Name: "Truck 41", Kind: models.KindEquipment, Type: models.TypeTruck},
		{ID: "res-truck2", Name: "Truck 42", Kind: models.KindEquipment, Type: models.TypeTruck},
		{ID: "res-drv1", Name: "Olle", Kind: models.KindEmployee, Type: models.TypeDriver},
		{ID: "res-drv2", Name: "Pia", Kind: models.KindEmployee, Type: models.TypeDriver},
	} {
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("seed resource: %v", err)
		}
	}
	return db
}

func TestPair_Basic(t *testing.T) {
	db := openTestDB(t)

	p, err := Pair(db, "res-truck1", "res-drv1", "alice")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if p.LeftID != "res-truck1" || p.RightID != "res-drv1" {
		t.Errorf("pairing = %+v", p)
	}

	partner, err := PartnerOf(db, "res-truck1")
	if err != nil {
		t.Fatalf("PartnerOf: %v", err)
	}
	if partner != "res-drv1" {
		t.Errorf("partner of truck = %q, want res-drv1", partner)
	}
	partner, _ = PartnerOf(db, "res-drv1")
	if partner != "res-truck1" {
		t.Errorf("partner of driver = %q, want res-truck1", partner)
	}
}

func TestPair_EvictsBothSides(t *testing.T) {
	db := openTestDB(t)

	if _, err := Pair(db, "res-truck1", "res-drv1", "alice"); err != nil {
		t.Fatalf("first Pair: %v", err)
	}
	if _, err := Pair(db, "res-truck2", "res-drv2", "alice"); err != nil {
		t.Fatalf("second Pair: %v", err)
	}

	// Cross-pairing truck1 with drv2 must evict both old pairings.
	if _, err := Pair(db, "res-truck1", "res-drv2", "alice"); err != nil {
		t.Fatalf("cross Pair: %v", err)
	}

	all, err := List(db)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("pairing count = %d, want 1", len(all))
	}
	if all[0].LeftID != "res-truck1" || all[0].RightID != "res-drv2" {
		t.Errorf("surviving pairing = %+v", all[0])
	}

	if partner, _ := PartnerOf(db, "res-truck2"); partner != "" {
		t.Errorf("truck2 still paired with %q", partner)
	}
	if partner, _ := PartnerOf(db, "res-drv1"); partner != "" {
		t.Errorf("drv1 still paired with %q", partner)
	}
}

func TestPair_Validation(t *testing.T) {
	db := openTestDB(t)

	if _, err := Pair(db, "", "res-drv1", "alice"); err == nil {
		t.Error("expected error for empty left side")
	}
	if _, err := Pair(db, "res-truck1", "res-truck1", "alice"); err == nil {
		t.Error("expected error for self pairing")
	}
	if _, err := Pair(db, "res-ghost", "res-drv1", "alice"); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown resource: err = %v", err)
	}
}

func TestUnpair(t *testing.T) {
	db := openTestDB(t)

	if _, err := Pair(db, "res-truck1", "res-drv1", "alice"); err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if err := Unpair(db, "res-drv1", "alice"); err != nil {
		t.Fatalf("Unpair: %v", err)
	}
	if partner, _ := PartnerOf(db, "res-truck1"); partner != "" {
		t.Errorf("truck still paired with %q", partner)
	}

	// Unpairing an unpaired resource is a no-op.
	if err := Unpair(db, "res-truck2", "alice"); err != nil {
		t.Errorf("Unpair of unpaired resource: %v", err)
	}
}

func TestPair_WritesOutboxEvents(t *testing.T) {
	db := openTestDB(t)

	if _, err := Pair(db, "res-truck1", "res-drv1", "alice"); err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if _, err := Pair(db, "res-truck1", "res-drv2", "alice"); err != nil {
		t.Fatalf("re-Pair: %v", err)
	}

	var events []models.ChangeEvent
	if err := db.Where("table_name = ?", models.TablePairings).Order("id ASC").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	// insert, delete (eviction), insert
	if len(events) != 3 {
		t.Fatalf("event count = %d, want 3", len(events))
	}
	if events[0].Op != models.OpInsert || events[1].Op != models.OpDelete || events[2].Op != models.OpInsert {
		t.Errorf("ops = [%s %s %s]", events[0].Op, events[1].Op, events[2].Op)
	}
	for _, e := range events {
		if e.Actor != "alice" {
			t.Errorf("event %d actor = %q", e.ID, e.Actor)
		}
		if e.EventID == "" {
			t.Errorf("event %d missing event id", e.ID)
		}
	}
}
