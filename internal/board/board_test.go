package board

import (
	"testing"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/rules"
)

// newTestBoard seeds a board with two jobs (day and night), a handful
// of resources, and the default rule set.
func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b := New(rules.NewDefaultEngine())

	b.PutJob(models.Job{ID: "job-day", Name: "Main St repave", Shift: models.ShiftDay, Date: "2026-09-01", DefaultStart: "07:00", DefaultEnd: "15:00"})
	b.PutJob(models.Job{ID: "job-night", Name: "Highway 9 night", Shift: models.ShiftNight, Date: "2026-09-01", DefaultStart: "19:00", DefaultEnd: "03:00"})
	b.PutJob(models.Job{ID: "job-day2", Name: "Oak Ave patch", Shift: models.ShiftDay, Date: "2026-09-01", DefaultStart: "08:00", DefaultEnd: "16:00"})

	for _, r := range []models.Resource{
		{ID: "res-exc", Name: "CAT 320", Kind: models.KindEquipment, Type: models.TypeExcavator},
		{ID: "res-pav", Name: "Vögele 1800", Kind: models.KindEquipment, Type: models.TypePaver},
		{ID: "res-op", Name: "Jonas", Kind: models.KindEmployee, Type: models.TypeOperator},
		{ID: "res-op2", Name: "Mika", Kind: models.KindEmployee, Type: models.TypeOperator},
		{ID: "res-scr1", Name: "Ari", Kind: models.KindEmployee, Type: models.TypeScrewman},
		{ID: "res-scr2", Name: "Ben", Kind: models.KindEmployee, Type: models.TypeScrewman},
		{ID: "res-scr3", Name: "Cleo", Kind: models.KindEmployee, Type: models.TypeScrewman},
		{ID: "res-lab", Name: "Dana", Kind: models.KindEmployee, Type: models.TypeLaborer},
	} {
		b.PutResource(r)
	}
	return b
}

// allowEquipmentRowCoPlacement splits a job's equipment row into a box
// that takes operators next to the machines, the layout used when a
// crew is parked with its rigs.
func allowEquipmentRowCoPlacement(t *testing.T, b *Board, jobID string) {
	t.Helper()
	err := b.SetJobRowConfig(models.JobRowConfig{
		JobID: jobID,
		Row:   models.RowEquipment,
		Boxes: `[{"name":"rigs","allowedTypes":["excavator","paver","operator"]}]`,
	})
	if err != nil {
		t.Fatalf("SetJobRowConfig: %v", err)
	}
}

// mustAssign is a fixture helper that fails the test on error.
func mustAssign(t *testing.T, b *Board, resourceID, jobID string, row models.RowType) string {
	t.Helper()
	id, _, err := b.Assign(resourceID, jobID, row, 0)
	if err != nil {
		t.Fatalf("Assign(%s, %s, %s): %v", resourceID, jobID, row, err)
	}
	return id
}

// checkBidirectional verifies that every child list entry points back
// via ParentID and every ParentID appears in its parent's child list.
func checkBidirectional(t *testing.T, b *Board) {
	t.Helper()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, n := range b.nodes {
		for _, cid := range n.children {
			c, ok := b.nodes[cid]
			if !ok {
				t.Errorf("node %s lists missing child %s", id, cid)
				continue
			}
			if c.asn.AttachedToID() != id {
				t.Errorf("child %s of %s has ParentID %q", cid, id, c.asn.AttachedToID())
			}
		}
		if pid := n.asn.AttachedToID(); pid != "" {
			p, ok := b.nodes[pid]
			if !ok {
				t.Errorf("node %s has dangling parent %s", id, pid)
				continue
			}
			found := false
			for _, cid := range p.children {
				if cid == id {
					found = true
				}
			}
			if !found {
				t.Errorf("parent %s does not list child %s", pid, id)
			}
		}
	}
}

func TestAssign_Basic(t *testing.T) {
	b := newTestBoard(t)

	id := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	if !IsTempID(id) {
		t.Errorf("new assignment id %q should be temporary", id)
	}

	a, ok := b.Assignment(id)
	if !ok {
		t.Fatal("assignment not found after Assign")
	}
	if a.JobID != "job-day" || a.Row != models.RowEquipment || a.ResourceID != "res-exc" {
		t.Errorf("assignment = %+v", a)
	}
	if a.Slot.Start != "07:00" || a.Slot.End != "15:00" {
		t.Errorf("slot = %+v, want job defaults", a.Slot)
	}
	if st, _ := b.NodeState(id); st != StatePending {
		t.Errorf("state = %q, want pending", st)
	}
}

func TestAssign_UnknownRefs(t *testing.T) {
	b := newTestBoard(t)

	if _, _, err := b.Assign("nope", "job-day", models.RowCrew, 0); !IsNotFound(err) {
		t.Errorf("unknown resource: err = %v, want NotFoundError", err)
	}
	if _, _, err := b.Assign("res-lab", "nope", models.RowCrew, 0); !IsNotFound(err) {
		t.Errorf("unknown job: err = %v, want NotFoundError", err)
	}
}

func TestAssign_RowTypeMismatch(t *testing.T) {
	b := newTestBoard(t)

	_, _, err := b.Assign("res-exc", "job-day", models.RowCrew, 0)
	if !IsValidation(err) {
		t.Fatalf("excavator on crew row: err = %v, want ValidationError", err)
	}
	if b.Len() != 0 {
		t.Errorf("board mutated on validation failure: %d nodes", b.Len())
	}
}

func TestAssign_IdempotentSamePlacement(t *testing.T) {
	b := newTestBoard(t)

	id1 := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	id2, change, err := b.Assign("res-exc", "job-day", models.RowEquipment, 3)
	if err != nil {
		t.Fatalf("second Assign: %v", err)
	}
	if id2 != id1 {
		t.Errorf("second Assign returned %q, want existing %q", id2, id1)
	}
	if !change.Empty() {
		t.Errorf("idempotent Assign produced change %+v", change)
	}
	if b.Len() != 1 {
		t.Errorf("board has %d nodes, want 1", b.Len())
	}
}

func TestAssign_SameShiftReplaces(t *testing.T) {
	b := newTestBoard(t)

	old := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	nw, change, err := b.Assign("res-exc", "job-day2", models.RowEquipment, 0)
	if err != nil {
		t.Fatalf("Assign to second day job: %v", err)
	}
	if _, ok := b.Assignment(old); ok {
		t.Error("prior same-shift assignment should have been removed")
	}
	if _, ok := b.Assignment(nw); !ok {
		t.Error("new assignment missing")
	}
	if len(change.Removed) != 1 || change.Removed[0].ID != old {
		t.Errorf("change.Removed = %+v, want prior assignment", change.Removed)
	}
	if b.Len() != 1 {
		t.Errorf("board has %d nodes, want 1", b.Len())
	}
}

func TestAssign_OppositeShiftAllowed(t *testing.T) {
	b := newTestBoard(t)

	day := mustAssign(t, b, "res-lab", "job-day", models.RowCrew)
	night := mustAssign(t, b, "res-lab", "job-night", models.RowCrew)

	if _, ok := b.Assignment(day); !ok {
		t.Error("day assignment removed by night assignment")
	}
	if _, ok := b.Assignment(night); !ok {
		t.Error("night assignment missing")
	}
	if !b.IsWorkingDouble("res-lab") {
		t.Error("resource with day+night assignments should be working double")
	}
}

func TestAssignmentsByJobRow_Order(t *testing.T) {
	b := newTestBoard(t)

	if _, _, err := b.Assign("res-pav", "job-day", models.RowEquipment, 2); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Assign("res-exc", "job-day", models.RowEquipment, 1); err != nil {
		t.Fatal(err)
	}

	got := b.AssignmentsByJobRow("job-day", models.RowEquipment)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ResourceID != "res-exc" || got[1].ResourceID != "res-pav" {
		t.Errorf("order = [%s, %s], want excavator first", got[0].ResourceID, got[1].ResourceID)
	}
}

func TestUpdateSlot_PropagatesToChildren(t *testing.T) {
	b := newTestBoard(t)

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	child, _, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if _, err := b.UpdateSlot(target, models.TimeSlot{Start: "09:00", End: "17:00"}); err != nil {
		t.Fatalf("UpdateSlot: %v", err)
	}

	c, _ := b.Assignment(child)
	if c.Slot.Start != "09:00" || c.Slot.End != "17:00" {
		t.Errorf("child slot = %+v, want inherited 09:00-17:00", c.Slot)
	}
}

func TestUpdateNote(t *testing.T) {
	b := newTestBoard(t)

	id := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	if _, err := b.UpdateNote(id, "needs wide bucket"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	a, _ := b.Assignment(id)
	if a.Note != "needs wide bucket" {
		t.Errorf("note = %q", a.Note)
	}

	if _, err := b.UpdateNote("nope", "x"); !IsNotFound(err) {
		t.Errorf("unknown id: err = %v, want NotFoundError", err)
	}
}

func TestJobRowConfig_OverridesDropRule(t *testing.T) {
	b := newTestBoard(t)

	// Split the equipment row so only pavers fit.
	err := b.SetJobRowConfig(models.JobRowConfig{
		JobID: "job-day",
		Row:   models.RowEquipment,
		Boxes: `[{"name":"paving","allowedTypes":["paver"]}]`,
	})
	if err != nil {
		t.Fatalf("SetJobRowConfig: %v", err)
	}

	if _, _, err := b.Assign("res-exc", "job-day", models.RowEquipment, 0); !IsValidation(err) {
		t.Errorf("excavator on split row: err = %v, want ValidationError", err)
	}
	if _, _, err := b.Assign("res-pav", "job-day", models.RowEquipment, 0); err != nil {
		t.Errorf("paver on split row: %v", err)
	}

	// Other jobs keep the default drop rule.
	if _, _, err := b.Assign("res-exc", "job-day2", models.RowEquipment, 0); err != nil {
		t.Errorf("excavator on unsplit row: %v", err)
	}
}

func TestSetJobRowConfig_BadJSON(t *testing.T) {
	b := newTestBoard(t)
	err := b.SetJobRowConfig(models.JobRowConfig{JobID: "job-day", Row: models.RowCrew, Boxes: "{broken"})
	if err == nil {
		t.Fatal("expected error for malformed boxes")
	}
}

func TestCanDropOnRow(t *testing.T) {
	b := newTestBoard(t)

	ok, err := b.CanDropOnRow("res-exc", "job-day", models.RowEquipment)
	if err != nil || !ok {
		t.Errorf("CanDropOnRow(excavator, equipment) = %v, %v", ok, err)
	}
	ok, err = b.CanDropOnRow("res-exc", "job-day", models.RowCrew)
	if err != nil || ok {
		t.Errorf("CanDropOnRow(excavator, crew) = %v, %v", ok, err)
	}
	if _, err := b.CanDropOnRow("nope", "job-day", models.RowCrew); !IsNotFound(err) {
		t.Errorf("unknown resource: err = %v", err)
	}
}

func TestGenerateTempID(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id, err := GenerateTempID()
		if err != nil {
			t.Fatalf("GenerateTempID: %v", err)
		}
		if !IsTempID(id) {
			t.Errorf("id %q missing tmp- prefix", id)
		}
		if len(id) != 12 {
			t.Errorf("id length = %d, want 12; id = %q", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestEquipConfig_Lifecycle(t *testing.T) {
	b := newTestBoard(t)

	id := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	if err := b.SetEquipConfig(id, `{"implement":"wide bucket"}`); err != nil {
		t.Fatalf("SetEquipConfig: %v", err)
	}
	if p, ok := b.EquipConfig(id); !ok || p != `{"implement":"wide bucket"}` {
		t.Errorf("EquipConfig = %q, %v", p, ok)
	}

	if err := b.SetEquipConfig("nope", "{}"); !IsNotFound(err) {
		t.Errorf("unknown assignment: err = %v", err)
	}

	if _, err := b.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := b.EquipConfig(id); ok {
		t.Error("equipment profile survived removal")
	}
}
