package board

import (
	"testing"

	"github.com/siteboard/siteboard/internal/models"
)

func TestAttach_ByResourceID(t *testing.T) {
	b := newTestBoard(t)

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	child, change, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	c, ok := b.Assignment(child)
	if !ok {
		t.Fatal("child assignment missing")
	}
	if c.AttachedToID() != target {
		t.Errorf("child ParentID = %q, want %q", c.AttachedToID(), target)
	}
	tgt, _ := b.Assignment(target)
	if c.Slot != tgt.Slot {
		t.Errorf("child slot = %+v, want inherited %+v", c.Slot, tgt.Slot)
	}
	if len(change.Created) != 1 || change.Created[0] != child {
		t.Errorf("change.Created = %v", change.Created)
	}
	checkBidirectional(t, b)
}

func TestAttach_RuleDenied(t *testing.T) {
	b := newTestBoard(t)

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	_, _, err := b.Attach(target, "res-lab")
	if !IsValidation(err) {
		t.Fatalf("laborer on excavator: err = %v, want ValidationError", err)
	}
	if got := b.AttachedAssignments(target); len(got) != 0 {
		t.Errorf("graph mutated on denied attach: %v", got)
	}
}

func TestAttach_CapacityEnforced(t *testing.T) {
	b := newTestBoard(t)

	paver := mustAssign(t, b, "res-pav", "job-day", models.RowEquipment)

	id1, _, err := b.Attach(paver, "res-scr1")
	if err != nil {
		t.Fatalf("first screwman: %v", err)
	}
	id2, _, err := b.Attach(paver, "res-scr2")
	if err != nil {
		t.Fatalf("second screwman: %v", err)
	}
	if id1 == id2 {
		t.Errorf("two attachments share id %q", id1)
	}

	_, _, err = b.Attach(paver, "res-scr3")
	if !IsValidation(err) {
		t.Fatalf("third screwman: err = %v, want ValidationError", err)
	}
	if got := len(b.AttachedAssignments(paver)); got != 2 {
		t.Errorf("attachment count after denied attach = %d, want 2", got)
	}
}

func TestAttach_Idempotent(t *testing.T) {
	b := newTestBoard(t)

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	id1, _, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	id2, change, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if id2 != id1 {
		t.Errorf("second Attach returned %q, want %q", id2, id1)
	}
	if !change.Empty() {
		t.Errorf("idempotent Attach produced change %+v", change)
	}
	if got := len(b.AttachedAssignments(target)); got != 1 {
		t.Errorf("attachment count = %d, want 1", got)
	}
	checkBidirectional(t, b)
}

func TestAttach_ConvertsStandaloneInPlace(t *testing.T) {
	b := newTestBoard(t)
	allowEquipmentRowCoPlacement(t, b, "job-day")

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	standalone := mustAssign(t, b, "res-op", "job-day", models.RowEquipment)

	child, change, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if child != standalone {
		t.Errorf("conversion minted new id %q, want reuse of %q", child, standalone)
	}
	if len(change.Created) != 0 {
		t.Errorf("conversion created nodes: %v", change.Created)
	}
	c, _ := b.Assignment(child)
	if c.AttachedToID() != target {
		t.Errorf("ParentID = %q, want %q", c.AttachedToID(), target)
	}
	tgt, _ := b.Assignment(target)
	if c.Position != tgt.Position || c.Slot != tgt.Slot {
		t.Errorf("converted child did not inherit position/slot: %+v", c)
	}
	checkBidirectional(t, b)
}

func TestAttach_RemovesOtherStandalone(t *testing.T) {
	b := newTestBoard(t)

	// Operator already standalone on a different day job.
	other := mustAssign(t, b, "res-op", "job-day2", models.RowCrew)
	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)

	child, change, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, ok := b.Assignment(other); ok {
		t.Error("other standalone assignment should have been removed")
	}
	if len(change.Removed) != 1 || change.Removed[0].ID != other {
		t.Errorf("change.Removed = %+v", change.Removed)
	}
	if _, ok := b.Assignment(child); !ok {
		t.Error("attached child missing")
	}
	checkBidirectional(t, b)
}

func TestAttach_BySourceAssignmentID(t *testing.T) {
	b := newTestBoard(t)
	allowEquipmentRowCoPlacement(t, b, "job-day")

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	standalone := mustAssign(t, b, "res-op", "job-day", models.RowEquipment)

	child, _, err := b.Attach(target, standalone)
	if err != nil {
		t.Fatalf("Attach by assignment id: %v", err)
	}
	if child != standalone {
		t.Errorf("child = %q, want converted %q", child, standalone)
	}
}

func TestAttach_CycleRejected(t *testing.T) {
	b := newTestBoard(t)
	// Allow excavator-on-excavator so only the cycle check can refuse.
	b.Rules().SetRule(models.MagnetRule{
		SourceType: models.TypeExcavator,
		TargetType: models.TypeExcavator,
		CanAttach:  true,
		MaxCount:   2,
	})
	b.PutResource(models.Resource{ID: "res-exc2", Name: "CAT 330", Kind: models.KindEquipment, Type: models.TypeExcavator})

	a := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	child, _, err := b.Attach(a, "res-exc2")
	if err != nil {
		t.Fatalf("chain attach: %v", err)
	}
	// child hangs under a; attaching a under child would make a its own
	// transitive ancestor.
	if _, _, err := b.Attach(child, a); !IsValidation(err) {
		t.Fatalf("cycle attach: err = %v, want ValidationError", err)
	}
	if _, _, err := b.Attach(a, a); !IsValidation(err) {
		t.Fatalf("self attach: err = %v, want ValidationError", err)
	}
	checkBidirectional(t, b)
}

func TestAttach_UnknownRefs(t *testing.T) {
	b := newTestBoard(t)

	if _, _, err := b.Attach("nope", "res-op"); !IsNotFound(err) {
		t.Errorf("unknown target: err = %v", err)
	}
	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	if _, _, err := b.Attach(target, "nope"); !IsNotFound(err) {
		t.Errorf("unknown source: err = %v", err)
	}
}

func TestDetach_Child(t *testing.T) {
	b := newTestBoard(t)

	target := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)
	child, _, err := b.Attach(target, "res-op")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if _, err := b.Detach(child); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	c, _ := b.Assignment(child)
	if c.Attached() {
		t.Error("child still attached after Detach")
	}
	if got := len(b.AttachedAssignments(target)); got != 0 {
		t.Errorf("parent still lists %d children", got)
	}
	checkBidirectional(t, b)
}

func TestDetach_ParentDissolvesGroup(t *testing.T) {
	b := newTestBoard(t)

	paver := mustAssign(t, b, "res-pav", "job-day", models.RowEquipment)
	c1, _, _ := b.Attach(paver, "res-scr1")
	c2, _, _ := b.Attach(paver, "res-scr2")

	if _, err := b.Detach(paver); err != nil {
		t.Fatalf("Detach parent: %v", err)
	}
	for _, cid := range []string{c1, c2} {
		c, ok := b.Assignment(cid)
		if !ok {
			t.Fatalf("child %s removed by Detach", cid)
		}
		if c.Attached() {
			t.Errorf("child %s still attached", cid)
		}
	}
	if got := len(b.AttachedAssignments(paver)); got != 0 {
		t.Errorf("dissolved parent lists %d children", got)
	}
	checkBidirectional(t, b)
}

func TestDetach_Unknown(t *testing.T) {
	b := newTestBoard(t)
	if _, err := b.Detach("nope"); !IsNotFound(err) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestMissingRequiredAttachments(t *testing.T) {
	b := newTestBoard(t)

	exc := mustAssign(t, b, "res-exc", "job-day", models.RowEquipment)

	missing, err := b.MissingRequiredAttachments(exc)
	if err != nil {
		t.Fatalf("MissingRequiredAttachments: %v", err)
	}
	if len(missing) != 1 || missing[0] != models.TypeOperator {
		t.Errorf("missing = %v, want [operator]", missing)
	}

	if _, _, err := b.Attach(exc, "res-op"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	missing, err = b.MissingRequiredAttachments(exc)
	if err != nil {
		t.Fatalf("MissingRequiredAttachments: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing after attach = %v, want empty", missing)
	}
}
