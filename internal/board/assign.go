package board

import "github.com/siteboard/siteboard/internal/models"

// Assign places a resource as a standalone assignment on a job row.
//
// If the resource already holds a standalone assignment on this exact
// job and row, that assignment's id is returned unchanged. If it holds
// a standalone assignment on another job with the same shift, the prior
// assignment is removed first: a resource works at most one job per
// shift, while the opposite shift stays free for a double.
//
// The new node is created pending under a temp id and inherits the
// job's default time slot.
func (b *Board) Assign(resourceID, jobID string, row models.RowType, position int) (string, Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change

	res, ok := b.resources[resourceID]
	if !ok {
		return "", change, &NotFoundError{Kind: "resource", ID: resourceID}
	}
	job, ok := b.jobs[jobID]
	if !ok {
		return "", change, &NotFoundError{Kind: "job", ID: jobID}
	}

	if !b.allowedOnRowLocked(jobID, row, res.Type) {
		return "", change, &ValidationError{
			Op:     "assign",
			Reason: "resource type " + string(res.Type) + " not allowed on row " + string(row),
		}
	}

	for _, n := range b.standaloneByResourceLocked(resourceID) {
		if n.asn.JobID == jobID && n.asn.Row == row {
			// Idempotent: already placed exactly here.
			return n.asn.ID, change, nil
		}
	}

	// Replace any standalone assignment occupying the same shift.
	for _, n := range b.standaloneByResourceLocked(resourceID) {
		if other, ok := b.jobs[n.asn.JobID]; ok && other.Shift == job.Shift {
			change.Removed = append(change.Removed, b.removeCascadeLocked(n.asn.ID)...)
		}
	}

	id, err := GenerateTempID()
	if err != nil {
		return "", change, err
	}

	asn := models.Assignment{
		ID:         id,
		ResourceID: resourceID,
		JobID:      jobID,
		Row:        row,
		Position:   position,
		Slot:       models.TimeSlot{Start: job.DefaultStart, End: job.DefaultEnd},
	}
	b.nodes[id] = &node{asn: asn, state: StatePending}
	change.Created = append(change.Created, id)

	return id, change, nil
}

// UpdateSlot sets an assignment's time slot and propagates it to every
// attached child, preserving the inheritance invariant.
func (b *Board) UpdateSlot(id string, slot models.TimeSlot) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change
	n, ok := b.nodes[id]
	if !ok {
		return change, &NotFoundError{Kind: "assignment", ID: id}
	}

	change.Updated = append(change.Updated, n.asn)
	n.asn.Slot = slot
	for _, cid := range n.children {
		if c, ok := b.nodes[cid]; ok {
			change.Updated = append(change.Updated, c.asn)
			c.asn.Slot = slot
		}
	}
	return change, nil
}

// UpdateNote sets an assignment's note.
func (b *Board) UpdateNote(id, note string) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change
	n, ok := b.nodes[id]
	if !ok {
		return change, &NotFoundError{Kind: "assignment", ID: id}
	}
	change.Updated = append(change.Updated, n.asn)
	n.asn.Note = note
	return change, nil
}
