package board

import "github.com/siteboard/siteboard/internal/models"

// MoveGroup relocates a primary assignment and its attached children to
// another job row in one step. Every member gets a fresh pending id,
// the parent/child shape is preserved, and the group takes the
// destination job's default time slot. Old nodes are deleted and new
// ones inserted atomically; equipment profiles keyed by the old ids are
// re-keyed to the new ones.
//
// ids lists the primary first, then the children to carry along.
// Returns the new primary id.
func (b *Board) MoveGroup(ids []string, jobID string, row models.RowType, position int) (string, Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change
	if len(ids) == 0 {
		return "", change, &ValidationError{Op: "move", Reason: "empty group"}
	}

	job, ok := b.jobs[jobID]
	if !ok {
		return "", change, &NotFoundError{Kind: "job", ID: jobID}
	}
	for _, id := range ids {
		if _, ok := b.nodes[id]; !ok {
			return "", change, &NotFoundError{Kind: "assignment", ID: id}
		}
	}

	primary := b.nodes[ids[0]]
	for _, cid := range ids[1:] {
		if b.nodes[cid].asn.AttachedToID() != primary.asn.ID {
			return "", change, &ValidationError{Op: "move", Reason: "group member " + cid + " is not attached to the primary"}
		}
	}

	if res, ok := b.resources[primary.asn.ResourceID]; ok {
		if !b.allowedOnRowLocked(jobID, row, res.Type) {
			return "", change, &ValidationError{
				Op:     "move",
				Reason: "resource type " + string(res.Type) + " not allowed on row " + string(row),
			}
		}
	}

	// Mint all ids up front so the swap is all-or-nothing.
	newIDs := make(map[string]string, len(ids))
	for _, id := range ids {
		nid, err := GenerateTempID()
		if err != nil {
			return "", change, err
		}
		newIDs[id] = nid
	}

	slot := models.TimeSlot{Start: job.DefaultStart, End: job.DefaultEnd}
	newPrimaryID := newIDs[ids[0]]

	// Delete old nodes first, keeping copies and equipment profiles.
	profiles := make(map[string]string, len(ids))
	for _, id := range ids {
		old := b.nodes[id]
		change.Removed = append(change.Removed, old.asn)
		if p, ok := b.equip[id]; ok {
			profiles[newIDs[id]] = p
		}
		delete(b.nodes, id)
		delete(b.equip, id)
	}

	// Sweep references to the departed ids from any survivor (a child
	// deliberately left out of the group becomes standalone).
	departed := make(map[string]bool, len(ids))
	for _, id := range ids {
		departed[id] = true
	}
	for _, sv := range b.nodes {
		if pid := sv.asn.AttachedToID(); pid != "" && departed[pid] {
			change.Updated = append(change.Updated, sv.asn)
			sv.asn.ParentID = nil
		}
		filtered := sv.children[:0]
		for _, cid := range sv.children {
			if !departed[cid] {
				filtered = append(filtered, cid)
			}
		}
		sv.children = filtered
	}

	// Insert the regenerated group.
	pnode := &node{state: StatePending}
	pnode.asn = change.Removed[0]
	pnode.asn.ID = newPrimaryID
	pnode.asn.JobID = jobID
	pnode.asn.Row = row
	pnode.asn.Position = position
	pnode.asn.ParentID = nil
	pnode.asn.Slot = slot
	b.nodes[newPrimaryID] = pnode
	change.Created = append(change.Created, newPrimaryID)

	for i, id := range ids[1:] {
		nid := newIDs[id]
		cnode := &node{state: StatePending}
		cnode.asn = change.Removed[i+1]
		cnode.asn.ID = nid
		cnode.asn.JobID = jobID
		cnode.asn.Row = row
		cnode.asn.Position = position
		pid := newPrimaryID
		cnode.asn.ParentID = &pid
		cnode.asn.Slot = slot
		b.nodes[nid] = cnode
		pnode.children = append(pnode.children, nid)
		change.Created = append(change.Created, nid)
	}

	for nid, p := range profiles {
		b.equip[nid] = p
	}

	return newPrimaryID, change, nil
}
