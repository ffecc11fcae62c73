package board

import "github.com/siteboard/siteboard/internal/models"

// maxAncestorDepth bounds the ancestor walk used for cycle detection.
// Attachment chains in practice are one or two levels deep; anything
// past this is a corrupt graph.
const maxAncestorDepth = 32

// Attach links a source resource under a target assignment. The source
// may be named by an existing assignment id or by a bare resource id.
//
// The magnet rule for (source type, target type) must allow the
// attachment and have remaining capacity over the target's current
// children. Then, in priority order:
//
//  1. the source already has a standalone assignment on the target's
//     job and row: it is converted in place into an attached child,
//     keeping its id and inheriting the target's position and slot;
//  2. the source is already attached to this exact target: no-op;
//  3. otherwise any other standalone assignment the source resource
//     holds is removed and a fresh pending node is created under the
//     target, inheriting its time slot.
func (b *Board) Attach(targetID, sourceRef string) (string, Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change

	target, ok := b.nodes[targetID]
	if !ok {
		return "", change, &NotFoundError{Kind: "assignment", ID: targetID}
	}
	targetRes, ok := b.resources[target.asn.ResourceID]
	if !ok {
		return "", change, &NotFoundError{Kind: "resource", ID: target.asn.ResourceID}
	}

	// Resolve sourceRef: assignment id first, then resource id.
	var srcNode *node
	var srcRes models.Resource
	if n, ok := b.nodes[sourceRef]; ok {
		srcNode = n
		srcRes, ok = b.resources[n.asn.ResourceID]
		if !ok {
			return "", change, &NotFoundError{Kind: "resource", ID: n.asn.ResourceID}
		}
	} else if r, ok := b.resources[sourceRef]; ok {
		srcRes = r
	} else {
		return "", change, &NotFoundError{Kind: "resource", ID: sourceRef}
	}

	// Already attached to this exact target: idempotent no-op.
	for _, cid := range target.children {
		if c, ok := b.nodes[cid]; ok && c.asn.ResourceID == srcRes.ID {
			return cid, change, nil
		}
	}

	if !b.rules.CanAttach(srcRes.Type, targetRes.Type) {
		return "", change, &ValidationError{
			Op:     "attach",
			Reason: string(srcRes.Type) + " cannot attach to " + string(targetRes.Type),
		}
	}
	current := 0
	for _, cid := range target.children {
		if c, ok := b.nodes[cid]; ok {
			if cr, ok := b.resources[c.asn.ResourceID]; ok && cr.Type == srcRes.Type {
				current++
			}
		}
	}
	if b.rules.RemainingCapacity(srcRes.Type, targetRes.Type, current) <= 0 {
		return "", change, &ValidationError{
			Op:     "attach",
			Reason: "no remaining capacity for " + string(srcRes.Type) + " on " + string(targetRes.Type),
		}
	}

	// A node may never become its own transitive ancestor.
	if srcNode != nil && b.hasAncestorLocked(targetID, srcNode.asn.ID) {
		return "", change, &ValidationError{Op: "attach", Reason: "attachment would create a cycle"}
	}

	// Case 1: standalone assignment on the target's job and row is
	// converted in place.
	for _, n := range b.standaloneByResourceLocked(srcRes.ID) {
		if n.asn.JobID == target.asn.JobID && n.asn.Row == target.asn.Row {
			change.Updated = append(change.Updated, n.asn)
			pid := target.asn.ID
			n.asn.ParentID = &pid
			n.asn.Position = target.asn.Position
			n.asn.Slot = target.asn.Slot
			target.children = append(target.children, n.asn.ID)
			return n.asn.ID, change, nil
		}
	}

	// Case 3: drop any other standalone placement, then create the
	// attached child fresh.
	for _, n := range b.standaloneByResourceLocked(srcRes.ID) {
		change.Removed = append(change.Removed, b.removeCascadeLocked(n.asn.ID)...)
	}

	id, err := GenerateTempID()
	if err != nil {
		return "", change, err
	}
	pid := target.asn.ID
	asn := models.Assignment{
		ID:         id,
		ResourceID: srcRes.ID,
		JobID:      target.asn.JobID,
		Row:        target.asn.Row,
		Position:   target.asn.Position,
		ParentID:   &pid,
		Slot:       target.asn.Slot,
	}
	b.nodes[id] = &node{asn: asn, state: StatePending}
	target.children = append(target.children, id)
	change.Created = append(change.Created, id)

	return id, change, nil
}

// Detach unlinks an assignment. A child loses its parent and stays on
// the board standalone; a parent has its whole group dissolved, every
// child becoming standalone. Nothing is removed.
func (b *Board) Detach(id string) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change
	n, ok := b.nodes[id]
	if !ok {
		return change, &NotFoundError{Kind: "assignment", ID: id}
	}

	if pid := n.asn.AttachedToID(); pid != "" {
		change.Updated = append(change.Updated, n.asn)
		n.asn.ParentID = nil
		if parent, ok := b.nodes[pid]; ok {
			parent.children = removeID(parent.children, id)
		}
		return change, nil
	}

	if len(n.children) > 0 {
		for _, cid := range n.children {
			if c, ok := b.nodes[cid]; ok {
				change.Updated = append(change.Updated, c.asn)
				c.asn.ParentID = nil
			}
		}
		n.children = nil
	}
	return change, nil
}

// MissingRequiredAttachments returns the resource types a target
// assignment still needs attached before it counts as ready. Satisfied
// requirements are subtracted from the rule engine's required set.
func (b *Board) MissingRequiredAttachments(id string) ([]models.ResourceType, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n, ok := b.nodes[id]
	if !ok {
		return nil, &NotFoundError{Kind: "assignment", ID: id}
	}
	res, ok := b.resources[n.asn.ResourceID]
	if !ok {
		return nil, &NotFoundError{Kind: "resource", ID: n.asn.ResourceID}
	}

	present := make(map[models.ResourceType]bool)
	for _, cid := range n.children {
		if c, ok := b.nodes[cid]; ok {
			if cr, ok := b.resources[c.asn.ResourceID]; ok {
				present[cr.Type] = true
			}
		}
	}

	var missing []models.ResourceType
	for _, rt := range b.rules.RequiredAttachmentsFor(res.Type) {
		if !present[rt] {
			missing = append(missing, rt)
		}
	}
	return missing, nil
}

// hasAncestorLocked walks up from id's parent looking for ancestor,
// bounded by maxAncestorDepth. Callers hold at least a read lock.
func (b *Board) hasAncestorLocked(id, ancestor string) bool {
	if id == ancestor {
		return true
	}
	cur := id
	for range maxAncestorDepth {
		n, ok := b.nodes[cur]
		if !ok {
			return false
		}
		pid := n.asn.AttachedToID()
		if pid == "" {
			return false
		}
		if pid == ancestor {
			return true
		}
		cur = pid
	}
	return false
}

// removeID filters one id out of a slice.
func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
