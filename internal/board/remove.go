package board

import "github.com/siteboard/siteboard/internal/models"

// Remove deletes an assignment together with every assignment attached
// to it, then sweeps the remaining graph so no reference to a removed
// id survives. The pass is atomic under the board lock: readers never
// observe a dangling ParentID or child entry.
func (b *Board) Remove(id string) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change Change
	if _, ok := b.nodes[id]; !ok {
		return change, &NotFoundError{Kind: "assignment", ID: id}
	}
	change.Removed = b.removeCascadeLocked(id)
	return change, nil
}

// removeCascadeLocked deletes a node and its direct attachments, then
// clears any reference to the removed ids from the rest of the arena.
// Returns copies of everything removed. Callers hold the write lock.
func (b *Board) removeCascadeLocked(id string) []models.Assignment {
	n, ok := b.nodes[id]
	if !ok {
		return nil
	}

	doomed := map[string]bool{id: true}
	for _, cid := range n.children {
		doomed[cid] = true
	}

	var removed []models.Assignment
	removed = append(removed, n.asn)
	for _, cid := range n.children {
		if c, ok := b.nodes[cid]; ok {
			removed = append(removed, c.asn)
		}
	}
	for did := range doomed {
		delete(b.nodes, did)
		delete(b.equip, did)
	}

	// Sweep dangling references in the survivors.
	for _, sv := range b.nodes {
		if pid := sv.asn.AttachedToID(); pid != "" && doomed[pid] {
			sv.asn.ParentID = nil
		}
		filtered := sv.children[:0]
		for _, cid := range sv.children {
			if !doomed[cid] {
				filtered = append(filtered, cid)
			}
		}
		sv.children = filtered
	}

	return removed
}
