package board

import "github.com/siteboard/siteboard/internal/models"

// Revert undoes a recorded Change: created nodes are discarded, updated
// nodes get their prior values back, and removed nodes are reinserted
// as committed state. Used by the reconciliation layer when an
// optimistic mutation fails to persist.
func (b *Board) Revert(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range change.Created {
		delete(b.nodes, id)
		delete(b.equip, id)
	}
	for _, prior := range change.Updated {
		if n, ok := b.nodes[prior.ID]; ok {
			n.asn = prior
		}
	}
	for _, removed := range change.Removed {
		removed.Parent, removed.Children = nil, nil
		b.nodes[removed.ID] = &node{asn: removed, state: StateCommitted}
		if removed.EquipConfig != "" {
			b.equip[removed.ID] = removed.EquipConfig
		}
	}
	b.reindexChildren()
}

// Commit replaces a temp id with the authoritative persisted row. The
// rewrite touches the arena key, the parent's child list, every child's
// ParentID, and the equipment profile key in one pass under the write
// lock, so readers never observe a half-swapped graph.
func (b *Board) Commit(tempID string, persisted models.Assignment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[tempID]
	if !ok {
		return &NotFoundError{Kind: "assignment", ID: tempID}
	}

	persisted.Parent, persisted.Children = nil, nil
	children := n.children
	delete(b.nodes, tempID)
	b.nodes[persisted.ID] = &node{asn: persisted, children: children, state: StateCommitted}

	if tempID != persisted.ID {
		if p, ok := b.equip[tempID]; ok {
			b.equip[persisted.ID] = p
			delete(b.equip, tempID)
		}
		for _, sv := range b.nodes {
			if sv.asn.AttachedToID() == tempID {
				pid := persisted.ID
				sv.asn.ParentID = &pid
			}
			for i, cid := range sv.children {
				if cid == tempID {
					sv.children[i] = persisted.ID
				}
			}
		}
	}
	return nil
}
