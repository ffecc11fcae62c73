package board

import "github.com/siteboard/siteboard/internal/models"

// MergeAssignment applies a remote insert or update: the row is added
// if absent or replaced if present, always as committed state, and the
// parent child lists are reindexed so the inverse edges stay exact.
// Returns NotFoundError when the row names a parent the board has not
// seen yet; the caller buffers such rows until the parent arrives.
func (b *Board) MergeAssignment(a models.Assignment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pid := a.AttachedToID(); pid != "" {
		if _, ok := b.nodes[pid]; !ok {
			return &NotFoundError{Kind: "assignment", ID: pid}
		}
	}

	a.Parent, a.Children = nil, nil
	if n, ok := b.nodes[a.ID]; ok {
		n.asn = a
		n.state = StateCommitted
	} else {
		b.nodes[a.ID] = &node{asn: a, state: StateCommitted}
	}
	if a.EquipConfig != "" {
		b.equip[a.ID] = a.EquipConfig
	}
	b.reindexChildren()
	return nil
}

// MergeRemove applies a remote delete: the row and its direct
// attachments are removed and dangling references swept, exactly as
// Remove does. Unknown ids are a no-op, so replayed delete events are
// harmless. Returns copies of what was removed.
func (b *Board) MergeRemove(id string) []models.Assignment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeCascadeLocked(id)
}
