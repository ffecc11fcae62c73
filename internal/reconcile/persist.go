package reconcile

import (
	"context"
	"log"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/models"
)

// persistChange pushes one recorded Change to the store: field updates
// first, then creates in parent-first order so a child row is never
// written before the persisted id it references exists, then deletes.
// A row displaced by a create stays in the store until its replacement
// has committed; if the replacement never commits, the displaced row is
// never deleted. Each successful create is confirmed on the writer loop
// immediately, which rewrites the temp id everywhere before the next
// child row is read. Any failure rolls the whole optimistic change back.
func (r *Reconciler) persistChange(op string, h *PendingHandle, change board.Change) {
	ctx := context.Background()
	idMap := make(map[string]string) // temp id -> persisted id
	var createdRows []string         // persisted ids written so far

	fail := func(cause error) {
		// Undo the rows this change already wrote, best effort.
		for _, id := range createdRows {
			if err := r.store.DeleteAssignment(ctx, id); err != nil {
				log.Printf("reconcile: %s rollback: delete %s: %v", op, id, err)
			}
		}
		r.do(func() {
			r.rollback(op, h, change, idMap, cause)
		})
	}

	for _, prior := range change.Updated {
		var (
			cur models.Assignment
			ok  bool
		)
		r.do(func() { cur, ok = r.board.Assignment(prior.ID) })
		if !ok || board.IsTempID(cur.ID) {
			// Gone or not yet persisted; nothing to write for it.
			continue
		}
		if _, err := r.store.UpdateAssignment(ctx, cur); err != nil {
			fail(&PersistenceError{Op: op, Err: err})
			return
		}
	}

	for _, tempID := range r.createOrder(change.Created) {
		var (
			cur models.Assignment
			ok  bool
		)
		r.do(func() { cur, ok = r.board.Assignment(tempID) })
		if !ok {
			// A remote merge removed the node before we could persist it.
			fail(&ConflictError{Op: op, ID: tempID})
			return
		}
		persisted, err := r.store.CreateAssignment(ctx, cur)
		if err != nil {
			fail(&PersistenceError{Op: op, Err: err})
			return
		}
		createdRows = append(createdRows, persisted.ID)

		var commitErr error
		r.do(func() { commitErr = r.board.Commit(tempID, *persisted) })
		if commitErr != nil {
			fail(&ConflictError{Op: op, ID: tempID})
			return
		}
		idMap[tempID] = persisted.ID
	}

	for _, removed := range change.Removed {
		if board.IsTempID(removed.ID) {
			continue
		}
		if err := r.store.DeleteAssignment(ctx, removed.ID); err != nil {
			fail(&PersistenceError{Op: op, Err: err})
			return
		}
	}

	r.do(func() { r.confirm(h, idMap) })
}

// createOrder sorts created temp ids so parents precede their children.
// Runs board reads through the writer loop.
func (r *Reconciler) createOrder(created []string) []string {
	if len(created) < 2 {
		return created
	}

	parentOf := make(map[string]string, len(created))
	inSet := make(map[string]bool, len(created))
	for _, id := range created {
		inSet[id] = true
	}
	r.do(func() {
		for _, id := range created {
			if a, ok := r.board.Assignment(id); ok {
				parentOf[id] = a.AttachedToID()
			}
		}
	})

	ordered := make([]string, 0, len(created))
	placed := make(map[string]bool, len(created))
	remaining := append([]string(nil), created...)
	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, id := range remaining {
			p := parentOf[id]
			if p == "" || !inSet[p] || placed[p] {
				ordered = append(ordered, id)
				placed[id] = true
				progress = true
			} else {
				next = append(next, id)
			}
		}
		remaining = next
		if !progress {
			// Should be unreachable for a forest; emit the rest as-is.
			ordered = append(ordered, remaining...)
			break
		}
	}
	return ordered
}

// confirm finishes a handle after every store write succeeded. Runs on
// the writer loop.
func (r *Reconciler) confirm(h *PendingHandle, idMap map[string]string) {
	if h.tempID != "" {
		h.id = idMap[h.tempID]
	}
	close(h.done)

	if r.alerts != nil && h.id != "" {
		if a, ok := r.board.Assignment(h.id); ok && !a.Attached() && r.board.IsWorkingDouble(a.ResourceID) {
			if res, ok := r.board.Resource(a.ResourceID); ok {
				ds := r.board.DoubleShiftJobs(a.ResourceID)
				go r.alerts.DoubleShift(context.Background(), res, ds)
			}
		}
	}
}

// rollback restores the board after a failed persist and resolves the
// handle with the cause. Created ids are translated through idMap so
// nodes already committed under persisted ids are found and discarded.
// Runs on the writer loop.
func (r *Reconciler) rollback(op string, h *PendingHandle, change board.Change, idMap map[string]string, cause error) {
	translated := change
	translated.Created = make([]string, len(change.Created))
	for i, id := range change.Created {
		if persisted, ok := idMap[id]; ok {
			translated.Created[i] = persisted
		} else {
			translated.Created[i] = id
		}
	}
	r.board.Revert(translated)

	h.err = cause
	close(h.done)

	if r.alerts != nil {
		go r.alerts.Rollback(context.Background(), op, cause)
	}
}
