package reconcile

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/models"
)

// orphanEvent is a remote assignment row whose parent has not arrived
// yet. It waits in a bounded buffer keyed by the missing parent id.
type orphanEvent struct {
	asn       models.Assignment
	attempts  int
	firstSeen time.Time
}

// mergeRemoteEvent applies one change-feed event to the board. Runs on
// the writer loop. Merge failures are logged and never fatal.
func (r *Reconciler) mergeRemoteEvent(e models.ChangeEvent) {
	r.expireOrphans()

	if r.actor != "" && e.Actor == r.actor {
		// Our own write echoed back; the optimistic path already applied it.
		return
	}

	switch e.Table {
	case models.TableAssignments:
		r.mergeAssignmentEvent(e)
	case models.TableResources:
		r.mergeResourceEvent(e)
	case models.TableJobs:
		r.mergeJobEvent(e)
	case models.TablePairings:
		// Pairings live in the store, not on the board.
	default:
		log.Printf("reconcile: merge: unknown table %q", e.Table)
	}
}

func (r *Reconciler) mergeAssignmentEvent(e models.ChangeEvent) {
	switch e.Op {
	case models.OpDelete:
		removed := r.board.MergeRemove(e.RowID)
		for _, a := range removed {
			if a.ID != e.RowID {
				log.Printf("reconcile: merge: remote delete of %s cascaded to %s", e.RowID, a.ID)
			}
		}
	case models.OpInsert, models.OpUpdate:
		var a models.Assignment
		if err := json.Unmarshal([]byte(e.Payload), &a); err != nil {
			log.Printf("reconcile: merge: bad assignment payload for %s: %v", e.RowID, err)
			return
		}
		if a.ID == "" {
			a.ID = e.RowID
		}
		if err := r.board.MergeAssignment(a); err != nil {
			if board.IsNotFound(err) {
				r.bufferOrphan(a)
				return
			}
			log.Printf("reconcile: merge: assignment %s: %v", a.ID, err)
			return
		}
		r.logCapacityViolation(a)
		r.alertDoubleShift(a)
		r.retryOrphans(a.ID)
	default:
		log.Printf("reconcile: merge: unknown op %q for assignment %s", e.Op, e.RowID)
	}
}

func (r *Reconciler) mergeResourceEvent(e models.ChangeEvent) {
	switch e.Op {
	case models.OpDelete:
		r.board.RemoveResource(e.RowID)
	case models.OpInsert, models.OpUpdate:
		var res models.Resource
		if err := json.Unmarshal([]byte(e.Payload), &res); err != nil {
			log.Printf("reconcile: merge: bad resource payload for %s: %v", e.RowID, err)
			return
		}
		if res.ID == "" {
			res.ID = e.RowID
		}
		r.board.PutResource(res)
	}
}

func (r *Reconciler) mergeJobEvent(e models.ChangeEvent) {
	switch e.Op {
	case models.OpDelete:
		r.board.RemoveJob(e.RowID)
	case models.OpInsert, models.OpUpdate:
		var j models.Job
		if err := json.Unmarshal([]byte(e.Payload), &j); err != nil {
			log.Printf("reconcile: merge: bad job payload for %s: %v", e.RowID, err)
			return
		}
		if j.ID == "" {
			j.ID = e.RowID
		}
		r.board.PutJob(j)
	}
}

// bufferOrphan parks an assignment row whose parent is unknown until
// the parent is observed, the attempt budget runs out, or the TTL
// expires.
func (r *Reconciler) bufferOrphan(a models.Assignment) {
	parent := a.AttachedToID()
	for _, o := range r.orphans[parent] {
		if o.asn.ID == a.ID {
			o.asn = a
			return
		}
	}
	r.orphans[parent] = append(r.orphans[parent], &orphanEvent{
		asn:       a,
		firstSeen: time.Now(),
	})
}

// retryOrphans replays buffered rows once their missing parent id has
// been observed. A retry that still cannot merge goes back in the
// buffer with its attempt count bumped.
func (r *Reconciler) retryOrphans(parentID string) {
	waiting := r.orphans[parentID]
	if len(waiting) == 0 {
		return
	}
	delete(r.orphans, parentID)

	for _, o := range waiting {
		o.attempts++
		if err := r.board.MergeAssignment(o.asn); err != nil {
			if o.attempts >= r.orphanMaxAttempts {
				log.Printf("reconcile: merge: dropping %s after %d attempts: %v", o.asn.ID, o.attempts, err)
				continue
			}
			if board.IsNotFound(err) {
				r.orphans[o.asn.AttachedToID()] = append(r.orphans[o.asn.AttachedToID()], o)
				continue
			}
			log.Printf("reconcile: merge: orphan %s: %v", o.asn.ID, err)
			continue
		}
		// A parked child may itself be a parked grandchild's parent.
		r.retryOrphans(o.asn.ID)
	}
}

// expireOrphans drops buffered rows whose TTL has passed.
func (r *Reconciler) expireOrphans() {
	cutoff := time.Now().Add(-r.orphanTTL)
	for parent, waiting := range r.orphans {
		kept := waiting[:0]
		for _, o := range waiting {
			if o.firstSeen.Before(cutoff) {
				log.Printf("reconcile: merge: dropping %s, parent %s never arrived", o.asn.ID, parent)
				continue
			}
			kept = append(kept, o)
		}
		if len(kept) == 0 {
			delete(r.orphans, parent)
		} else {
			r.orphans[parent] = kept
		}
	}
}

// alertDoubleShift notifies when a merged standalone assignment puts a
// resource on both shifts of the day.
func (r *Reconciler) alertDoubleShift(a models.Assignment) {
	if r.alerts == nil || a.Attached() {
		return
	}
	if !r.board.IsWorkingDouble(a.ResourceID) {
		return
	}
	res, ok := r.board.Resource(a.ResourceID)
	if !ok {
		return
	}
	ds := r.board.DoubleShiftJobs(a.ResourceID)
	go r.alerts.DoubleShift(context.Background(), res, ds)
}

// logCapacityViolation re-checks the attachment capacity rule after a
// remote merge. Two clients can each see remaining capacity and both
// attach; the store accepts both, so the merged graph may exceed
// maxCount. The violation is logged, not rejected.
func (r *Reconciler) logCapacityViolation(a models.Assignment) {
	parentID := a.AttachedToID()
	if parentID == "" {
		return
	}
	parent, ok := r.board.Assignment(parentID)
	if !ok {
		return
	}
	src, ok := r.board.Resource(a.ResourceID)
	if !ok {
		return
	}
	tgt, ok := r.board.Resource(parent.ResourceID)
	if !ok {
		return
	}
	rule, ok := r.board.Rules().Rule(src.Type, tgt.Type)
	if !ok || rule.MaxCount <= 0 {
		return
	}

	count := 0
	for _, child := range r.board.AttachedAssignments(parentID) {
		if cr, ok := r.board.Resource(child.ResourceID); ok && cr.Type == src.Type {
			count++
		}
	}
	if count > rule.MaxCount {
		log.Printf("reconcile: merge: %s on %s exceeds capacity: %d %s attached, max %d",
			a.ID, parentID, count, src.Type, rule.MaxCount)
	}
}
