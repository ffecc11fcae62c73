// Package reconcile keeps the in-memory board and the persistent store
// in agreement. Local mutations are applied optimistically under temp
// ids, persisted asynchronously, and either confirmed (temp id swapped
// for the authoritative one) or rolled back. Remote change-feed events
// are merged idempotently. All board mutation funnels through one
// single-writer loop, so merges and local operations never interleave
// mid-update.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/models"
)

// Persister is the slice of the store the reconciler drives. The store
// type satisfies it; tests substitute an in-memory fake.
type Persister interface {
	CreateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// Alerter receives operational alerts. The notify package satisfies it;
// alerts are fired from goroutines and must be best effort.
type Alerter interface {
	Rollback(ctx context.Context, op string, cause error)
	DoubleShift(ctx context.Context, r models.Resource, ds board.DoubleShift)
}

// Default orphan-event buffer policy.
const (
	DefaultOrphanMaxAttempts = 5
	DefaultOrphanTTL         = 2 * time.Minute
)

// PendingHandle is returned by every optimistic mutation. Await blocks
// until the store confirms or rejects the change and yields the
// authoritative primary id.
type PendingHandle struct {
	tempID string
	done   chan struct{}
	id     string
	err    error
}

// TempID returns the local id assigned to the primary created node, or
// "" when the operation created no node.
func (h *PendingHandle) TempID() string { return h.tempID }

// Done is closed once the mutation is confirmed or rolled back.
func (h *PendingHandle) Done() <-chan struct{} { return h.done }

// Await blocks until confirmation or rollback and returns the
// authoritative primary id. A rollback surfaces as ConflictError or
// PersistenceError; the board has already been restored either way.
func (h *PendingHandle) Await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return h.id, h.err
	}
}

// task is one unit of work for the single-writer loop.
type task struct {
	fn   func()
	done chan struct{}
}

// Opts holds parameters for creating a Reconciler.
type Opts struct {
	Board  *board.Board
	Store  Persister
	Actor  string  // stamped on outbox events; own echoes are skipped
	Alerts Alerter // optional; rollback and double-shift notifications

	OrphanMaxAttempts int           // defaults to DefaultOrphanMaxAttempts
	OrphanTTL         time.Duration // defaults to DefaultOrphanTTL
}

// Reconciler owns all board mutation. Local operations and remote
// merges are serialized through the loop started by Run.
type Reconciler struct {
	board  *board.Board
	store  Persister
	actor  string
	alerts Alerter

	orphanMaxAttempts int
	orphanTTL         time.Duration

	tasks   chan task
	orphans map[string][]*orphanEvent // missing parent id -> buffered rows
}

// New creates a Reconciler. Run must be started before any operation is
// issued; operations block until the loop picks them up.
func New(opts Opts) (*Reconciler, error) {
	if opts.Board == nil {
		return nil, fmt.Errorf("reconcile: board is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("reconcile: store is required")
	}
	attempts := opts.OrphanMaxAttempts
	if attempts <= 0 {
		attempts = DefaultOrphanMaxAttempts
	}
	ttl := opts.OrphanTTL
	if ttl <= 0 {
		ttl = DefaultOrphanTTL
	}
	return &Reconciler{
		board:             opts.Board,
		store:             opts.Store,
		actor:             opts.Actor,
		alerts:            opts.Alerts,
		orphanMaxAttempts: attempts,
		orphanTTL:         ttl,
		tasks:             make(chan task, 64),
		orphans:           make(map[string][]*orphanEvent),
	}, nil
}

// Board exposes the graph for read-side queries. Mutation stays with
// the reconciler.
func (r *Reconciler) Board() *board.Board { return r.board }

// Run consumes the task queue and the remote event stream until the
// context is cancelled. Exactly one Run per Reconciler; it is the
// single writer for the board.
func (r *Reconciler) Run(ctx context.Context, events <-chan models.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			t.fn()
			close(t.done)
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.mergeRemoteEvent(e)
		}
	}
}

// do runs fn on the writer loop and waits for it to finish.
func (r *Reconciler) do(fn func()) {
	t := task{fn: fn, done: make(chan struct{})}
	r.tasks <- t
	<-t.done
}

// ApplyOptimistic runs a board mutation on the writer loop and, if it
// succeeds, persists its Change asynchronously. The returned handle
// resolves to the authoritative primary id on confirmation. Validation
// and not-found errors surface immediately and leave the board
// untouched.
func (r *Reconciler) ApplyOptimistic(op string, mutate func(b *board.Board) (string, board.Change, error)) (*PendingHandle, error) {
	var (
		primary string
		change  board.Change
		opErr   error
		h       *PendingHandle
	)
	r.do(func() {
		primary, change, opErr = mutate(r.board)
		if opErr != nil {
			return
		}
		h = &PendingHandle{done: make(chan struct{}), id: primary}
		if board.IsTempID(primary) {
			h.tempID = primary
			h.id = ""
		}
	})
	if opErr != nil {
		return nil, opErr
	}
	if change.Empty() {
		close(h.done)
		return h, nil
	}
	go r.persistChange(op, h, change)
	return h, nil
}

// Assign places a resource on a job row optimistically.
func (r *Reconciler) Assign(resourceID, jobID string, row models.RowType, position int) (*PendingHandle, error) {
	return r.ApplyOptimistic("assign", func(b *board.Board) (string, board.Change, error) {
		return b.Assign(resourceID, jobID, row, position)
	})
}

// Attach attaches a source resource or assignment to a target
// assignment optimistically.
func (r *Reconciler) Attach(targetID, sourceRef string) (*PendingHandle, error) {
	return r.ApplyOptimistic("attach", func(b *board.Board) (string, board.Change, error) {
		return b.Attach(targetID, sourceRef)
	})
}

// Detach severs an attachment optimistically.
func (r *Reconciler) Detach(id string) (*PendingHandle, error) {
	return r.ApplyOptimistic("detach", func(b *board.Board) (string, board.Change, error) {
		change, err := b.Detach(id)
		return "", change, err
	})
}

// Remove deletes an assignment and its attachments optimistically.
func (r *Reconciler) Remove(id string) (*PendingHandle, error) {
	return r.ApplyOptimistic("remove", func(b *board.Board) (string, board.Change, error) {
		change, err := b.Remove(id)
		return "", change, err
	})
}

// MoveGroup relocates a whole attachment group optimistically.
func (r *Reconciler) MoveGroup(ids []string, jobID string, row models.RowType, position int) (*PendingHandle, error) {
	return r.ApplyOptimistic("move", func(b *board.Board) (string, board.Change, error) {
		return b.MoveGroup(ids, jobID, row, position)
	})
}

// UpdateSlot changes an assignment's time slot optimistically.
func (r *Reconciler) UpdateSlot(id string, slot models.TimeSlot) (*PendingHandle, error) {
	return r.ApplyOptimistic("update slot", func(b *board.Board) (string, board.Change, error) {
		change, err := b.UpdateSlot(id, slot)
		return "", change, err
	})
}

// UpdateNote changes an assignment's note optimistically.
func (r *Reconciler) UpdateNote(id, note string) (*PendingHandle, error) {
	return r.ApplyOptimistic("update note", func(b *board.Board) (string, board.Change, error) {
		change, err := b.UpdateNote(id, note)
		return "", change, err
	})
}
