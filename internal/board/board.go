// Package board implements the in-memory assignment graph: placements
// of resources onto job rows, parent/child attachments between them,
// and the shift-occupancy queries derived from both. All mutation goes
// through operations that consult the rule engine first and either
// commit whole or leave the graph untouched.
package board

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/rules"
)

// State tracks an assignment node's persistence lifecycle. Nodes created
// locally start pending and become committed once the store confirms
// them under their authoritative id. Removal is terminal: removed nodes
// leave the arena entirely.
type State string

const (
	StatePending   State = "pending"
	StateCommitted State = "committed"
)

// node is one arena entry: the assignment row plus the derived inverse
// of ParentID and the persistence state.
type node struct {
	asn      models.Assignment
	children []string
	state    State
}

// Change records what a mutating operation did, in enough detail to
// invert it: ids of created nodes, prior copies of updated nodes, and
// full copies of removed nodes. The reconciliation layer uses it to
// roll back optimistic mutations that fail to persist.
type Change struct {
	Created []string
	Updated []models.Assignment
	Removed []models.Assignment
}

// Empty reports whether the operation changed nothing.
func (c Change) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Board is the in-memory assignment graph store. It owns the node
// arena, the resource/job lookup tables, and the per-job row overrides.
// The rule engine is injected at construction and consulted on every
// mutation.
//
// The internal lock makes reads safe against the reconciler's id
// rewrites; all mutation is expected to come from a single logical
// writer (the reconciliation loop or a one-shot CLI invocation).
type Board struct {
	mu    sync.RWMutex
	rules *rules.Engine

	nodes     map[string]*node
	resources map[string]models.Resource
	jobs      map[string]models.Job
	rowBoxes  map[string][]models.RowBox // "jobID/row" -> boxes
	equip     map[string]string          // assignment id -> decoded equipment profile JSON
}

// New creates an empty Board backed by the given rule engine.
func New(engine *rules.Engine) *Board {
	return &Board{
		rules:     engine,
		nodes:     make(map[string]*node),
		resources: make(map[string]models.Resource),
		jobs:      make(map[string]models.Job),
		rowBoxes:  make(map[string][]models.RowBox),
		equip:     make(map[string]string),
	}
}

// GenerateTempID creates a local assignment id in tmp-xxxxxxxx format.
// Temp ids are replaced by authoritative store ids on confirmation.
func GenerateTempID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("board: generate temp ID: %w", err)
	}
	return "tmp-" + hex.EncodeToString(b), nil
}

// IsTempID reports whether id is a locally generated temporary id.
func IsTempID(id string) bool { return strings.HasPrefix(id, "tmp-") }

// PutResource adds or replaces a resource in the lookup table.
func (b *Board) PutResource(r models.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources[r.ID] = r
}

// RemoveResource drops a resource from the lookup table.
func (b *Board) RemoveResource(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.resources, id)
}

// Resource returns a resource by id.
func (b *Board) Resource(id string) (models.Resource, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.resources[id]
	return r, ok
}

// PutJob adds or replaces a job in the lookup table.
func (b *Board) PutJob(j models.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[j.ID] = j
}

// RemoveJob drops a job from the lookup table.
func (b *Board) RemoveJob(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.jobs, id)
}

// Job returns a job by id.
func (b *Board) Job(id string) (models.Job, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	j, ok := b.jobs[id]
	return j, ok
}

// SetJobRowConfig installs a per-job row split. Boxes is the JSON
// column of a JobRowConfig row.
func (b *Board) SetJobRowConfig(cfg models.JobRowConfig) error {
	var boxes []models.RowBox
	if err := json.Unmarshal([]byte(cfg.Boxes), &boxes); err != nil {
		return fmt.Errorf("board: parse row boxes for job %s row %s: %w", cfg.JobID, cfg.Row, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rowBoxes[rowKey(cfg.JobID, cfg.Row)] = boxes
	return nil
}

// SetEquipConfig stores equipment-specific configuration keyed by
// assignment id. The entry follows the id through confirmation rewrites
// and group moves.
func (b *Board) SetEquipConfig(assignmentID, profile string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nodes[assignmentID]; !ok {
		return &NotFoundError{Kind: "assignment", ID: assignmentID}
	}
	b.equip[assignmentID] = profile
	return nil
}

// EquipConfig returns the equipment profile for an assignment, if any.
func (b *Board) EquipConfig(assignmentID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.equip[assignmentID]
	return p, ok
}

// Load replaces the board contents from a bulk snapshot. All loaded
// assignments are committed state; the children index is rebuilt from
// ParentID references.
func (b *Board) Load(resources []models.Resource, jobs []models.Job, assignments []models.Assignment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nodes = make(map[string]*node, len(assignments))
	b.resources = make(map[string]models.Resource, len(resources))
	b.jobs = make(map[string]models.Job, len(jobs))
	b.equip = make(map[string]string)

	for _, r := range resources {
		b.resources[r.ID] = r
	}
	for _, j := range jobs {
		b.jobs[j.ID] = j
	}
	for _, a := range assignments {
		a.Parent, a.Children = nil, nil
		b.nodes[a.ID] = &node{asn: a, state: StateCommitted}
		if a.EquipConfig != "" {
			b.equip[a.ID] = a.EquipConfig
		}
	}
	b.reindexChildren()
}

// reindexChildren rebuilds every node's children list from ParentID
// references. Callers hold the write lock.
func (b *Board) reindexChildren() {
	for _, n := range b.nodes {
		n.children = nil
	}
	ids := make([]string, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := b.nodes[id]
		if pid := n.asn.AttachedToID(); pid != "" {
			if parent, ok := b.nodes[pid]; ok {
				parent.children = append(parent.children, id)
			}
		}
	}
}

// Assignment returns a copy of the assignment with the given id.
func (b *Board) Assignment(id string) (models.Assignment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	if !ok {
		return models.Assignment{}, false
	}
	return n.asn, true
}

// NodeState returns the persistence state of an assignment.
func (b *Board) NodeState(id string) (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	if !ok {
		return "", false
	}
	return n.state, true
}

// Len returns the number of assignment nodes on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

// AssignmentsByJobRow returns copies of all assignments in one job row,
// standalone and attached alike, ordered by position then id.
func (b *Board) AssignmentsByJobRow(jobID string, row models.RowType) []models.Assignment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Assignment
	for _, n := range b.nodes {
		if n.asn.JobID == jobID && n.asn.Row == row {
			out = append(out, n.asn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AttachedAssignments returns copies of the children attached to an
// assignment, ordered by id.
func (b *Board) AttachedAssignments(id string) []models.Assignment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	if !ok {
		return nil
	}
	out := make([]models.Assignment, 0, len(n.children))
	for _, cid := range n.children {
		if c, ok := b.nodes[cid]; ok {
			out = append(out, c.asn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignmentsByResource returns copies of every assignment held by a
// resource, attached ones included.
func (b *Board) AssignmentsByResource(resourceID string) []models.Assignment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.assignmentsByResourceLocked(resourceID)
}

func (b *Board) assignmentsByResourceLocked(resourceID string) []models.Assignment {
	var out []models.Assignment
	for _, n := range b.nodes {
		if n.asn.ResourceID == resourceID {
			out = append(out, n.asn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// standaloneByResourceLocked returns the resource's non-attached
// assignments. Callers hold at least a read lock.
func (b *Board) standaloneByResourceLocked(resourceID string) []*node {
	var out []*node
	for _, n := range b.nodes {
		if n.asn.ResourceID == resourceID && !n.asn.Attached() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].asn.ID < out[j].asn.ID })
	return out
}

// allowedOnRowLocked decides whether a resource type may be placed in a
// job's row, honoring a per-job row split when one is configured.
func (b *Board) allowedOnRowLocked(jobID string, row models.RowType, rt models.ResourceType) bool {
	if boxes, ok := b.rowBoxes[rowKey(jobID, row)]; ok {
		for _, box := range boxes {
			for _, allowed := range box.AllowedTypes {
				if allowed == rt {
					return true
				}
			}
		}
		return false
	}
	return b.rules.CanDropOnRow(rt, row)
}

// CanDropOnRow reports whether a resource may be placed in a job's row.
// Exposed for UI collaborators probing drop targets before committing.
func (b *Board) CanDropOnRow(resourceID, jobID string, row models.RowType) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res, ok := b.resources[resourceID]
	if !ok {
		return false, &NotFoundError{Kind: "resource", ID: resourceID}
	}
	return b.allowedOnRowLocked(jobID, row, res.Type), nil
}

// Rules returns the injected rule engine.
func (b *Board) Rules() *rules.Engine { return b.rules }

func rowKey(jobID string, row models.RowType) string {
	return jobID + "/" + string(row)
}
