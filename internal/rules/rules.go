// Package rules implements the declarative attachment and row-placement
// rule engine. An Engine is plain lookup state: it is constructed from
// rule rows, consulted by the board on every mutation, and never mutates
// anything itself.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/siteboard/siteboard/internal/models"
)

// pairKey identifies one magnet rule by (source, target) type.
type pairKey struct {
	source models.ResourceType
	target models.ResourceType
}

// Engine answers attachment and drop questions from two declarative
// tables. Keys are unique, so lookups need no precedence logic: a
// missing rule means "not allowed".
type Engine struct {
	magnet map[pairKey]models.MagnetRule
	drop   map[models.RowType]map[models.ResourceType]bool
}

// NewEngine builds an Engine from persisted rule rows. DropRule
// AllowedTypes columns hold JSON arrays of resource types.
func NewEngine(magnet []models.MagnetRule, drop []models.DropRule) (*Engine, error) {
	e := &Engine{
		magnet: make(map[pairKey]models.MagnetRule, len(magnet)),
		drop:   make(map[models.RowType]map[models.ResourceType]bool, len(drop)),
	}
	for _, r := range magnet {
		e.magnet[pairKey{r.SourceType, r.TargetType}] = r
	}
	for _, d := range drop {
		var allowed []models.ResourceType
		if err := json.Unmarshal([]byte(d.AllowedTypes), &allowed); err != nil {
			return nil, fmt.Errorf("rules: parse allowed types for row %q: %w", d.Row, err)
		}
		set := make(map[models.ResourceType]bool, len(allowed))
		for _, rt := range allowed {
			set[rt] = true
		}
		e.drop[d.Row] = set
	}
	return e, nil
}

// SetRule inserts or replaces one magnet rule.
func (e *Engine) SetRule(r models.MagnetRule) {
	e.magnet[pairKey{r.SourceType, r.TargetType}] = r
}

// SetDropRule replaces the allowed-type set for a row.
func (e *Engine) SetDropRule(row models.RowType, allowed []models.ResourceType) {
	set := make(map[models.ResourceType]bool, len(allowed))
	for _, rt := range allowed {
		set[rt] = true
	}
	e.drop[row] = set
}

// Rule returns the magnet rule for (source, target), if one exists.
func (e *Engine) Rule(source, target models.ResourceType) (models.MagnetRule, bool) {
	r, ok := e.magnet[pairKey{source, target}]
	return r, ok
}

// CanAttach reports whether a resource of source type may attach to a
// resource of target type.
func (e *Engine) CanAttach(source, target models.ResourceType) bool {
	r, ok := e.magnet[pairKey{source, target}]
	return ok && r.CanAttach
}

// RequiredAttachmentsFor returns all source types that must be attached
// to a target of the given type before it counts as ready. Sorted for
// stable output.
func (e *Engine) RequiredAttachmentsFor(target models.ResourceType) []models.ResourceType {
	var required []models.ResourceType
	for key, r := range e.magnet {
		if key.target == target && r.IsRequired {
			required = append(required, key.source)
		}
	}
	sort.Slice(required, func(i, j int) bool { return required[i] < required[j] })
	return required
}

// RemainingCapacity returns how many more resources of source type may
// attach to a target of the given type, given the current attachment
// count for that pair. Floors at zero; no rule means zero capacity.
func (e *Engine) RemainingCapacity(source, target models.ResourceType, current int) int {
	r, ok := e.magnet[pairKey{source, target}]
	if !ok || !r.CanAttach {
		return 0
	}
	remaining := r.MaxCount - current
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AllowedTypesForRow returns the resource types permitted in a row,
// sorted for stable output. An unknown row allows nothing.
func (e *Engine) AllowedTypesForRow(row models.RowType) []models.ResourceType {
	set := e.drop[row]
	types := make([]models.ResourceType, 0, len(set))
	for rt := range set {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// CanDropOnRow reports whether a resource of the given type may be
// placed in the given row.
func (e *Engine) CanDropOnRow(rt models.ResourceType, row models.RowType) bool {
	return e.drop[row][rt]
}

// Defaults returns the built-in magnet rules used when no configuration
// overrides them: operators are required on excavators and pavers, up to
// two screwmen ride a paver, and drivers pair with trucks.
func Defaults() []models.MagnetRule {
	return []models.MagnetRule{
		{SourceType: models.TypeOperator, TargetType: models.TypeExcavator, CanAttach: true, IsRequired: true, MaxCount: 1},
		{SourceType: models.TypeOperator, TargetType: models.TypePaver, CanAttach: true, IsRequired: true, MaxCount: 1},
		{SourceType: models.TypeOperator, TargetType: models.TypeRoller, CanAttach: true, MaxCount: 1},
		{SourceType: models.TypeScrewman, TargetType: models.TypePaver, CanAttach: true, MaxCount: 2},
		{SourceType: models.TypeDriver, TargetType: models.TypeTruck, CanAttach: true, IsRequired: true, MaxCount: 1},
	}
}

// DefaultDropRules returns the built-in row-placement rules.
func DefaultDropRules() map[models.RowType][]models.ResourceType {
	return map[models.RowType][]models.ResourceType{
		models.RowForeman:   {models.TypeForeman},
		models.RowCrew:      {models.TypeForeman, models.TypeLaborer, models.TypeScrewman, models.TypeOperator, models.TypeDriver},
		models.RowEquipment: {models.TypeExcavator, models.TypePaver, models.TypeRoller, models.TypeSweeper},
		models.RowTrucks:    {models.TypeTruck},
	}
}

// NewDefaultEngine builds an Engine from the built-in rule sets.
func NewDefaultEngine() *Engine {
	e := &Engine{
		magnet: make(map[pairKey]models.MagnetRule),
		drop:   make(map[models.RowType]map[models.ResourceType]bool),
	}
	for _, r := range Defaults() {
		e.SetRule(r)
	}
	for row, allowed := range DefaultDropRules() {
		e.SetDropRule(row, allowed)
	}
	return e
}
