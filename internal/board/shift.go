package board

import "github.com/siteboard/siteboard/internal/models"

// DoubleShift names the jobs a resource works on each shift of the day.
// Either side may be nil.
type DoubleShift struct {
	DayJob   *models.Job
	NightJob *models.Job
}

// IsWorkingDouble reports whether a resource holds standalone
// assignments on both a day-shift and a night-shift job. Unknown
// resources are simply not working a double.
func (b *Board) IsWorkingDouble(resourceID string) bool {
	ds := b.DoubleShiftJobs(resourceID)
	return ds.DayJob != nil && ds.NightJob != nil
}

// DoubleShiftJobs returns the specific day and night jobs behind a
// resource's shift occupancy.
func (b *Board) DoubleShiftJobs(resourceID string) DoubleShift {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ds DoubleShift
	for _, n := range b.standaloneByResourceLocked(resourceID) {
		job, ok := b.jobs[n.asn.JobID]
		if !ok {
			continue
		}
		switch job.Shift {
		case models.ShiftDay:
			if ds.DayJob == nil {
				j := job
				ds.DayJob = &j
			}
		case models.ShiftNight:
			if ds.NightJob == nil {
				j := job
				ds.NightJob = &j
			}
		}
	}
	return ds
}

// HasMultipleJobAssignments reports whether a resource's assignments,
// attached ones included, reference more than one distinct job.
func (b *Board) HasMultipleJobAssignments(resourceID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool)
	for _, a := range b.assignmentsByResourceLocked(resourceID) {
		seen[a.JobID] = true
		if len(seen) > 1 {
			return true
		}
	}
	return false
}
