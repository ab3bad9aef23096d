package trainer

import "github.com/JelinR/habitat-lab/config"

// Progress tracks how far training has advanced. Counters only grow and
// only change through Record, once an update has been completed.
type Progress struct {
	UpdatesDone int64
	StepsDone   int64

	numUpdates    int64
	totalNumSteps int64
}

// NewProgress returns a Progress measured against the stopping
// criterion of c
func NewProgress(c *config.Config) *Progress {
	return &Progress{
		numUpdates:    c.NumUpdates,
		totalNumSteps: c.TotalNumSteps,
	}
}

// Record records a completed update that took steps environment steps
func (p *Progress) Record(steps int64) {
	if steps < 0 {
		panic("record: steps must be non-negative")
	}
	p.UpdatesDone++
	p.StepsDone += steps
}

// Restore sets the counters from saved state
func (p *Progress) Restore(updatesDone, stepsDone int64) {
	p.UpdatesDone = updatesDone
	p.StepsDone = stepsDone
}

// PercentDone returns the fraction of training completed, measured in
// updates if num_updates is set and in environment steps otherwise
func (p *Progress) PercentDone() float64 {
	if p.numUpdates != config.Unset {
		return float64(p.UpdatesDone) / float64(p.numUpdates)
	}
	return float64(p.StepsDone) / float64(p.totalNumSteps)
}

// IsDone returns whether training has finished
func (p *Progress) IsDone() bool {
	return p.PercentDone() >= 1.0
}
