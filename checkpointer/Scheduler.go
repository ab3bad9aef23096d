// Package checkpointer implements checkpoint scheduling, checkpoint
// files and the checkpoint directory protocol shared by training and
// evaluation
package checkpointer

import "github.com/JelinR/habitat-lab/config"

// initialCheckpointPercent forces a checkpoint at the first update
// in count mode
const initialCheckpointPercent = -1.0

// Scheduler decides after which updates a checkpoint is saved. In
// interval mode a checkpoint is saved every interval updates. In count
// mode, numCheckpoints checkpoints are spread evenly over training.
type Scheduler struct {
	interval              int
	numCheckpoints        int
	lastCheckpointPercent float64
}

// NewScheduler returns a Scheduler configured by c
func NewScheduler(c *config.Config) *Scheduler {
	return &Scheduler{
		interval:              c.CheckpointInterval,
		numCheckpoints:        c.NumCheckpoints,
		lastCheckpointPercent: initialCheckpointPercent,
	}
}

// ShouldCheckpoint returns whether a checkpoint should be saved after
// the current update, given the number of updates done and the fraction
// of training completed. It should be called once per completed update.
func (s *Scheduler) ShouldCheckpoint(updatesDone int64,
	percentDone float64) bool {
	if s.interval != config.Unset {
		return updatesDone%int64(s.interval) == 0
	}

	if s.numCheckpoints <= 0 {
		return false
	}

	step := 1.0 / float64(s.numCheckpoints)
	if s.lastCheckpointPercent+step < percentDone {
		s.lastCheckpointPercent = percentDone
		return true
	}
	return false
}

// LastCheckpointPercent returns the fraction of training completed at
// the last count mode checkpoint
func (s *Scheduler) LastCheckpointPercent() float64 {
	return s.lastCheckpointPercent
}

// SetLastCheckpointPercent restores the Scheduler's cursor, for example
// from resume state
func (s *Scheduler) SetLastCheckpointPercent(p float64) {
	s.lastCheckpointPercent = p
}
