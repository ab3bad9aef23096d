// Package trainer implements the lifecycle shared by reinforcement
// learning trainers: progress tracking, checkpoint and resume state
// scheduling, preemption, and evaluation of checkpoints as they appear
// in a directory.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/evaluation"
	"github.com/JelinR/habitat-lab/logging"
	"github.com/JelinR/habitat-lab/metrics"
)

// DefaultFlushSecs is the default interval at which scalar writers
// flush to disk
const DefaultFlushSecs = 30

// Video options
const (
	VideoDisk        = "disk"
	VideoTensorboard = "tensorboard"
)

// EvalResult is the outcome of evaluating one checkpoint
type EvalResult = evaluation.Result

// Trainer trains a policy and evaluates its checkpoints
type Trainer interface {
	Train(ctx context.Context) error
	Eval(ctx context.Context) error
}

// CheckpointEvaluator evaluates a single checkpoint, writing its
// statistics to w at step index
type CheckpointEvaluator interface {
	EvalCheckpoint(ctx context.Context, path string, w metrics.Writer,
		index int) (EvalResult, error)
}

// Checkpointer saves and loads checkpoints
type Checkpointer interface {
	SaveCheckpoint(fileName string, extra map[string]float64) error
	LoadCheckpoint(path string) (*checkpointer.Checkpoint, error)
}

// BaseRLTrainer holds the state and behaviour shared by RL trainers.
// Concrete trainers embed it.
type BaseRLTrainer struct {
	Config      *config.Config
	Progress    *Progress
	Scheduler   *checkpointer.Scheduler
	Preemption  *Preemption
	Logger      *slog.Logger
	Metrics     *metrics.Collectors
	VideoOption []string
	FlushSecs   int

	poller      checkpointer.Poller
	lastSession *evaluation.Session
}

// Option configures a BaseRLTrainer
type Option func(*BaseRLTrainer)

// WithLogger sets the logger of the trainer
func WithLogger(l *slog.Logger) Option {
	return func(b *BaseRLTrainer) { b.Logger = l }
}

// WithMetrics sets the Prometheus collectors of the trainer
func WithMetrics(c *metrics.Collectors) Option {
	return func(b *BaseRLTrainer) { b.Metrics = c }
}

// WithPreemption sets the preemption token of the trainer
func WithPreemption(p *Preemption) Option {
	return func(b *BaseRLTrainer) { b.Preemption = p }
}

// WithPoller sets the poller used to find checkpoints to evaluate. By
// default the checkpoint directory is polled with the configured idle
// timeout.
func WithPoller(p checkpointer.Poller) Option {
	return func(b *BaseRLTrainer) { b.poller = p }
}

// NewBaseRLTrainer returns a BaseRLTrainer for c. An error is returned
// if c does not set exactly one stopping criterion and exactly one
// checkpoint criterion.
func NewBaseRLTrainer(c *config.Config, opts ...Option) (*BaseRLTrainer, error) {
	if c == nil {
		return nil, fmt.Errorf("newBaseRLTrainer: config is required")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newBaseRLTrainer: %w", err)
	}

	b := &BaseRLTrainer{
		Config:      c,
		Progress:    NewProgress(c),
		Scheduler:   checkpointer.NewScheduler(c),
		Preemption:  NewPreemption(),
		Logger:      logging.Discard(),
		Metrics:     metrics.NewCollectors(),
		VideoOption: slices.Clone(c.VideoOption),
		FlushSecs:   DefaultFlushSecs,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// PercentDone returns the fraction of training completed
func (b *BaseRLTrainer) PercentDone() float64 {
	return b.Progress.PercentDone()
}

// IsDone returns whether training has finished
func (b *BaseRLTrainer) IsDone() bool {
	return b.Progress.IsDone()
}

// ShouldCheckpoint returns whether a checkpoint should be saved after
// the update that was just recorded
func (b *BaseRLTrainer) ShouldCheckpoint() bool {
	return b.Scheduler.ShouldCheckpoint(b.Progress.UpdatesDone,
		b.PercentDone())
}

// ShouldSaveResumeState returns whether resume state should be saved
// before the next update: always when preemption was requested, and
// otherwise every save_resume_state_interval updates, restricted to
// SLURM batch jobs when save_state_batch_only is set
func (b *BaseRLTrainer) ShouldSaveResumeState() bool {
	if b.Preemption.SaveStateRequested() {
		return true
	}

	p := b.Config.RL.Preemption
	if p.SaveStateBatchOnly && !IsSlurmBatchJob() {
		return false
	}
	return (b.Progress.UpdatesDone+1)%int64(p.SaveResumeStateInterval) == 0
}

// RecordUpdate records a completed update and exports the progress
func (b *BaseRLTrainer) RecordUpdate(steps int64) {
	b.Progress.Record(steps)

	b.Metrics.UpdatesDone.Set(float64(b.Progress.UpdatesDone))
	b.Metrics.StepsDone.Set(float64(b.Progress.StepsDone))
	b.Metrics.PercentDone.Set(b.PercentDone())
}

// ResumeState returns the trainer state saved alongside the model in
// resume state and checkpoints
func (b *BaseRLTrainer) ResumeState() map[string]float64 {
	return map[string]float64{
		lastCheckpointPercentKey: b.Scheduler.LastCheckpointPercent(),
	}
}

// RestoreState restores the progress and scheduler saved in c
func (b *BaseRLTrainer) RestoreState(c *checkpointer.Checkpoint) {
	b.Progress.Restore(c.UpdatesDone, c.StepsDone)
	if p, ok := c.Extra[lastCheckpointPercentKey]; ok {
		b.Scheduler.SetLastCheckpointPercent(p)
	}

	b.Metrics.UpdatesDone.Set(float64(b.Progress.UpdatesDone))
	b.Metrics.StepsDone.Set(float64(b.Progress.StepsDone))
	b.Metrics.PercentDone.Set(b.PercentDone())
}

// NewWriter returns the scalar writer for a run: the logger and the
// Prometheus collectors, plus a file in tensorboard_dir if set
func (b *BaseRLTrainer) NewWriter() (metrics.Writer, error) {
	w := metrics.MultiWriter{
		metrics.NewLogWriter(b.Logger),
		metrics.NewPromWriter(b.Metrics),
	}

	if dir := b.Config.TensorboardDir; dir != "" {
		flush := time.Duration(b.FlushSecs) * time.Second
		f, err := metrics.NewFileWriter(dir, flush)
		if err != nil {
			return nil, fmt.Errorf("newWriter: %w", err)
		}
		w = append(w, f)
	}
	return w, nil
}

// LastSession returns the session of the last call to EvalCheckpoints
// over a directory, or nil
func (b *BaseRLTrainer) LastSession() *evaluation.Session {
	return b.lastSession
}

const lastCheckpointPercentKey = "last_checkpoint_percent"
