// Package vpg implements a vanilla policy gradient trainer for point
// goal navigation. The policy is linear in the agent's position, the
// offset to its goal and a decaying trace of the cells it visited.
package vpg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"github.com/JelinR/habitat-lab/buffer/rollout"
	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/environment/pointnav"
	"github.com/JelinR/habitat-lab/environment/vector"
	"github.com/JelinR/habitat-lab/metrics"
	"github.com/JelinR/habitat-lab/solver"
	"github.com/JelinR/habitat-lab/trainer"
	"github.com/JelinR/habitat-lab/utils/progressbar"
)

// Name is the name the trainer is registered under
const Name = "vpg"

// Keys of the trainer state saved in checkpoints
const checkpointCountKey = "checkpoint_count"

const progressBarWidth = 40

func init() {
	trainer.Register(Name, func(c *config.Config,
		opts ...trainer.Option) (trainer.Trainer, error) {
		return New(c, opts...)
	})
}

// Trainer trains a linear softmax policy with the policy gradient
type Trainer struct {
	*trainer.BaseRLTrainer

	// ProgressOutput receives the progress bar during training
	ProgressOutput io.Writer

	policy *Policy
	cells  int
}

// New returns a vpg Trainer configured by c
func New(c *config.Config, opts ...trainer.Option) (*Trainer, error) {
	base, err := trainer.NewBaseRLTrainer(c, opts...)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if c.RL.VPG.NumSteps <= 0 {
		return nil, fmt.Errorf("new: rl.vpg.num_steps must be positive, "+
			"got %d", c.RL.VPG.NumSteps)
	}

	cells := c.Environment.Rows * c.Environment.Cols
	return &Trainer{
		BaseRLTrainer:  base,
		ProgressOutput: io.Discard,
		policy: NewPolicy(numFeatures(cells), pointnav.NumActions,
			c.Environment.Seed),
		cells: cells,
	}, nil
}

// Policy returns the policy being trained
func (t *Trainer) Policy() *Policy {
	return t.policy
}

// Train trains the policy until the stopping criterion is met,
// resuming from the resume state in the checkpoint folder if there is
// one. If preemption is requested, resume state is saved and Train
// returns early without error.
func (t *Trainer) Train(ctx context.Context) error {
	c := t.Config
	if err := checkpointer.ClearDone(c.CheckpointFolder); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	count, err := t.resume()
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	w, err := t.NewWriter()
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	err = t.train(ctx, w, checkpointer.NewFileEnumerator(c.CheckpointFolder,
		count))
	if err := errors.Join(err, w.Close()); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}

// resume restores the resume state if present and returns the index of
// the next checkpoint
func (t *Trainer) resume() (int, error) {
	path := filepath.Join(t.Config.CheckpointFolder,
		checkpointer.ResumeStateFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	state, err := checkpointer.Load(path)
	if err != nil {
		return 0, err
	}
	if err := t.policy.LoadStateDict(state.StateDict); err != nil {
		return 0, err
	}
	t.RestoreState(state)

	count := int(state.Extra[checkpointCountKey])
	t.Logger.Info("resuming training", "path", path,
		"updates", state.UpdatesDone, "steps", state.StepsDone)
	return count, nil
}

func (t *Trainer) train(ctx context.Context, w metrics.Writer,
	ckpts *checkpointer.FileEnumerator) error {
	c := t.Config
	vc := c.RL.VPG

	envs, err := makeEnvs(c, c.Environment.NumEpisodes)
	if err != nil {
		return err
	}
	venv, err := vector.New(envs)
	if err != nil {
		return err
	}
	defer venv.Close()

	n := venv.NumEnvs()
	initial, err := venv.Reset()
	if err != nil {
		return err
	}
	batch := newBatch(initial, t.cells)
	buf := rollout.New(n, vc.NumSteps, numFeatures(t.cells), vc.Gamma)

	s, err := solver.FromConfig(vc, buf.Len())
	if err != nil {
		return err
	}
	l, err := newLearner(t.policy, buf.Len(), s)
	if err != nil {
		return err
	}
	defer l.close()

	bar := progressbar.NewManualProgressBar(t.ProgressOutput,
		progressBarWidth)
	defer bar.Close()

	var window episodeWindow
	lastSaved := int64(-1)
	start := time.Now()
	startSteps := t.Progress.StepsDone

	for !t.IsDone() {
		if t.ShouldSaveResumeState() {
			if err := t.saveResumeState(ckpts.Count()); err != nil {
				return err
			}
			if t.Preemption.SaveStateRequested() {
				t.Logger.Info("preempted, resume state saved",
					"updates", t.Progress.UpdatesDone)
				return nil
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		for !buf.Full() {
			obs := features(batch)
			actions := make([]int, n)
			for i := range actions {
				actions[i] = t.policy.SelectAction(obs.RawRowView(i), false)
			}

			steps, dones, err := venv.Step(actions)
			if err != nil {
				return err
			}

			rewards := make([]float64, n)
			for i, step := range steps {
				rewards[i] = step.Reward
				advance(batch, i, step, actions[i], vc.HiddenDecay)
				if dones[i] {
					window.add(venv.Metrics(i), batch.CurrentEpisodeReward[i])
					startEpisode(batch, i, venv.ResetAt(i))
				}
			}

			if err := buf.Insert(obs, actions, rewards, dones); err != nil {
				return err
			}
		}

		obs, actions, adv, err := buf.Get()
		if err != nil {
			return err
		}
		loss, err := l.update(obs, actions, adv)
		if err != nil {
			return err
		}
		t.RecordUpdate(int64(buf.Len()))

		stepsDone := t.Progress.StepsDone
		w.AddScalar("train/loss", loss, stepsDone)
		window.write(w, stepsDone)

		if t.Progress.UpdatesDone%int64(max(c.LogInterval, 1)) == 0 {
			fps := float64(stepsDone-startSteps) / time.Since(start).Seconds()
			t.Logger.Info("update",
				"updates", humanize.Comma(t.Progress.UpdatesDone),
				"frames", humanize.Comma(stepsDone),
				"fps", humanize.FtoaWithDigits(fps, 1),
				"episodes", window.total,
				"success", window.lastSuccess,
			)
		}
		window.reset()

		bar.Set(t.PercentDone())
		bar.Display()

		if t.ShouldCheckpoint() {
			if err := t.saveNext(ckpts); err != nil {
				return err
			}
			lastSaved = t.Progress.UpdatesDone
		}
	}

	if lastSaved != t.Progress.UpdatesDone {
		if err := t.saveNext(ckpts); err != nil {
			return err
		}
	}
	return checkpointer.MarkDone(c.CheckpointFolder)
}

// saveNext saves the next enumerated checkpoint
func (t *Trainer) saveNext(ckpts *checkpointer.FileEnumerator) error {
	count := ckpts.Count()
	path := ckpts.Next()

	extra := t.ResumeState()
	extra[checkpointCountKey] = float64(count + 1)
	if err := t.SaveCheckpoint(filepath.Base(path), extra); err != nil {
		return err
	}

	t.Metrics.CheckpointsSaved.Inc()
	t.Logger.Info("checkpoint saved", "path", path,
		"updates", t.Progress.UpdatesDone)
	return nil
}

// saveResumeState saves the state needed to continue training
func (t *Trainer) saveResumeState(count int) error {
	extra := t.ResumeState()
	extra[checkpointCountKey] = float64(count)
	if err := t.SaveCheckpoint(checkpointer.ResumeStateFile, extra); err != nil {
		return err
	}

	t.Metrics.ResumeStatesSaved.Inc()
	t.Logger.Debug("resume state saved", "updates", t.Progress.UpdatesDone)
	return nil
}

// SaveCheckpoint saves the policy, config and progress to fileName in
// the checkpoint folder
func (t *Trainer) SaveCheckpoint(fileName string,
	extra map[string]float64) error {
	cfg, err := t.Config.YAML()
	if err != nil {
		return fmt.Errorf("saveCheckpoint: %w", err)
	}

	ckpt := &checkpointer.Checkpoint{
		StateDict:   t.policy.StateDict(),
		Config:      cfg,
		UpdatesDone: t.Progress.UpdatesDone,
		StepsDone:   t.Progress.StepsDone,
		Extra:       extra,
	}
	path := filepath.Join(t.Config.CheckpointFolder, fileName)
	if err := checkpointer.Save(path, ckpt); err != nil {
		return fmt.Errorf("saveCheckpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint loads the checkpoint at path
func (t *Trainer) LoadCheckpoint(path string) (*checkpointer.Checkpoint,
	error) {
	ckpt, err := checkpointer.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loadCheckpoint: %w", err)
	}
	return ckpt, nil
}

// Eval evaluates the checkpoints at eval_ckpt_path_dir
func (t *Trainer) Eval(ctx context.Context) error {
	return t.EvalCheckpoints(ctx, t)
}

// episodeWindow accumulates the measurements of episodes finished
// since the last update
type episodeWindow struct {
	success     []float64
	spl         []float64
	reward      []float64
	total       int
	lastSuccess float64
}

func (e *episodeWindow) add(m map[string]float64, reward float64) {
	e.success = append(e.success, m[pointnav.Success])
	e.spl = append(e.spl, m[pointnav.SPL])
	e.reward = append(e.reward, reward)
	e.total++
}

func (e *episodeWindow) write(w metrics.Writer, step int64) {
	if len(e.success) == 0 {
		return
	}

	e.lastSuccess = stat.Mean(e.success, nil)
	w.AddScalar("train/reward", stat.Mean(e.reward, nil), step)
	w.AddScalar("train/success", e.lastSuccess, step)
	w.AddScalar("train/spl", stat.Mean(e.spl, nil), step)
}

func (e *episodeWindow) reset() {
	e.success = e.success[:0]
	e.spl = e.spl[:0]
	e.reward = e.reward[:0]
}
