package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/evaluation"
	"github.com/JelinR/habitat-lab/metrics"
)

// EvalCheckpoints evaluates the checkpoints at eval_ckpt_path_dir with
// ev. A single checkpoint file is evaluated once. A directory is polled
// and its checkpoints evaluated in index order until the poller reports
// that no more checkpoints will appear, keeping the success history
// logs in the directory up to date.
func (b *BaseRLTrainer) EvalCheckpoints(ctx context.Context,
	ev CheckpointEvaluator) error {
	if slices.Contains(b.VideoOption, VideoDisk) && b.Config.VideoDir == "" {
		return fmt.Errorf("evalCheckpoints: must specify a directory for " +
			"storing videos on disk")
	}
	if slices.Contains(b.VideoOption, VideoTensorboard) &&
		b.Config.TensorboardDir == "" {
		return fmt.Errorf("evalCheckpoints: must specify a tensorboard " +
			"directory for video display")
	}

	w, err := b.NewWriter()
	if err != nil {
		return fmt.Errorf("evalCheckpoints: %w", err)
	}

	err = b.evalCheckpoints(ctx, ev, w)
	if err := errors.Join(err, w.Close()); err != nil {
		return fmt.Errorf("evalCheckpoints: %w", err)
	}
	return nil
}

func (b *BaseRLTrainer) evalCheckpoints(ctx context.Context,
	ev CheckpointEvaluator, w metrics.Writer) error {
	path := b.Config.EvalCkptPathDir
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		index, ok := checkpointer.GetCheckpointID(path)
		if !ok {
			index = 0
		}

		result, err := ev.EvalCheckpoint(ctx, path, w, index)
		if err != nil {
			return err
		}
		b.Metrics.CheckpointsEvaluated.Inc()
		b.Metrics.EvalSuccess.Set(result.MeanSuccess())

		b.Logger.Info("checkpoint evaluated", "index", index,
			"success", result.MeanSuccess())
		return nil
	}

	poller := b.poller
	if poller == nil {
		poller = checkpointer.NewFolderPoller(path, b.Config.Eval.IdleTimeout)
	}
	return b.pollCheckpoints(ctx, ev, w, poller, path)
}

func (b *BaseRLTrainer) pollCheckpoints(ctx context.Context,
	ev CheckpointEvaluator, w metrics.Writer, poller checkpointer.Poller,
	dir string) error {
	session, err := evaluation.NewSession(dir)
	if err != nil {
		return err
	}
	b.lastSession = session

	last := -1
	for {
		path, index, err := poller.Poll(last)
		switch {
		case errors.Is(err, checkpointer.ErrNoMoreCheckpoints):
			b.Logger.Info("no checkpoint found, exiting", "dir", dir,
				"evaluated", len(session.History()))
			return nil

		case errors.Is(err, checkpointer.ErrNoNewCheckpoint):
			if err := sleep(ctx, b.Config.Eval.PollInterval); err != nil {
				return err
			}
			continue

		case err != nil:
			return err
		}

		b.Logger.Info("evaluating checkpoint", "path", path, "index", index)
		result, err := ev.EvalCheckpoint(ctx, path, w, index)
		if err != nil {
			return fmt.Errorf("checkpoint %d: %w", index, err)
		}
		last = index

		if err := session.Record(path, index, result); err != nil {
			return err
		}
		b.Metrics.CheckpointsEvaluated.Inc()
		b.Metrics.EvalSuccess.Set(result.MeanSuccess())

		b.Logger.Info("checkpoint evaluated", "index", index,
			"success", result.MeanSuccess())
		b.Logger.Debug("success history\n" + session.Summary())
	}
}

// sleep blocks for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
