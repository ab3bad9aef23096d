package vpg

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/environment/pointnav"
	"github.com/JelinR/habitat-lab/environment/vector"
	"github.com/JelinR/habitat-lab/metrics"
	"github.com/JelinR/habitat-lab/trainer"
)

// rewardStat is the aggregated stat holding the mean episode reward
const rewardStat = "reward"

// EvalCheckpoint evaluates the checkpoint at path greedily over
// environment.eval_episodes_per_env episodes in each environment. Every
// environment is paused once its episodes are exhausted. The mean of
// each episode measurement is written to w at the checkpoint's step
// count.
func (t *Trainer) EvalCheckpoint(ctx context.Context, path string,
	w metrics.Writer, index int) (trainer.EvalResult, error) {
	ckpt, err := t.LoadCheckpoint(path)
	if err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}
	saved, err := config.FromYAML(ckpt.Config)
	if err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}
	c, err := config.SetupEvalConfig(t.Config, saved, t.Logger)
	if err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}

	cells := c.Environment.Rows * c.Environment.Cols
	policy := NewPolicy(numFeatures(cells), pointnav.NumActions,
		c.Environment.Seed)
	if err := policy.LoadStateDict(ckpt.StateDict); err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}

	envs, err := makeEnvs(c, c.Environment.EvalEpisodesPerEnv)
	if err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}
	venv, err := vector.New(envs)
	if err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}
	defer venv.Close()

	e := &evaluator{
		policy: policy,
		venv:   venv,
		decay:  c.RL.VPG.HiddenDecay,
		video:  slices.Contains(c.VideoOption, trainer.VideoDisk),
		dir:    c.VideoDir,
		index:  index,
		stats:  make(map[string][]float64),
		counts: make(map[string]float64),
	}
	if err := e.run(ctx, cells); err != nil {
		return trainer.EvalResult{}, fmt.Errorf("evalCheckpoint: %w", err)
	}

	result := e.result()
	names := make([]string, 0, len(result.AggregatedStats))
	for name := range result.AggregatedStats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.AddScalar("eval/"+name, result.AggregatedStats[name],
			ckpt.StepsDone)
	}

	t.Logger.Info("checkpoint stats", "index", index,
		"episodes", len(result.SuccessCounts),
		"success", result.MeanSuccess(),
		"spl", result.AggregatedStats[pointnav.SPL])
	return result, nil
}

// evaluator runs the episodes of one evaluation
type evaluator struct {
	policy *Policy
	venv   *vector.Env
	decay  float64
	video  bool
	dir    string
	index  int

	stats  map[string][]float64
	counts map[string]float64
}

func (e *evaluator) run(ctx context.Context, cells int) error {
	initial, err := e.venv.Reset()
	if err != nil {
		return err
	}
	batch := newBatch(initial, cells)
	if e.video {
		batch.Frames = make([][]image.Image, e.venv.NumEnvs())
		for i := range batch.Frames {
			batch.Frames[i] = []image.Image{e.venv.Render(i)}
		}
	}

	for e.venv.NumEnvs() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		obs := features(batch)
		actions := make([]int, e.venv.NumEnvs())
		for i := range actions {
			actions[i] = e.policy.SelectAction(obs.RawRowView(i), true)
		}

		steps, dones, err := e.venv.Step(actions)
		if err != nil {
			return err
		}

		var envsToPause []int
		for i, step := range steps {
			advance(batch, i, step, actions[i], e.decay)
			if e.video {
				batch.Frames[i] = append(batch.Frames[i], e.venv.Render(i))
			}
			if !dones[i] {
				continue
			}

			if err := e.finishEpisode(batch, i); err != nil {
				return err
			}
			if !e.venv.HasNextEpisode(i) {
				envsToPause = append(envsToPause, i)
				continue
			}

			startEpisode(batch, i, e.venv.ResetAt(i))
			if e.video {
				batch.Frames[i] = []image.Image{e.venv.Render(i)}
			}
		}

		batch = trainer.PauseEnvs(envsToPause, e.venv, batch)
	}
	return nil
}

// finishEpisode records the measurements of the episode that just
// ended in environment i and writes its video
func (e *evaluator) finishEpisode(batch trainer.RolloutBatch, i int) error {
	id := e.venv.ID(i)
	episode := e.venv.CurrentEpisodeID(i)
	m := e.venv.Metrics(i)

	key := fmt.Sprintf("env%d/ep%d", id, episode)
	e.counts[key] = m[pointnav.Success]
	for name, v := range m {
		e.stats[name] = append(e.stats[name], v)
	}
	e.stats[rewardStat] = append(e.stats[rewardStat],
		batch.CurrentEpisodeReward[i])

	if !e.video {
		return nil
	}
	name := fmt.Sprintf("ckpt%d_env%d_ep%d", e.index, id, episode)
	return pointnav.WriteFrames(e.dir, name, batch.Frames[i])
}

func (e *evaluator) result() trainer.EvalResult {
	aggregated := make(map[string]float64, len(e.stats))
	for name, values := range e.stats {
		aggregated[name] = stat.Mean(values, nil)
	}
	return trainer.EvalResult{
		SuccessCounts:   e.counts,
		AggregatedStats: aggregated,
	}
}
