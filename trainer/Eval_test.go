package trainer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/evaluation"
	"github.com/JelinR/habitat-lab/metrics"
	"github.com/JelinR/habitat-lab/trainer"
)

// fakeEvaluator records the checkpoints it evaluates
type fakeEvaluator struct {
	paths   []string
	indices []int
	results map[int]trainer.EvalResult
	err     error
}

func (f *fakeEvaluator) EvalCheckpoint(_ context.Context, path string,
	w metrics.Writer, index int) (trainer.EvalResult, error) {
	f.paths = append(f.paths, path)
	f.indices = append(f.indices, index)
	if f.err != nil {
		return trainer.EvalResult{}, f.err
	}

	r := f.results[index]
	w.AddScalar("eval/success", r.MeanSuccess(), int64(index))
	return r, nil
}

// scriptedPoller returns its responses in order, then reports that no
// more checkpoints will appear
type scriptedPoller struct {
	responses []error
	dir       string
	lasts     []int
}

func (p *scriptedPoller) Poll(last int) (string, int, error) {
	p.lasts = append(p.lasts, last)
	if len(p.responses) == 0 {
		return "", 0, checkpointer.ErrNoMoreCheckpoints
	}

	err := p.responses[0]
	p.responses = p.responses[1:]
	if err != nil {
		return "", 0, err
	}
	index := last + 1
	return filepath.Join(p.dir, checkpointer.Filename(index)), index, nil
}

func successResult(counts map[string]float64) trainer.EvalResult {
	return trainer.EvalResult{SuccessCounts: counts}
}

func TestEvalCheckpoints_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, checkpointer.Filename(7))
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	b := newBase(t, "eval_ckpt_path_dir="+path)
	ev := &fakeEvaluator{results: map[int]trainer.EvalResult{
		7: successResult(map[string]float64{"env0/ep0": 1, "env0/ep1": 0}),
	}}
	require.NoError(t, b.EvalCheckpoints(context.Background(), ev))

	assert.Equal(t, []string{path}, ev.paths)
	assert.Equal(t, []int{7}, ev.indices)
	assert.Nil(t, b.LastSession())
	assert.Equal(t, 1.0, metricValue(t, b, "habitat_checkpoints_evaluated_total"))
	assert.Equal(t, 0.5, metricValue(t, b, "habitat_eval_success_rate"))
}

// metricValue returns the value of the unlabelled counter or gauge name
// in the registry of b
func metricValue(t *testing.T, b *trainer.BaseRLTrainer, name string) float64 {
	t.Helper()

	families, err := b.Metrics.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		m := f.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	require.Failf(t, "metric not registered", "name: %s", name)
	return 0
}

func TestEvalCheckpoints_SingleFileWithoutIndex(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.pth")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	b := newBase(t, "eval_ckpt_path_dir="+path)
	ev := &fakeEvaluator{}
	require.NoError(t, b.EvalCheckpoints(context.Background(), ev))
	assert.Equal(t, []int{0}, ev.indices)
}

func TestEvalCheckpoints_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, i := range []int{0, 1, 2} {
		f := filepath.Join(dir, checkpointer.Filename(i))
		require.NoError(t, os.WriteFile(f, nil, 0o600))
	}

	b := newBase(t, "eval_ckpt_path_dir="+dir)
	ev := &fakeEvaluator{results: map[int]trainer.EvalResult{
		0: successResult(map[string]float64{"ep0": 0, "ep1": 0}),
		1: successResult(map[string]float64{"ep0": 1, "ep1": 0}),
		2: successResult(map[string]float64{"ep0": 1, "ep1": 1}),
	}}
	require.NoError(t, b.EvalCheckpoints(context.Background(), ev))

	assert.Equal(t, []int{0, 1, 2}, ev.indices)

	s := b.LastSession()
	require.NotNil(t, s)
	assert.Equal(t, evaluation.History{
		{Index: 0, Success: 0},
		{Index: 1, Success: 0.5},
		{Index: 2, Success: 1},
	}, s.History())

	bin, ok := s.Histogram().Bin("ep0")
	require.True(t, ok)
	assert.Equal(t, evaluation.Bin{Successes: 2, Count: 3}, bin)

	for _, name := range []string{
		evaluation.SummaryLog,
		evaluation.SummaryChart,
		filepath.Join(evaluation.HistoryDir, "0.log"),
		filepath.Join(evaluation.HistoryDir, "2.log"),
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	summary, err := os.ReadFile(filepath.Join(dir, evaluation.SummaryLog))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "ckpt : 1 : 50.0%")
}

func TestEvalCheckpoints_WaitsForNewCheckpoints(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	poller := &scriptedPoller{
		dir: dir,
		responses: []error{
			checkpointer.ErrNoNewCheckpoint,
			nil,
			checkpointer.ErrNoNewCheckpoint,
			checkpointer.ErrNoNewCheckpoint,
			nil,
		},
	}

	b, err := trainer.NewBaseRLTrainer(
		newConfig(t, "eval_ckpt_path_dir="+dir, "eval.poll_interval=1ms"),
		trainer.WithPoller(poller),
	)
	require.NoError(t, err)

	ev := &fakeEvaluator{}
	require.NoError(t, b.EvalCheckpoints(context.Background(), ev))

	assert.Equal(t, []int{0, 1}, ev.indices)
	assert.Equal(t, []int{-1, -1, 0, 0, 0, 1}, poller.lasts)
}

func TestEvalCheckpoints_EvaluatorError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir,
		checkpointer.Filename(3)), nil, 0o600))

	b := newBase(t, "eval_ckpt_path_dir="+dir)
	boom := errors.New("boom")
	err := b.EvalCheckpoints(context.Background(), &fakeEvaluator{err: boom})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "checkpoint 3")
}

func TestEvalCheckpoints_PollerError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	boom := fmt.Errorf("read dir: %w", os.ErrPermission)
	b, err := trainer.NewBaseRLTrainer(
		newConfig(t, "eval_ckpt_path_dir="+dir),
		trainer.WithPoller(&scriptedPoller{dir: dir,
			responses: []error{boom}}),
	)
	require.NoError(t, err)

	err = b.EvalCheckpoints(context.Background(), &fakeEvaluator{})
	require.ErrorIs(t, err, os.ErrPermission)
}

func TestEvalCheckpoints_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	waiting := make([]error, 1000)
	for i := range waiting {
		waiting[i] = checkpointer.ErrNoNewCheckpoint
	}

	b, err := trainer.NewBaseRLTrainer(
		newConfig(t, "eval_ckpt_path_dir="+dir, "eval.poll_interval=1h"),
		trainer.WithPoller(&scriptedPoller{dir: dir, responses: waiting}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(),
		10*time.Millisecond)
	defer cancel()

	err = b.EvalCheckpoints(ctx, &fakeEvaluator{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEvalCheckpoints_VideoOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []string
	}{
		{"disk without dir", []string{"video_option=[disk]", "video_dir="}},
		{"tensorboard without dir", []string{"video_option=[tensorboard]"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBase(t, append(tt.opts,
				"eval_ckpt_path_dir="+t.TempDir())...)
			ev := &fakeEvaluator{}
			require.Error(t, b.EvalCheckpoints(context.Background(), ev))
			assert.Empty(t, ev.indices)
		})
	}
}

func TestEvalCheckpoints_TensorboardScalars(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tb := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir,
		checkpointer.Filename(0)), nil, 0o600))

	b := newBase(t, "eval_ckpt_path_dir="+dir, "tensorboard_dir="+tb)
	ev := &fakeEvaluator{results: map[int]trainer.EvalResult{
		0: successResult(map[string]float64{"ep0": 1}),
	}}
	require.NoError(t, b.EvalCheckpoints(context.Background(), ev))

	data, err := os.ReadFile(filepath.Join(tb, metrics.ScalarsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "eval/success")
}
