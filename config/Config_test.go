package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JelinR/habitat-lab/config"
)

func TestFromMap_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromMap(nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultTrainerName, cfg.TrainerName)
	assert.Equal(t, int64(config.Unset), cfg.NumUpdates)
	assert.Equal(t, int64(config.DefaultTotalNumSteps), cfg.TotalNumSteps)
	assert.Equal(t, config.DefaultNumCheckpoints, cfg.NumCheckpoints)
	assert.Equal(t, config.Unset, cfg.CheckpointInterval)
	assert.Equal(t, 2*time.Second, cfg.Eval.PollInterval)
	assert.Equal(t, config.DefaultSplit, cfg.Environment.Split)
	assert.True(t, cfg.ReadOnly())
	assert.True(t, cfg.Struct())
	assert.False(t, cfg.UpdateMode())
	assert.False(t, cfg.IntervalCheckpoints())
}

func TestFromMap_StoppingCriteria(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		updates  int
		steps    int
		wantErr  error
		wantMode bool
	}{
		{"both set", 10, 1000, config.ErrBothSet, false},
		{"neither set", config.Unset, config.Unset, config.ErrNeitherSet, false},
		{"updates only", 10, config.Unset, nil, true},
		{"steps only", config.Unset, 1000, nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.FromMap(map[string]interface{}{
				"num_updates":     tt.updates,
				"total_num_steps": tt.steps,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "num_updates")
				assert.Contains(t, err.Error(), "total_num_steps")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, cfg.UpdateMode())
		})
	}
}

func TestFromMap_CheckpointCriteria(t *testing.T) {
	t.Parallel()

	_, err := config.FromMap(map[string]interface{}{
		"num_checkpoints":     4,
		"checkpoint_interval": 10,
	})
	require.ErrorIs(t, err, config.ErrBothSet)
	assert.Contains(t, err.Error(), "num_checkpoints")
	assert.Contains(t, err.Error(), "checkpoint_interval")

	_, err = config.FromMap(map[string]interface{}{
		"num_checkpoints":     config.Unset,
		"checkpoint_interval": config.Unset,
	})
	require.ErrorIs(t, err, config.ErrNeitherSet)

	cfg, err := config.FromMap(map[string]interface{}{
		"num_checkpoints":     config.Unset,
		"checkpoint_interval": 25,
	})
	require.NoError(t, err)
	assert.True(t, cfg.IntervalCheckpoints())
}

func TestFromMap_NonPositiveTarget(t *testing.T) {
	t.Parallel()

	_, err := config.FromMap(map[string]interface{}{
		"num_updates":     0,
		"total_num_steps": config.Unset,
	})
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_FileAndOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "train.yaml")
	content := `num_environments: 2
num_updates: 50
total_num_steps: -1
environment:
  rows: 5
  cols: 6
rl:
  vpg:
    lr: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path, []string{
		"rl.vpg.num_steps=16",
		"video_option=[disk]",
		"eval.poll_interval=500ms",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.NumEnvironments)
	assert.Equal(t, int64(50), cfg.NumUpdates)
	assert.Equal(t, 5, cfg.Environment.Rows)
	assert.Equal(t, 6, cfg.Environment.Cols)
	assert.InDelta(t, 0.1, cfg.RL.VPG.LearningRate, 1e-12)
	assert.Equal(t, 16, cfg.RL.VPG.NumSteps)
	assert.Equal(t, []string{"disk"}, cfg.VideoOption)
	assert.Equal(t, 500*time.Millisecond, cfg.Eval.PollInterval)
	assert.Len(t, cfg.CmdTrailingOpts, 3)
	assert.True(t, cfg.ReadOnly())
}

func TestLoad_UnknownOverrideKey(t *testing.T) {
	t.Parallel()

	_, err := config.Load("", []string{"rl.vpg.no_such_key=1"})
	require.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestLoad_MalformedOverride(t *testing.T) {
	t.Parallel()

	_, err := config.Load("", []string{"num_updates"})
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestSet_Frozen(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromMap(nil)
	require.NoError(t, err)

	err = cfg.Set("num_environments", 8)
	require.ErrorIs(t, err, config.ErrReadOnly)
	assert.Equal(t, config.DefaultNumEnvironments(), cfg.NumEnvironments)
}

func TestYAML_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromMap(map[string]interface{}{
		"environment": map[string]interface{}{"rows": 11},
	})
	require.NoError(t, err)

	data, err := cfg.YAML()
	require.NoError(t, err)

	restored, err := config.FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 11, restored.Environment.Rows)
	assert.Equal(t, cfg.TotalNumSteps, restored.TotalNumSteps)
	assert.Equal(t, cfg.Eval.PollInterval, restored.Eval.PollInterval)
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromMap(nil)
	require.NoError(t, err)

	clone := cfg.Clone()
	assert.True(t, clone.ReadOnly())

	require.NoError(t, config.ReadWrite(clone, func(c *config.Config) error {
		return c.Set("log_interval", 99)
	}))
	assert.Equal(t, 99, clone.LogInterval)
	assert.Equal(t, config.DefaultLogInterval, cfg.LogInterval)
}
