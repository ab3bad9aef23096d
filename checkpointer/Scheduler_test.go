package checkpointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/config"
)

func newConfig(t *testing.T, settings map[string]interface{}) *config.Config {
	t.Helper()

	cfg, err := config.FromMap(settings)
	require.NoError(t, err)
	return cfg
}

func TestScheduler_IntervalMode(t *testing.T) {
	t.Parallel()

	const interval = 10
	s := checkpointer.NewScheduler(newConfig(t, map[string]interface{}{
		"num_checkpoints":     config.Unset,
		"checkpoint_interval": interval,
	}))

	for u := int64(0); u <= 3*interval; u++ {
		assert.Equal(t, u%interval == 0,
			s.ShouldCheckpoint(u, float64(u)/(3*interval)),
			"updates done: %d", u)
	}
}

func TestScheduler_CountMode(t *testing.T) {
	t.Parallel()

	s := checkpointer.NewScheduler(newConfig(t, map[string]interface{}{
		"num_checkpoints": 4,
		"num_updates":     8,
		"total_num_steps": config.Unset,
	}))
	assert.Equal(t, -1.0, s.LastCheckpointPercent())

	var saved []int64
	for u := int64(1); u <= 8; u++ {
		if s.ShouldCheckpoint(u, float64(u)/8) {
			saved = append(saved, u)
		}
	}

	assert.Equal(t, []int64{1, 4, 7}, saved)
	assert.Equal(t, 7.0/8.0, s.LastCheckpointPercent())
}

func TestScheduler_CountModeFirstUpdate(t *testing.T) {
	t.Parallel()

	s := checkpointer.NewScheduler(newConfig(t, nil))
	assert.True(t, s.ShouldCheckpoint(1, 0.0001))
	assert.False(t, s.ShouldCheckpoint(2, 0.0002))
}

func TestScheduler_ZeroCheckpoints(t *testing.T) {
	t.Parallel()

	s := checkpointer.NewScheduler(newConfig(t, map[string]interface{}{
		"num_checkpoints": 0,
	}))
	for _, p := range []float64{0.1, 0.5, 1.0} {
		assert.False(t, s.ShouldCheckpoint(1, p))
	}
}

func TestScheduler_Restore(t *testing.T) {
	t.Parallel()

	s := checkpointer.NewScheduler(newConfig(t, map[string]interface{}{
		"num_checkpoints": 4,
	}))
	s.SetLastCheckpointPercent(0.5)

	assert.False(t, s.ShouldCheckpoint(10, 0.7))
	assert.True(t, s.ShouldCheckpoint(11, 0.8))
}

func TestFileEnumerator(t *testing.T) {
	t.Parallel()

	enum := checkpointer.NewFileEnumerator("out", 3)
	assert.Equal(t, "out/ckpt.3.pth", enum.Next())
	assert.Equal(t, "out/ckpt.4.pth", enum.Next())
	assert.Equal(t, 5, enum.Count())
	assert.Equal(t, "ckpt.0.pth", checkpointer.Filename(0))
}
