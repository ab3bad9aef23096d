package checkpointer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JelinR/habitat-lab/checkpointer"
)

func TestCheckpoint_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", checkpointer.Filename(2))

	want := &checkpointer.Checkpoint{
		StateDict: map[string]checkpointer.Tensor{
			"weights": {Shape: []int{2, 3}, Data: []float64{1, 2, 3, 4, 5, 6}},
		},
		Config:      []byte("num_environments: 2\n"),
		UpdatesDone: 12,
		StepsDone:   384,
		Extra:       map[string]float64{"last_checkpoint_percent": 0.25},
	}
	require.NoError(t, checkpointer.Save(path, want))

	got, err := checkpointer.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Only the checkpoint remains, no temporary files
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCheckpoint_LoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ckpt.0.pth")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0o600))

	_, err := checkpointer.Load(path)
	require.Error(t, err)
}

func TestCheckpoint_LoadMissing(t *testing.T) {
	t.Parallel()

	_, err := checkpointer.Load(filepath.Join(t.TempDir(), "missing.pth"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
