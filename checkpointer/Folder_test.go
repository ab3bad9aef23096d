package checkpointer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
}

func TestGetCheckpointID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		id   int
		ok   bool
	}{
		{"data/ckpt.12.pth", 12, true},
		{"ckpt.0.pth", 0, true},
		{"/a/b/model.3.7.pth", 7, true},
		{"model.pth", 0, false},
		{"ckpt.1a.pth", 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			id, ok := GetCheckpointID(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestPollCheckpointFolder_Ordering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"ckpt.10.pth", "ckpt.2.pth", "ckpt.0.pth",
		ResumeStateFile, "notes.txt"} {
		touch(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ckpt.5.pth"), 0o755))

	var order []int
	last := -1
	for {
		path, index, err := PollCheckpointFolder(dir, last)
		if err != nil {
			require.ErrorIs(t, err, ErrNoNewCheckpoint)
			break
		}
		assert.Equal(t, filepath.Join(dir, Filename(index)), path)
		order = append(order, index)
		last = index
	}

	assert.Equal(t, []int{0, 2, 10}, order)
}

func TestPollCheckpointFolder_MissingDir(t *testing.T) {
	t.Parallel()

	_, _, err := PollCheckpointFolder(filepath.Join(t.TempDir(), "x"), -1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoNewCheckpoint)
}

func TestFolderPoller_ZeroIdleTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, Filename(0))

	p := NewFolderPoller(dir, 0)
	_, index, err := p.Poll(-1)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	_, _, err = p.Poll(0)
	require.ErrorIs(t, err, ErrNoMoreCheckpoints)
}

func TestFolderPoller_IdleTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := time.Unix(0, 0)
	p := NewFolderPoller(dir, 10*time.Second)
	p.now = func() time.Time { return clock }

	_, _, err := p.Poll(-1)
	require.ErrorIs(t, err, ErrNoNewCheckpoint)

	clock = clock.Add(5 * time.Second)
	_, _, err = p.Poll(-1)
	require.ErrorIs(t, err, ErrNoNewCheckpoint)

	// A new checkpoint resets the idle clock
	touch(t, dir, Filename(1))
	_, index, err := p.Poll(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	clock = clock.Add(9 * time.Second)
	_, _, err = p.Poll(1)
	require.ErrorIs(t, err, ErrNoNewCheckpoint)

	clock = clock.Add(10 * time.Second)
	_, _, err = p.Poll(1)
	require.ErrorIs(t, err, ErrNoMoreCheckpoints)
}

func TestFolderPoller_DoneMarker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, Filename(0))
	require.NoError(t, MarkDone(dir))

	p := NewFolderPoller(dir, time.Hour)
	_, _, err := p.Poll(-1)
	require.NoError(t, err)

	_, _, err = p.Poll(0)
	require.ErrorIs(t, err, ErrNoMoreCheckpoints)
}

func TestClearDone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, Filename(0))
	require.NoError(t, MarkDone(dir))
	require.NoError(t, ClearDone(dir))
	assert.NoFileExists(t, filepath.Join(dir, DoneMarker))

	// Missing marker
	require.NoError(t, ClearDone(dir))

	p := NewFolderPoller(dir, time.Hour)
	_, _, err := p.Poll(-1)
	require.NoError(t, err)

	_, _, err = p.Poll(0)
	require.ErrorIs(t, err, ErrNoNewCheckpoint)
}
