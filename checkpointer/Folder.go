package checkpointer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Polling outcomes that are not failures
var (
	// ErrNoNewCheckpoint means no checkpoint is available yet and the
	// caller should back off and poll again
	ErrNoNewCheckpoint = errors.New("no new checkpoint")

	// ErrNoMoreCheckpoints means no further checkpoint will appear
	ErrNoMoreCheckpoints = errors.New("no more checkpoints")
)

// GetCheckpointID returns the index in a checkpoint path such as
// "ckpt.12.pth": the last dot separated part of the base name made only
// of digits. The boolean is false if there is no such part.
func GetCheckpointID(path string) (int, bool) {
	parts := strings.Split(filepath.Base(path), ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if !allDigits(parts[i]) {
			continue
		}
		id, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// PollCheckpointFolder returns the path and index of the lowest-indexed
// checkpoint in dir whose index is greater than last. If there is none,
// ErrNoNewCheckpoint is returned.
func PollCheckpointFolder(dir string, last int) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("pollCheckpointFolder: %w", err)
	}

	path, index := "", -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isCheckpointName(name) {
			continue
		}

		id, ok := GetCheckpointID(name)
		if !ok || id <= last {
			continue
		}
		if index == -1 || id < index {
			path, index = filepath.Join(dir, name), id
		}
	}

	if index == -1 {
		return "", 0, ErrNoNewCheckpoint
	}
	return path, index, nil
}

// MarkDone writes the marker telling pollers of dir that training has
// finished and no further checkpoint will be written
func MarkDone(dir string) error {
	path := filepath.Join(dir, DoneMarker)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("markDone: %w", err)
	}
	return nil
}

// ClearDone removes the done marker of dir so pollers keep waiting for
// the checkpoints of a new training run. A missing marker is not an
// error.
func ClearDone(dir string) error {
	err := os.Remove(filepath.Join(dir, DoneMarker))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearDone: %w", err)
	}
	return nil
}

// Poller finds the next checkpoint to evaluate
type Poller interface {
	// Poll returns the lowest-indexed checkpoint after last. It returns
	// ErrNoNewCheckpoint to ask the caller to retry later, and
	// ErrNoMoreCheckpoints once polling should stop.
	Poll(last int) (path string, index int, err error)
}

// FolderPoller polls a checkpoint directory. It gives up once no new
// checkpoint has appeared for the idle timeout, or once training has
// marked the directory done and every checkpoint has been returned. A
// zero idle timeout gives up at the first poll that finds nothing.
type FolderPoller struct {
	dir         string
	idleTimeout time.Duration
	idleSince   time.Time
	now         func() time.Time
}

// NewFolderPoller returns a FolderPoller over dir
func NewFolderPoller(dir string, idleTimeout time.Duration) *FolderPoller {
	return &FolderPoller{dir: dir, idleTimeout: idleTimeout, now: time.Now}
}

// Poll implements the Poller interface
func (p *FolderPoller) Poll(last int) (string, int, error) {
	path, index, err := PollCheckpointFolder(p.dir, last)
	if err == nil {
		p.idleSince = time.Time{}
		return path, index, nil
	}
	if !errors.Is(err, ErrNoNewCheckpoint) {
		return "", 0, err
	}

	if _, statErr := os.Stat(filepath.Join(p.dir, DoneMarker)); statErr == nil {
		return "", 0, ErrNoMoreCheckpoints
	}

	now := p.now()
	if p.idleSince.IsZero() {
		p.idleSince = now
	}
	if now.Sub(p.idleSince) >= p.idleTimeout {
		return "", 0, ErrNoMoreCheckpoints
	}
	return "", 0, ErrNoNewCheckpoint
}

func isCheckpointName(name string) bool {
	return strings.HasPrefix(name, CheckpointPrefix+".") &&
		strings.HasSuffix(name, CheckpointExtension)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
