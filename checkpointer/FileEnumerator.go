package checkpointer

import (
	"fmt"
	"path/filepath"
)

// Checkpoint file names
const (
	CheckpointPrefix    = "ckpt"
	CheckpointExtension = ".pth"
	ResumeStateFile     = ".habitat-resume-state.pth"
	DoneMarker          = "done"
)

// Filename returns the name of the checkpoint with the given index
func Filename(index int) string {
	return fmt.Sprintf("%v.%d%v", CheckpointPrefix, index,
		CheckpointExtension)
}

// FileEnumerator enumerates checkpoint filenames in a directory
type FileEnumerator struct {
	i   int
	dir string
}

// NewFileEnumerator returns a FileEnumerator whose first filename has
// index start
func NewFileEnumerator(dir string, start int) *FileEnumerator {
	return &FileEnumerator{i: start, dir: dir}
}

// Next returns the path of the next consecutive enumerated file
func (f *FileEnumerator) Next() string {
	path := filepath.Join(f.dir, Filename(f.i))
	f.i++
	return path
}

// Count returns the index of the next filename to be enumerated
func (f *FileEnumerator) Count() int {
	return f.i
}
