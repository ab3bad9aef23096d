package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// Tensor is a named parameter of a model in row-major order
type Tensor struct {
	Shape []int
	Data  []float64
}

// Checkpoint is everything saved to resume training or to evaluate a
// trained model
type Checkpoint struct {
	StateDict   map[string]Tensor
	Config      []byte // YAML of the config used to train
	UpdatesDone int64
	StepsDone   int64
	Extra       map[string]float64
}

// Save writes c to path as an LZ4 compressed gob. The checkpoint is
// first written to a temporary file in the same directory and then
// renamed, so readers never observe a partially written checkpoint.
func Save(path string, c *Checkpoint) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := lz4.NewWriter(tmp)
	if err := gob.NewEncoder(zw).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save
func Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer f.Close()

	var c Checkpoint
	if err := gob.NewDecoder(lz4.NewReader(f)).Decode(&c); err != nil {
		return nil, fmt.Errorf("load: could not decode checkpoint %v: %w",
			path, err)
	}
	return &c, nil
}
