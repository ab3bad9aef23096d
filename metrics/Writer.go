// Package metrics implements scalar writers for training and
// evaluation statistics and the Prometheus collectors exported by
// trainers
package metrics

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ScalarsFile is the name of the file FileWriter writes to
const ScalarsFile = "scalars.jsonl"

// Writer records scalar values against a step
type Writer interface {
	AddScalar(tag string, value float64, step int64)
	Close() error
}

// LogWriter writes scalars to a structured logger at debug level
type LogWriter struct {
	logger *slog.Logger
}

// NewLogWriter returns a LogWriter
func NewLogWriter(logger *slog.Logger) *LogWriter {
	return &LogWriter{logger}
}

// AddScalar implements the Writer interface
func (l *LogWriter) AddScalar(tag string, value float64, step int64) {
	l.logger.Debug("scalar", "tag", tag, "value", value, "step", step)
}

// Close implements the Writer interface
func (l *LogWriter) Close() error { return nil }

// scalar is a single line of a FileWriter's output
type scalar struct {
	Tag      string  `json:"tag"`
	Value    float64 `json:"value"`
	Step     int64   `json:"step"`
	WallTime float64 `json:"wall_time"`
}

// FileWriter appends scalars as JSON lines to a file. Writes are
// buffered and flushed every flush interval and on Close.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	err  error

	stop chan struct{}
	done chan struct{}
}

// NewFileWriter returns a FileWriter appending to ScalarsFile in dir
func NewFileWriter(dir string, flush time.Duration) (*FileWriter, error) {
	if flush <= 0 {
		return nil, fmt.Errorf("newFileWriter: flush interval must be "+
			"positive, got %v", flush)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFileWriter: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, ScalarsFile),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("newFileWriter: %w", err)
	}

	buf := bufio.NewWriter(f)
	w := &FileWriter{
		file: f,
		buf:  buf,
		enc:  json.NewEncoder(buf),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.flushEvery(flush)

	return w, nil
}

// AddScalar implements the Writer interface. The first write error is
// kept and returned by Close.
func (w *FileWriter) AddScalar(tag string, value float64, step int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return
	}
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	w.err = w.enc.Encode(scalar{tag, value, step, now})
}

// Flush writes buffered scalars to the file
func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// Close flushes and closes the file
func (w *FileWriter) Close() error {
	close(w.stop)
	<-w.done

	err := w.Flush()
	return errors.Join(err, w.file.Close())
}

func (w *FileWriter) flushEvery(d time.Duration) {
	defer close(w.done)

	tick := time.NewTicker(d)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			_ = w.Flush()
		case <-w.stop:
			return
		}
	}
}

// MultiWriter duplicates scalars to several Writers
type MultiWriter []Writer

// AddScalar implements the Writer interface
func (m MultiWriter) AddScalar(tag string, value float64, step int64) {
	for _, w := range m {
		w.AddScalar(tag, value, step)
	}
}

// Close closes every Writer
func (m MultiWriter) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
