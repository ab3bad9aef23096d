package evaluation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Names of the files written to an evaluation directory
const (
	HistoryDir   = "history_of_success"
	SummaryLog   = "history_of_success.log"
	SummaryChart = "history_of_success.html"
)

const rule = "====================================================="

// Session accumulates the results of a polling session over a
// checkpoint directory and keeps its logs up to date
type Session struct {
	dir       string
	histogram *Histogram
	history   History
}

// NewSession creates the history directory in dir and returns an empty
// Session
func NewSession(dir string) (*Session, error) {
	if err := os.MkdirAll(filepath.Join(dir, HistoryDir), 0o755); err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}

	return &Session{dir: dir, histogram: NewHistogram()}, nil
}

// Record merges the result of evaluating the checkpoint at path with
// index into the session, writes the checkpoint's log, and overwrites
// the summary log and chart
func (s *Session) Record(path string, index int, r Result) error {
	s.histogram.Add(r.SuccessCounts)
	s.history = append(s.history, Record{index, r.MeanSuccess()})

	ckptLog := filepath.Join(s.dir, HistoryDir, strconv.Itoa(index)+".log")
	if err := os.WriteFile(ckptLog, []byte(CheckpointLog(path, r)), 0o644); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	summary := filepath.Join(s.dir, SummaryLog)
	if err := os.WriteFile(summary, []byte(s.Summary()), 0o644); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	chart, err := os.Create(filepath.Join(s.dir, SummaryChart))
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	defer chart.Close()

	if err := RenderChart(chart, s.history); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return chart.Close()
}

// Histogram returns the accumulated successes of the session
func (s *Session) Histogram() *Histogram {
	return s.histogram
}

// History returns the mean success of every evaluated checkpoint
func (s *Session) History() History {
	return append(History(nil), s.history...)
}

// Summary returns the text of the summary log: the histogram at the
// last evaluated checkpoint followed by the success history
func (s *Session) Summary() string {
	var b strings.Builder

	last := -1
	if len(s.history) > 0 {
		last = s.history[len(s.history)-1].Index
	}

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Episode success histogram at ckpt %d: \n", last)
	for _, k := range s.histogram.Keys() {
		bin, _ := s.histogram.Bin(k)
		fmt.Fprintf(&b, "%s : %s / %d \n", k, formatFloat(bin.Successes),
			bin.Count)
	}

	b.WriteString("Episode success history: \n")
	for _, r := range s.history {
		fmt.Fprintf(&b, "ckpt : %d : %s%%\n", r.Index,
			formatFloat(r.Success*100))
	}
	return b.String()
}

// CheckpointLog returns the text of the log of a single checkpoint: its
// path and mean success followed by its aggregated stats
func CheckpointLog(path string, r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ckpt : %s : %s%%\n", path,
		formatFloat(r.MeanSuccess()*100))

	keys := make([]string, 0, len(r.AggregatedStats))
	for k := range r.AggregatedStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "%s : %s\n", k, formatFloat(r.AggregatedStats[k]))
	}
	return b.String()
}
