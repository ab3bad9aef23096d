// Package evaluation accumulates the results of evaluating a sequence
// of checkpoints and writes them to logs, charts and tables
package evaluation

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of evaluating a single checkpoint. SuccessCounts
// maps each evaluated episode to its success, and AggregatedStats maps
// measurement names to their mean over all episodes.
type Result struct {
	SuccessCounts   map[string]float64
	AggregatedStats map[string]float64
}

// MeanSuccess returns the mean of the success counts, or 0 if there
// are none
func (r Result) MeanSuccess() float64 {
	if len(r.SuccessCounts) == 0 {
		return 0
	}

	values := make([]float64, 0, len(r.SuccessCounts))
	for _, v := range r.SuccessCounts {
		values = append(values, v)
	}
	return floats.Sum(values) / float64(len(values))
}

// Bin accumulates the successes of a single episode over checkpoints
type Bin struct {
	Successes float64
	Count     int
}

// Histogram maps episodes to their accumulated successes. Keys keep the
// order in which they were first added.
type Histogram struct {
	keys []string
	bins map[string]*Bin
}

// NewHistogram returns an empty Histogram
func NewHistogram() *Histogram {
	return &Histogram{bins: make(map[string]*Bin)}
}

// Add adds one sample per key of counts. New keys are appended in
// sorted order.
func (h *Histogram) Add(counts map[string]float64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		bin, ok := h.bins[k]
		if !ok {
			bin = &Bin{}
			h.bins[k] = bin
			h.keys = append(h.keys, k)
		}
		bin.Successes += counts[k]
		bin.Count++
	}
}

// Keys returns the keys of the Histogram in insertion order
func (h *Histogram) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Bin returns the bin of key k
func (h *Histogram) Bin(k string) (Bin, bool) {
	bin, ok := h.bins[k]
	if !ok {
		return Bin{}, false
	}
	return *bin, true
}

// Len returns the number of keys in the Histogram
func (h *Histogram) Len() int {
	return len(h.keys)
}

// Record is the mean success of one evaluated checkpoint
type Record struct {
	Index   int
	Success float64
}

// History is the sequence of evaluated checkpoints in evaluation order
type History []Record

// formatFloat formats f with the shortest representation that keeps a
// decimal point, so 50 is written as "50.0"
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for _, r := range s {
		if r == '.' || r == 'N' || r == 'I' {
			return s
		}
	}
	return s + ".0"
}
