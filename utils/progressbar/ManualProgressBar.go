// Package progressbar implements functionality of printing a progress
// bar to a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ManualProgressBar implements progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	out             io.Writer
	width           float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
	now             func() time.Time
}

// NewManualProgressBar returns a new ManualProgressBar width characters
// wide writing to out
func NewManualProgressBar(out io.Writer, width int) *ManualProgressBar {
	return &ManualProgressBar{
		out:       out,
		width:     float64(width),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Set sets the fraction of work completed, clamped to [0, 1]
func (p *ManualProgressBar) Set(fraction float64) {
	p.currentProgress = min(max(fraction, 0), 1)
}

// Progress returns the fraction of work completed
func (p *ManualProgressBar) Progress() float64 {
	return p.currentProgress
}

// String returns the progress bar as it would be displayed
func (p *ManualProgressBar) String() string {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := int(p.currentProgress * p.width)
	p.bar.WriteString(strings.Repeat("█", filled))
	p.bar.WriteString(strings.Repeat(" ", int(p.width)-filled))

	elapsed := p.now().Sub(p.startTime).Truncate(time.Second)
	fmt.Fprintf(&p.bar, "| [%.2f%% | elapsed: %v]", p.currentProgress*100,
		elapsed)
	return p.bar.String()
}

// Display redraws the progress bar over the current line
func (p *ManualProgressBar) Display() {
	fmt.Fprintf(p.out, "\r\033[K%v", p.String())
}

// Close moves the output past the progress bar
func (p *ManualProgressBar) Close() {
	fmt.Fprintln(p.out)
}
