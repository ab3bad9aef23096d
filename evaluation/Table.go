package evaluation

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Success rates at or above goodSuccess are printed green, those below
// poorSuccess red
const (
	goodSuccess = 0.75
	poorSuccess = 0.25
)

// HistogramTable renders the histogram of a session as a table of
// per-episode success rates
func HistogramTable(h *Histogram) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Episode", "Successes", "Evaluated", "Rate"})

	for _, k := range h.Keys() {
		bin, _ := h.Bin(k)
		rate := 0.0
		if bin.Count > 0 {
			rate = bin.Successes / float64(bin.Count)
		}
		tbl.AppendRow(table.Row{k, formatFloat(bin.Successes), bin.Count,
			colorRate(rate)})
	}
	tbl.AppendFooter(table.Row{"", "", "Episodes", h.Len()})

	return tbl.Render()
}

// HistoryTable renders the mean success of every evaluated checkpoint
func HistoryTable(history History) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Checkpoint", "Success"})

	for _, r := range history {
		tbl.AppendRow(table.Row{r.Index, colorRate(r.Success)})
	}
	return tbl.Render()
}

func colorRate(rate float64) string {
	text := fmt.Sprintf("%.1f%%", rate*100)
	switch {
	case rate >= goodSuccess:
		return color.GreenString(text)
	case rate < poorSuccess:
		return color.RedString(text)
	default:
		return color.YellowString(text)
	}
}
