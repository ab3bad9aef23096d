package evaluation

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes an HTML line chart of success against checkpoint
// index to w
func RenderChart(w io.Writer, history History) error {
	labels := make([]string, len(history))
	data := make([]opts.LineData, len(history))
	for i, r := range history {
		labels[i] = strconv.Itoa(r.Index)
		data[i] = opts.LineData{Value: r.Success * 100}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Episode success history"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Checkpoint"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Success (%)"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("success", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("renderChart: %w", err)
	}
	return nil
}
