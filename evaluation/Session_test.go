package evaluation_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JelinR/habitat-lab/evaluation"
)

func TestSession_Record(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := evaluation.NewSession(dir)
	require.NoError(t, err)

	require.NoError(t, s.Record("ckpts/ckpt.0.pth", 0, evaluation.Result{
		SuccessCounts:   map[string]float64{"a": 1, "b": 0},
		AggregatedStats: map[string]float64{"success": 0.5, "spl": 0.25},
	}))
	require.NoError(t, s.Record("ckpts/ckpt.1.pth", 1, evaluation.Result{
		SuccessCounts:   map[string]float64{"a": 1, "b": 1},
		AggregatedStats: map[string]float64{"success": 1, "spl": 0.8},
	}))

	ckptLog, err := os.ReadFile(filepath.Join(dir, evaluation.HistoryDir,
		"0.log"))
	require.NoError(t, err)
	assert.Equal(t, "ckpt : ckpts/ckpt.0.pth : 50.0%\n"+
		"spl : 0.25\n"+
		"success : 0.5\n", string(ckptLog))

	summary, err := os.ReadFile(filepath.Join(dir, evaluation.SummaryLog))
	require.NoError(t, err)
	assert.Equal(t, "=====================================================\n"+
		"Episode success histogram at ckpt 1: \n"+
		"a : 2.0 / 2 \n"+
		"b : 1.0 / 2 \n"+
		"Episode success history: \n"+
		"ckpt : 0 : 50.0%\n"+
		"ckpt : 1 : 100.0%\n", string(summary))

	chart, err := os.ReadFile(filepath.Join(dir, evaluation.SummaryChart))
	require.NoError(t, err)
	assert.Contains(t, string(chart), "echarts")

	assert.Equal(t, evaluation.History{{Index: 0, Success: 0.5}, {Index: 1, Success: 1}}, s.History())
}

func TestSession_EmptyResult(t *testing.T) {
	t.Parallel()

	s, err := evaluation.NewSession(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Record("ckpt.3.pth", 3, evaluation.Result{}))
	assert.Equal(t, evaluation.History{{Index: 3, Success: 0}}, s.History())
	assert.Contains(t, s.Summary(), "ckpt : 3 : 0.0%")
}

func TestRenderChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, evaluation.RenderChart(&buf, evaluation.History{
		{Index: 0, Success: 0.2},
		{Index: 4, Success: 0.6},
	}))
	assert.Contains(t, buf.String(), "Episode success history")
}

func TestTables(t *testing.T) {
	t.Parallel()

	h := evaluation.NewHistogram()
	h.Add(map[string]float64{"env0/ep1": 1, "env1/ep0": 0})

	histogram := evaluation.HistogramTable(h)
	assert.Contains(t, histogram, "env0/ep1")
	assert.Contains(t, histogram, "100.0%")

	history := evaluation.HistoryTable(evaluation.History{{Index: 2, Success: 0.5}})
	assert.Contains(t, history, "50.0%")
}
