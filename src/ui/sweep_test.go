package ui

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/backtest"
	"harmonic-go/src/models"
)

func TestSweepModelProgress(t *testing.T) {
	m := NewSweepModel("R_75", 4)

	run := backtest.SweepRun{
		Config: models.ParameterConfig{RiskFactor: 0.5, RRRatio: 3},
		Result: models.BacktestResult{Metrics: models.Metrics{ProfitFactor: 2.1, TradeCount: 9}},
	}
	next, _ := m.Update(ProgressMsg{Done: 2, Total: 4, Run: run})
	model, ok := next.(SweepModel)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "2/4")
	assert.Contains(t, view, "risk=0.50")
	assert.Contains(t, view, "trades=9")
}

func TestSweepModelQuitsOnDone(t *testing.T) {
	m := NewSweepModel("R_75", 1)
	next, cmd := m.Update(DoneMsg{})
	require.NotNil(t, cmd)

	model := next.(SweepModel)
	assert.Empty(t, model.View())
}

func TestSweepModelQuitsOnKey(t *testing.T) {
	m := NewSweepModel("R_75", 1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
}

func TestRenderSweepTable(t *testing.T) {
	report := backtest.SweepReport{
		Ranked: []backtest.SweepRun{
			{
				Config: models.ParameterConfig{RiskFactor: 0.5, RRRatio: 3},
				Result: models.BacktestResult{Metrics: models.Metrics{
					ProfitFactor: 2.5, MaxDrawdown: 0.1, WinRate: 0.6, TradeCount: 12, TotalPnL: 40,
				}},
			},
			{
				Config: models.ParameterConfig{RiskFactor: 0.25, RRRatio: 2},
				Result: models.BacktestResult{Metrics: models.Metrics{
					ProfitFactor: math.Inf(1), MaxDrawdown: 0.5, WinRate: 1, TradeCount: 1, TotalPnL: 3,
				}},
			},
		},
		Failed: []backtest.SweepRun{
			{Config: models.ParameterConfig{RiskFactor: 0.75, RRRatio: 4}, Err: assert.AnError},
		},
	}

	out := RenderSweepTable(report)

	assert.Contains(t, out, "2.50")
	assert.Contains(t, out, "inf")
	assert.Contains(t, out, "failed")
	// Header plus two ranked rows plus one failure line.
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 4)
}
