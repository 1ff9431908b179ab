package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"harmonic-go/src/backtest"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// ProgressMsg reports one finished sweep run
type ProgressMsg struct {
	Done  int
	Total int
	Run   backtest.SweepRun
}

// DoneMsg ends the progress UI
type DoneMsg struct{}

// SweepModel is the live progress view for a running parameter sweep
type SweepModel struct {
	symbol   string
	total    int
	done     int
	lastLine string
	quitting bool
}

// NewSweepModel builds the progress model for a sweep of total runs
func NewSweepModel(symbol string, total int) SweepModel {
	return SweepModel{symbol: symbol, total: total}
}

func (m SweepModel) Init() tea.Cmd {
	return nil
}

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.lastLine = runLine(msg.Run)
		return m, nil
	case DoneMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m SweepModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Parameter sweep: %s", m.symbol)))
	b.WriteString("\n\n")

	const width = 30
	filled := 0
	if m.total > 0 {
		filled = m.done * width / m.total
	}
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
	b.WriteString(fmt.Sprintf("%s %d/%d\n", bar, m.done, m.total))

	if m.lastLine != "" {
		b.WriteString(dimStyle.Render(m.lastLine))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("press q to abort"))
	b.WriteString("\n")
	return b.String()
}

func runLine(r backtest.SweepRun) string {
	if r.Err != nil {
		return fmt.Sprintf("risk=%.2f rr=%.1f failed: %v", r.Config.RiskFactor, r.Config.RRRatio, r.Err)
	}
	m := r.Result.Metrics
	return fmt.Sprintf("risk=%.2f rr=%.1f pf=%s trades=%d", r.Config.RiskFactor, r.Config.RRRatio, formatPF(m.ProfitFactor), m.TradeCount)
}

// RenderSweepTable renders the final ranking as a styled table, passers
// first, followed by the recorded failures
func RenderSweepTable(report backtest.SweepReport) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-6s %-5s %-8s %-7s %-7s %-7s %-10s %-5s",
		"#", "risk", "rr", "pf", "win%", "maxdd%", "trades", "pnl", "pass")))
	b.WriteString("\n")

	for i, r := range report.Ranked {
		m := r.Result.Metrics
		mark := failStyle.Render("✗")
		if r.Passed() {
			mark = passStyle.Render("✓")
		}
		b.WriteString(fmt.Sprintf("%-4d %-6.2f %-5.1f %-8s %-7.1f %-7.1f %-7d %-10.2f %s\n",
			i+1, r.Config.RiskFactor, r.Config.RRRatio,
			formatPF(m.ProfitFactor), m.WinRate*100, m.MaxDrawdown*100,
			m.TradeCount, m.TotalPnL, mark))
	}

	for _, r := range report.Failed {
		b.WriteString(failStyle.Render(fmt.Sprintf("     %-6.2f %-5.1f failed: %v",
			r.Config.RiskFactor, r.Config.RRRatio, r.Err)))
		b.WriteString("\n")
	}
	return b.String()
}

func formatPF(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
