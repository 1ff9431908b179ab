package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"harmonic-go/src/models"
)

// ExportTradesCSV writes the trade ledger to path, one row per trade,
// followed by a summary row carrying the run metrics. Parent directories
// are created as needed.
func ExportTradesCSV(path string, result models.BacktestResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"side", "entry_time", "entry_price", "exit_time", "exit_price",
		"quantity", "pnl", "exit_reason",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range result.Trades {
		row := []string{
			t.Side.String(),
			t.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			t.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(t.ExitPrice),
			formatFloat(t.Quantity),
			formatFloat(t.PnL),
			string(t.ExitReason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	m := result.Metrics
	summary := []string{
		"SUMMARY",
		"trades=" + strconv.Itoa(m.TradeCount),
		"pnl=" + formatFloat(m.TotalPnL),
		"profit_factor=" + formatFloat(m.ProfitFactor),
		"win_rate=" + formatFloat(m.WinRate),
		"max_drawdown=" + formatFloat(m.MaxDrawdown),
		"sharpe=" + formatFloat(m.Sharpe),
		"",
	}
	if err := w.Write(summary); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ExportJSON writes the full run result (ledger, equity curve, metrics)
// as indented JSON
func ExportJSON(path string, result models.BacktestResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportSweepCSV writes the ranked sweep report, passers first
func ExportSweepCSV(path string, report SweepReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"run_id", "risk_factor", "rr_ratio", "passed",
		"profit_factor", "win_rate", "max_drawdown", "trades", "pnl", "error",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range report.Ranked {
		m := r.Result.Metrics
		row := []string{
			r.ID,
			formatFloat(r.Config.RiskFactor),
			formatFloat(r.Config.RRRatio),
			strconv.FormatBool(r.Passed()),
			formatFloat(m.ProfitFactor),
			formatFloat(m.WinRate),
			formatFloat(m.MaxDrawdown),
			strconv.Itoa(m.TradeCount),
			formatFloat(m.TotalPnL),
			"",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	for _, r := range report.Failed {
		row := []string{
			r.ID,
			formatFloat(r.Config.RiskFactor),
			formatFloat(r.Config.RRRatio),
			"false", "", "", "", "", "",
			r.Err.Error(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// windowRecord is the serializable form of one walk-forward window; the
// error, when present, replaces the metrics.
type windowRecord struct {
	TrainStart time.Time       `json:"train_start"`
	TrainEnd   time.Time       `json:"train_end"`
	TestStart  time.Time       `json:"test_start"`
	TestEnd    time.Time       `json:"test_end"`
	Metrics    *models.Metrics `json:"metrics,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type walkForwardReport struct {
	Windows []windowRecord     `json:"windows"`
	Summary WalkForwardSummary `json:"summary"`
}

// ExportWalkForwardJSON writes the per-window results and their aggregate
// summary as indented JSON
func ExportWalkForwardJSON(path string, windows []models.WindowResult, summary WalkForwardSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	report := walkForwardReport{Summary: summary}
	for _, wr := range windows {
		rec := windowRecord{
			TrainStart: wr.TrainStart.UTC(),
			TrainEnd:   wr.TrainEnd.UTC(),
			TestStart:  wr.TestStart.UTC(),
			TestEnd:    wr.TestEnd.UTC(),
		}
		if wr.Err != nil {
			rec.Error = wr.Err.Error()
		} else {
			m := wr.Result.Metrics
			rec.Metrics = &m
		}
		report.Windows = append(report.Windows, rec)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportWalkForwardCSV writes one row per window, followed by a summary
// row with the cross-window aggregates
func ExportWalkForwardCSV(path string, windows []models.WindowResult, summary WalkForwardSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"window", "train_start", "train_end", "test_start", "test_end",
		"trades", "pnl", "profit_factor", "win_rate", "max_drawdown", "error",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, wr := range windows {
		row := []string{
			strconv.Itoa(i + 1),
			wr.TrainStart.UTC().Format(time.RFC3339),
			wr.TrainEnd.UTC().Format(time.RFC3339),
			wr.TestStart.UTC().Format(time.RFC3339),
			wr.TestEnd.UTC().Format(time.RFC3339),
		}
		if wr.Err != nil {
			row = append(row, "", "", "", "", "", wr.Err.Error())
		} else {
			m := wr.Result.Metrics
			row = append(row,
				strconv.Itoa(m.TradeCount),
				formatFloat(m.TotalPnL),
				formatFloat(m.ProfitFactor),
				formatFloat(m.WinRate),
				formatFloat(m.MaxDrawdown),
				"",
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	row := []string{
		"SUMMARY",
		"windows=" + strconv.Itoa(summary.Windows),
		"failed=" + strconv.Itoa(summary.FailedWindows),
		"trades=" + strconv.Itoa(summary.TotalTrades),
		"pnl=" + formatFloat(summary.TotalPnL),
		"mean_pf=" + formatFloat(summary.MeanProfitFactor),
		"pf_variance=" + formatFloat(summary.ProfitFactorVariance),
		"max_drawdown=" + formatFloat(summary.MaxDrawdown),
		"profitable=" + strconv.Itoa(summary.ProfitableWindows),
		"", "",
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
