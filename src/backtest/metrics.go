package backtest

import (
	"math"
	"time"

	"harmonic-go/src/models"
)

// computeMetrics rolls the trade ledger and equity curve up into the
// summary metrics. Sharpe uses the per-trade return basis: each trade's
// PnL over the stake, against the configured risk-free rate (default 0).
func computeMetrics(trades []models.Trade, equity []models.EquityPoint, cfg models.ParameterConfig) models.Metrics {
	m := models.Metrics{TradeCount: len(trades)}

	var winsSum, lossSum float64
	var wins int
	var held time.Duration
	for _, t := range trades {
		m.TotalPnL += t.PnL
		held += t.Duration()
		if t.PnL > 0 {
			wins++
			winsSum += t.PnL
			if t.PnL > m.LargestWin {
				m.LargestWin = t.PnL
			}
		} else {
			lossSum += -t.PnL
			if t.PnL < m.LargestLoss {
				m.LargestLoss = t.PnL
			}
		}
	}

	if len(trades) > 0 {
		m.WinRate = float64(wins) / float64(len(trades))
		m.AvgPnL = m.TotalPnL / float64(len(trades))
		m.AvgDuration = held / time.Duration(len(trades))
	}

	switch {
	case len(trades) == 0:
		m.ProfitFactor = 0
	case lossSum == 0 && wins > 0:
		m.ProfitFactor = math.Inf(1)
	case lossSum == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = winsSum / lossSum
	}

	m.MaxDrawdown = maxDrawdown(equity)
	m.Sharpe = sharpe(trades, cfg.Stake, cfg.RiskFreeRate)
	return m
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// fraction of the peak
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe computes the Sharpe ratio over per-trade returns (pnl / stake)
func sharpe(trades []models.Trade, stake, riskFree float64) float64 {
	if len(trades) < 2 || stake <= 0 {
		return 0
	}
	returns := make([]float64, len(trades))
	mean := 0.0
	for i, t := range trades {
		returns[i] = t.PnL / stake
		mean += returns[i]
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return (mean - riskFree) / math.Sqrt(variance)
}
