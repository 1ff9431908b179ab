package models

import (
	"time"
)

// ExitReason records why a position was closed
type ExitReason string

const (
	ExitSignal    ExitReason = "SIGNAL"      // mean reversion complete, prediction crossed
	ExitStop      ExitReason = "STOP"        // stop price touched intrabar
	ExitTarget    ExitReason = "TARGET"      // target price touched intrabar
	ExitEndOfData ExitReason = "END_OF_DATA" // forced close on the final bar
)

// Position is the single live position owned by the trade state machine.
// On close it is converted into a Trade record and discarded.
type Position struct {
	Side        Side
	EntryPrice  float64
	EntryTime   time.Time
	Quantity    float64
	StopPrice   float64
	TargetPrice float64
	Open        bool
}

// Trade is an immutable record of a closed position
type Trade struct {
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	Quantity   float64
	PnL        float64
	ExitReason ExitReason
}

// Duration returns the holding time of the trade
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint is one sample of the account equity curve
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Metrics summarizes the performance of a trade ledger
type Metrics struct {
	ProfitFactor float64 // sum(wins) / |sum(losses)|; +Inf when no losses and ≥1 win
	WinRate      float64 // wins / total trades, 0..1
	MaxDrawdown  float64 // largest peak-to-trough equity decline, fraction of peak
	Sharpe       float64 // per-trade return basis, risk-free rate from config
	TradeCount   int
	TotalPnL     float64
	AvgPnL       float64
	LargestWin   float64
	LargestLoss  float64
	AvgDuration  time.Duration
}

// BacktestResult is the full output of one backtester run
type BacktestResult struct {
	Trades      []Trade
	EquityCurve []EquityPoint
	Metrics     Metrics
}

// WindowResult is one walk-forward train/test window outcome.
// Err is set when the window's run failed (e.g. too few bars for a cycle).
type WindowResult struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Result     BacktestResult
	Err        error
}
