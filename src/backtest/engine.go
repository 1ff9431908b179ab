package backtest

import (
	"context"

	"github.com/rs/zerolog/log"

	"harmonic-go/src/cycle"
	"harmonic-go/src/indicators"
	"harmonic-go/src/models"
	"harmonic-go/src/regime"
	"harmonic-go/src/risk"
	"harmonic-go/src/trading"
)

// Backtester replays a candle series through the harmonic signal path and
// the trade state machine. A run is a pure, sequential computation over an
// immutable series: at every bar only data at or before that bar is visible
// to the detector, predictor and regime filter. No lookahead.
type Backtester struct {
	cfg       models.ParameterConfig
	detector  *cycle.Detector
	predictor *cycle.Predictor
	filter    *regime.Filter
	calc      *indicators.Calculator
}

// New validates the configuration eagerly and builds a backtester.
// Invalid risk parameters are rejected before any simulation work.
func New(cfg models.ParameterConfig) (*Backtester, error) {
	if err := risk.Validate(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.Normalized()
	return &Backtester{
		cfg:       cfg,
		detector:  cycle.NewDetector(cfg.SmoothWindow),
		predictor: cycle.NewPredictor(cfg.Forecast),
		filter:    regime.NewFilter(cfg),
		calc:      indicators.NewCalculator(cfg.ATRPeriod, cfg.SmoothWindow),
	}, nil
}

// Config returns the normalized run configuration
func (b *Backtester) Config() models.ParameterConfig {
	return b.cfg
}

// Run simulates the series bar by bar and returns the trade ledger, the
// equity curve and the summary metrics. The htf series provides
// higher-timeframe closes for the regime filter and may be nil.
//
// Errors from cycle detection after warm-up convert the whole run into a
// failed run: the caller (sweep, walk-forward) records them and continues.
func (b *Backtester) Run(ctx context.Context, candles, htf []models.Candle) (models.BacktestResult, error) {
	if err := checkIntegrity(candles); err != nil {
		return models.BacktestResult{}, err
	}

	required := b.cfg.RequiredCandles()
	if len(candles) < required {
		return models.BacktestResult{}, &cycle.InsufficientDataError{
			Have:   len(candles),
			Need:   required,
			Reason: "series shorter than the warm-up window",
		}
	}

	log.Debug().
		Str("symbol", b.cfg.Symbol).
		Int("candles", len(candles)).
		Float64("stake", b.cfg.Stake).
		Float64("risk_factor", b.cfg.RiskFactor).
		Float64("rr_ratio", b.cfg.RRRatio).
		Msg("backtest started")

	sm := trading.NewStateMachine(b.cfg)
	ledger := make([]models.Trade, 0, 32)
	equity := make([]models.EquityPoint, 0, len(candles))
	runningPnL := 0.0
	htfIdx := 0

	for i, candle := range candles {
		select {
		case <-ctx.Done():
			return models.BacktestResult{}, ctx.Err()
		default:
		}

		// Advance the higher-timeframe cursor without peeking forward.
		for htfIdx < len(htf) && !htf[htfIdx].Timestamp.After(candle.Timestamp) {
			htfIdx++
		}

		if i+1 >= required {
			visible := candles[:i+1]
			sig, state, err := b.SignalAt(visible, htf[:htfIdx])
			if err != nil {
				return models.BacktestResult{}, err
			}

			// The final bar only closes; it never opens, so every trade's
			// exit strictly follows its entry.
			allowEntry := !state.Degenerate() && i < len(candles)-1
			threshold := b.calc.ATR(visible) * b.cfg.ATRMultiplier

			trade, err := sm.Step(candle, sig, threshold, allowEntry)
			if err != nil {
				return models.BacktestResult{}, err
			}
			if trade != nil {
				runningPnL += trade.PnL
				ledger = append(ledger, *trade)
			}
		}

		equity = append(equity, models.EquityPoint{
			Timestamp: candle.Timestamp,
			Equity:    b.cfg.InitialBalance + runningPnL,
		})
	}

	// Force-close any position still open at the end of the series.
	if trade := sm.ForceClose(candles[len(candles)-1]); trade != nil {
		runningPnL += trade.PnL
		ledger = append(ledger, *trade)
		equity[len(equity)-1].Equity = b.cfg.InitialBalance + runningPnL
	}

	result := models.BacktestResult{
		Trades:      ledger,
		EquityCurve: equity,
		Metrics:     computeMetrics(ledger, equity, b.cfg),
	}

	log.Debug().
		Int("trades", result.Metrics.TradeCount).
		Float64("pnl", result.Metrics.TotalPnL).
		Float64("profit_factor", result.Metrics.ProfitFactor).
		Msg("backtest finished")

	return result, nil
}

// SignalAt computes the harmonic signal for the last visible bar. The
// candles slice must contain only bars at or before the evaluation point;
// the same function over a truncated series therefore reproduces the
// historical signal exactly.
func (b *Backtester) SignalAt(visible, htfVisible []models.Candle) (models.Signal, models.CycleState, error) {
	// Smooth over the trailing lookback only, as the live strategy does.
	tail := visible
	maxTail := b.cfg.Lookback + b.cfg.SmoothWindow - 1
	if len(tail) > maxTail {
		tail = tail[len(tail)-maxTail:]
	}

	state, smoothed, err := b.detector.Detect(models.Closes(tail))
	if err != nil {
		return models.Signal{}, models.CycleState{}, err
	}

	state, predicted := b.predictor.FitAndProject(smoothed, state)

	last := visible[len(visible)-1]
	sig := models.Signal{
		PredictedPrice: predicted,
		Deviation:      last.Close - predicted,
		Regime:         b.filter.Classify(visible, models.Closes(htfVisible)),
		Timestamp:      last.Timestamp,
	}
	return sig, state, nil
}

// checkIntegrity rejects series with non-monotonic timestamps or
// non-positive prices before the simulation starts
func checkIntegrity(candles []models.Candle) error {
	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return &DataIntegrityError{Index: i, Reason: "non-positive price"}
		}
		if i > 0 && !candles[i-1].Timestamp.Before(c.Timestamp) {
			return &DataIntegrityError{Index: i, Reason: "timestamps not strictly increasing"}
		}
	}
	return nil
}
