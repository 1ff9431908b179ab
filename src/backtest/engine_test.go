package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/cycle"
	"harmonic-go/src/models"
)

func sineCandles(n int, period, amplitude, midpoint float64) []models.Candle {
	price := func(i int) float64 {
		return midpoint + amplitude*math.Sin(2*math.Pi*float64(i)/period)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		open, close := price(i), price(i+1)
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      math.Max(open, close),
			Low:       math.Min(open, close),
			Close:     close,
		}
	}
	return candles
}

func testConfig() models.ParameterConfig {
	cfg := models.DefaultConfig("SINE_20")
	cfg.Stake = 30
	cfg.RiskFactor = 0.5
	cfg.RRRatio = 3
	cfg.Lookback = 60
	cfg.SmoothWindow = 5
	return cfg
}

func TestNewRejectsInvalidRiskParameters(t *testing.T) {
	cfg := testConfig()
	cfg.RiskFactor = 0

	_, err := New(cfg)
	require.Error(t, err)
}

func TestRunSineEndToEnd(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	bt, err := New(testConfig())
	require.NoError(t, err)

	result, err := bt.Run(context.Background(), candles, nil)
	require.NoError(t, err)

	require.Len(t, result.EquityCurve, len(candles))
	assert.InDelta(t, 30.0, result.EquityCurve[0].Equity, 1e-9)
	require.NotEmpty(t, result.Trades, "a clean sine must produce mean-reversion trades")

	final := result.EquityCurve[len(result.EquityCurve)-1]
	assert.InDelta(t, 30.0+result.Metrics.TotalPnL, final.Equity, 1e-9)
	assert.Equal(t, len(result.Trades), result.Metrics.TradeCount)

	for _, tr := range result.Trades {
		assert.True(t, tr.ExitTime.After(tr.EntryTime), "exit must follow entry")
		assert.InDelta(t, 30.0, tr.Quantity*tr.EntryPrice, 1e-6)
		assert.Contains(t, []models.ExitReason{
			models.ExitSignal, models.ExitStop, models.ExitTarget, models.ExitEndOfData,
		}, tr.ExitReason)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	htf := models.Resample(candles, 5)

	first, err := mustRun(t, candles, htf)
	require.NoError(t, err)
	second, err := mustRun(t, candles, htf)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func mustRun(t *testing.T, candles, htf []models.Candle) (models.BacktestResult, error) {
	t.Helper()
	bt, err := New(testConfig())
	require.NoError(t, err)
	return bt.Run(context.Background(), candles, htf)
}

func TestRunCausality(t *testing.T) {
	// Decisions at any bar must not change when later bars are appended:
	// every trade the truncated run closes normally must appear verbatim
	// in the full run.
	candles := sineCandles(200, 20, 5, 100)

	full, err := mustRun(t, candles, nil)
	require.NoError(t, err)
	prefix, err := mustRun(t, candles[:150], nil)
	require.NoError(t, err)

	prefixEnd := candles[149].Timestamp

	var prefixClosed, fullClosed []models.Trade
	for _, tr := range prefix.Trades {
		if tr.ExitReason != models.ExitEndOfData {
			prefixClosed = append(prefixClosed, tr)
		}
	}
	for _, tr := range full.Trades {
		if tr.ExitReason != models.ExitEndOfData && !tr.ExitTime.After(prefixEnd) {
			fullClosed = append(fullClosed, tr)
		}
	}
	assert.Equal(t, prefixClosed, fullClosed)
}

func TestSignalAtMatchesTruncatedSeries(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	bt, err := New(testConfig())
	require.NoError(t, err)

	for _, i := range []int{100, 150, 199} {
		visible := candles[:i+1]
		sigA, stateA, err := bt.SignalAt(visible, nil)
		require.NoError(t, err)

		// The same visible window, re-sliced from a copy, must reproduce
		// the signal bit for bit.
		copied := make([]models.Candle, i+1)
		copy(copied, visible)
		sigB, stateB, err := bt.SignalAt(copied, nil)
		require.NoError(t, err)

		assert.Equal(t, sigA, sigB)
		assert.Equal(t, stateA, stateB)
	}
}

func TestRunRejectsShortSeries(t *testing.T) {
	bt, err := New(testConfig())
	require.NoError(t, err)

	_, err = bt.Run(context.Background(), sineCandles(50, 20, 5, 100), nil)

	var insufficient *cycle.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestRunRejectsNonPositivePrice(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	candles[17].Low = -1

	bt, err := New(testConfig())
	require.NoError(t, err)
	_, err = bt.Run(context.Background(), candles, nil)

	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 17, integrity.Index)
}

func TestRunRejectsNonMonotonicTimestamps(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	candles[40].Timestamp = candles[39].Timestamp

	bt, err := New(testConfig())
	require.NoError(t, err)
	_, err = bt.Run(context.Background(), candles, nil)

	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bt, err := New(testConfig())
	require.NoError(t, err)
	_, err = bt.Run(ctx, sineCandles(200, 20, 5, 100), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunNeverOpensOnFinalBar(t *testing.T) {
	candles := sineCandles(200, 20, 5, 100)
	bt, err := New(testConfig())
	require.NoError(t, err)

	result, err := bt.Run(context.Background(), candles, nil)
	require.NoError(t, err)

	last := candles[len(candles)-1].Timestamp
	for _, tr := range result.Trades {
		assert.True(t, tr.EntryTime.Before(last))
	}
}
