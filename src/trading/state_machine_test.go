package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/models"
)

func testConfig() models.ParameterConfig {
	cfg := models.DefaultConfig("R_75")
	cfg.Stake = 30
	cfg.RiskFactor = 0.1
	cfg.RRRatio = 2
	return cfg
}

func bar(ts int, open, high, low, close float64) models.Candle {
	return models.Candle{
		Timestamp: time.Date(2024, 1, 1, 0, ts, 0, 0, time.UTC),
		Open:      open, High: high, Low: low, Close: close,
	}
}

func rangingSignal(deviation float64) models.Signal {
	return models.Signal{Deviation: deviation, Regime: models.RegimeRanging}
}

func TestEntryLongOnNegativeDeviation(t *testing.T) {
	sm := NewStateMachine(testConfig())

	trade, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)
	require.Nil(t, trade)
	require.Equal(t, StateOpen, sm.State())

	pos := sm.Position()
	assert.Equal(t, models.SideLong, pos.Side)
	assert.InDelta(t, 100.0, pos.EntryPrice, 1e-9)
	// riskPriceMove = 0.1 × 100 = 10
	assert.InDelta(t, 90.0, pos.StopPrice, 1e-9)
	assert.InDelta(t, 120.0, pos.TargetPrice, 1e-9)
}

func TestEntryShortOnPositiveDeviation(t *testing.T) {
	sm := NewStateMachine(testConfig())

	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(5), 1.0, true)
	require.NoError(t, err)
	require.Equal(t, StateOpen, sm.State())
	assert.Equal(t, models.SideShort, sm.Position().Side)
}

func TestNoEntryWhileTrending(t *testing.T) {
	sm := NewStateMachine(testConfig())

	sig := models.Signal{Deviation: -5, Regime: models.RegimeTrending}
	trade, err := sm.Step(bar(0, 100, 101, 99, 100), sig, 1.0, true)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, StateFlat, sm.State())
}

func TestNoEntryBelowThreshold(t *testing.T) {
	sm := NewStateMachine(testConfig())

	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-0.5), 1.0, true)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, sm.State())
}

func TestNoEntryWhenDisallowed(t *testing.T) {
	sm := NewStateMachine(testConfig())

	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, false)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, sm.State())
}

func TestNoPyramiding(t *testing.T) {
	sm := NewStateMachine(testConfig())

	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)
	first := sm.Position()

	// A second qualifying bar must not touch the open position.
	trade, err := sm.Step(bar(1, 100, 101, 95, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)
	require.Nil(t, trade)
	assert.Equal(t, first, sm.Position())
}

func TestStopExitLong(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	trade, err := sm.Step(bar(1, 95, 96, 89, 91), rangingSignal(-4), 1.0, true)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitStop, trade.ExitReason)
	assert.InDelta(t, 90.0, trade.ExitPrice, 1e-9)
	assert.Less(t, trade.PnL, 0.0)
	assert.True(t, trade.ExitTime.After(trade.EntryTime))
	assert.Equal(t, StateFlat, sm.State())
}

func TestTargetExitLong(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	trade, err := sm.Step(bar(1, 110, 121, 109, 119), rangingSignal(-4), 1.0, true)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitTarget, trade.ExitReason)
	assert.InDelta(t, 120.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.PnL, 0.0)
}

func TestStopWinsWhenBothTouched(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	// One wide bar spans both the stop and the target.
	trade, err := sm.Step(bar(1, 100, 125, 85, 100), rangingSignal(-4), 1.0, true)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitStop, trade.ExitReason)
	assert.InDelta(t, 90.0, trade.ExitPrice, 1e-9)
}

func TestStopExitShort(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(5), 1.0, true)
	require.NoError(t, err)

	trade, err := sm.Step(bar(1, 105, 111, 104, 109), rangingSignal(4), 1.0, true)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitStop, trade.ExitReason)
	assert.InDelta(t, 110.0, trade.ExitPrice, 1e-9)
	assert.Less(t, trade.PnL, 0.0)
}

func TestSignalExitOnDeviationFlip(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	// Price reverts above the prediction without touching stop or target.
	trade, err := sm.Step(bar(1, 100, 103, 99, 102), rangingSignal(2), 1.0, true)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitSignal, trade.ExitReason)
	assert.InDelta(t, 102.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.PnL, 0.0)
}

func TestNoSignalExitWhileDeviationHolds(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	trade, err := sm.Step(bar(1, 100, 101, 99, 99), rangingSignal(-3), 1.0, true)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, StateOpen, sm.State())
}

func TestForceClose(t *testing.T) {
	sm := NewStateMachine(testConfig())
	_, err := sm.Step(bar(0, 100, 101, 99, 100), rangingSignal(-5), 1.0, true)
	require.NoError(t, err)

	trade := sm.ForceClose(bar(1, 101, 102, 100, 101))
	require.NotNil(t, trade)
	assert.Equal(t, models.ExitEndOfData, trade.ExitReason)
	assert.InDelta(t, 101.0, trade.ExitPrice, 1e-9)
	assert.Equal(t, StateFlat, sm.State())

	assert.Nil(t, sm.ForceClose(bar(2, 101, 102, 100, 101)))
}
