package models

// ParameterConfig identifies one backtester run. It is an immutable value
// object: two runs with equal configs over the same series are identical.
type ParameterConfig struct {
	Symbol string

	// Risk model
	Stake      float64 // notional per trade
	RiskFactor float64 // fraction of stake risked per trade
	RRRatio    float64 // reward:risk multiple for the target price

	// Signal path
	Lookback      int // smoothed bars kept for cycle detection
	Forecast      int // projection horizon in bars
	SmoothWindow  int // weighted moving average window
	ATRPeriod     int
	ATRMultiplier float64 // entry threshold = ATR × multiplier

	// Regime filter
	ATRBaselinePeriod int     // trailing ATR average for the squeeze check
	HTFMAPeriod       int     // higher-timeframe moving average period
	HTFSlopeThreshold float64 // relative HTF slope beyond which market is trending

	// Accounting
	InitialBalance float64 // equity curve start; defaults to Stake
	RiskFreeRate   float64 // per-trade Sharpe baseline, default 0
}

// Defaults from the strategy's tuning for synthetic indices.
const (
	DefaultStake             = 30.0
	DefaultRiskFactor        = 0.5
	DefaultRRRatio           = 3.0
	DefaultLookback          = 150
	DefaultForecast          = 20
	DefaultSmoothWindow      = 11
	DefaultATRPeriod         = 14
	DefaultATRMultiplier     = 0.5
	DefaultATRBaseline       = 50
	DefaultHTFMAPeriod       = 20
	DefaultHTFSlopeThreshold = 0.002
)

// DefaultConfig returns a ParameterConfig with the standard tuning
func DefaultConfig(symbol string) ParameterConfig {
	return ParameterConfig{
		Symbol:            symbol,
		Stake:             DefaultStake,
		RiskFactor:        DefaultRiskFactor,
		RRRatio:           DefaultRRRatio,
		Lookback:          DefaultLookback,
		Forecast:          DefaultForecast,
		SmoothWindow:      DefaultSmoothWindow,
		ATRPeriod:         DefaultATRPeriod,
		ATRMultiplier:     DefaultATRMultiplier,
		ATRBaselinePeriod: DefaultATRBaseline,
		HTFMAPeriod:       DefaultHTFMAPeriod,
		HTFSlopeThreshold: DefaultHTFSlopeThreshold,
	}
}

// Normalized fills zero-valued fields with defaults and returns the result.
// The receiver is not modified.
func (c ParameterConfig) Normalized() ParameterConfig {
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.Forecast <= 0 {
		c.Forecast = DefaultForecast
	}
	if c.SmoothWindow <= 0 {
		c.SmoothWindow = DefaultSmoothWindow
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = DefaultATRPeriod
	}
	if c.ATRMultiplier <= 0 {
		c.ATRMultiplier = DefaultATRMultiplier
	}
	if c.ATRBaselinePeriod <= 0 {
		c.ATRBaselinePeriod = DefaultATRBaseline
	}
	if c.HTFMAPeriod <= 0 {
		c.HTFMAPeriod = DefaultHTFMAPeriod
	}
	if c.HTFSlopeThreshold <= 0 {
		c.HTFSlopeThreshold = DefaultHTFSlopeThreshold
	}
	if c.InitialBalance <= 0 {
		c.InitialBalance = c.Stake
	}
	return c
}

// RequiredCandles is the minimum series length before signals are produced
func (c ParameterConfig) RequiredCandles() int {
	n := c.Lookback
	if c.ATRPeriod > n {
		n = c.ATRPeriod
	}
	return n + 20
}
