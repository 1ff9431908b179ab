package trading

import (
	"harmonic-go/src/models"
	"harmonic-go/src/risk"
)

// State is the trade state machine's current state
type State int

const (
	StateFlat State = iota
	StateOpen
)

// String returns the state name
func (s State) String() string {
	if s == StateOpen {
		return "OPEN"
	}
	return "FLAT"
}

// StateMachine drives the per-bar open/hold/close decision for a single
// position. It owns the live Position for its whole lifetime; on close the
// position is converted into a Trade record and discarded. No pyramiding:
// while OPEN no entry is evaluated.
type StateMachine struct {
	stake      float64
	riskFactor float64
	rrRatio    float64

	position       models.Position
	entryDeviation float64
}

// NewStateMachine creates a flat state machine with the given risk inputs
func NewStateMachine(cfg models.ParameterConfig) *StateMachine {
	return &StateMachine{
		stake:      cfg.Stake,
		riskFactor: cfg.RiskFactor,
		rrRatio:    cfg.RRRatio,
	}
}

// State returns FLAT or OPEN
func (sm *StateMachine) State() State {
	if sm.position.Open {
		return StateOpen
	}
	return StateFlat
}

// Position returns a copy of the live position; meaningful only while OPEN
func (sm *StateMachine) Position() models.Position {
	return sm.position
}

// Step evaluates one bar in chronological order. While OPEN it checks the
// exit conditions (stop first, then target, then the mean-reversion signal);
// while FLAT it evaluates an entry when allowEntry is set. It returns the
// closed trade, if any, for this bar.
func (sm *StateMachine) Step(candle models.Candle, sig models.Signal, entryThreshold float64, allowEntry bool) (*models.Trade, error) {
	if sm.position.Open {
		return sm.checkExits(candle, sig), nil
	}
	if !allowEntry {
		return nil, nil
	}
	return nil, sm.checkEntry(candle, sig, entryThreshold)
}

// checkEntry opens a position when the regime permits mean-reversion trades
// and the price has pulled far enough away from the prediction. A negative
// deviation (price below prediction) opens LONG, positive opens SHORT.
func (sm *StateMachine) checkEntry(candle models.Candle, sig models.Signal, entryThreshold float64) error {
	if sig.Regime != models.RegimeRanging {
		return nil
	}
	dev := sig.Deviation
	absDev := dev
	if absDev < 0 {
		absDev = -absDev
	}
	if absDev < entryThreshold || dev == 0 {
		return nil
	}

	side := models.SideLong
	if dev > 0 {
		side = models.SideShort
	}

	sizing, err := risk.Size(sm.stake, sm.riskFactor, sm.rrRatio, candle.Close, side)
	if err != nil {
		return err
	}

	sm.position = models.Position{
		Side:        side,
		EntryPrice:  candle.Close,
		EntryTime:   candle.Timestamp,
		Quantity:    sizing.Quantity,
		StopPrice:   sizing.StopPrice,
		TargetPrice: sizing.TargetPrice,
		Open:        true,
	}
	sm.entryDeviation = dev
	return nil
}

// checkExits applies the exit rules. Stop and target use the bar's high/low
// (intrabar); when both are touched within the same bar the STOP wins, the
// conservative assumption since the intrabar path is unknown.
func (sm *StateMachine) checkExits(candle models.Candle, sig models.Signal) *models.Trade {
	pos := sm.position

	if pos.Side == models.SideLong {
		if candle.Low <= pos.StopPrice {
			return sm.close(pos.StopPrice, candle, models.ExitStop)
		}
		if candle.High >= pos.TargetPrice {
			return sm.close(pos.TargetPrice, candle, models.ExitTarget)
		}
	} else {
		if candle.High >= pos.StopPrice {
			return sm.close(pos.StopPrice, candle, models.ExitStop)
		}
		if candle.Low <= pos.TargetPrice {
			return sm.close(pos.TargetPrice, candle, models.ExitTarget)
		}
	}

	// Mean reversion complete: deviation flipped sign relative to entry.
	if sm.entryDeviation < 0 && sig.Deviation > 0 {
		return sm.close(candle.Close, candle, models.ExitSignal)
	}
	if sm.entryDeviation > 0 && sig.Deviation < 0 {
		return sm.close(candle.Close, candle, models.ExitSignal)
	}

	return nil
}

// ForceClose closes any open position at the bar's close price. The
// backtester calls this on the final bar with exit reason END_OF_DATA.
func (sm *StateMachine) ForceClose(candle models.Candle) *models.Trade {
	if !sm.position.Open {
		return nil
	}
	return sm.close(candle.Close, candle, models.ExitEndOfData)
}

// close converts the live position into an immutable trade record
func (sm *StateMachine) close(exitPrice float64, candle models.Candle, reason models.ExitReason) *models.Trade {
	pos := sm.position
	trade := &models.Trade{
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  pos.EntryTime,
		ExitTime:   candle.Timestamp,
		Quantity:   pos.Quantity,
		PnL:        risk.PnL(pos.Side, pos.EntryPrice, exitPrice, pos.Quantity),
		ExitReason: reason,
	}
	sm.position = models.Position{}
	sm.entryDeviation = 0
	return trade
}
