package risk

import (
	"fmt"

	"harmonic-go/src/models"
)

// InvalidRiskParametersError rejects a configuration before any simulation
// work begins: every risk input must be strictly positive.
type InvalidRiskParametersError struct {
	Field string
	Value float64
}

func (e *InvalidRiskParametersError) Error() string {
	return fmt.Sprintf("invalid risk parameters: %s must be > 0, got %v", e.Field, e.Value)
}

// Sizing is the output of the cash-based risk model for one entry
type Sizing struct {
	Quantity    float64
	StopPrice   float64
	TargetPrice float64
}

// Validate checks the risk inputs of a configuration eagerly
func Validate(cfg models.ParameterConfig) error {
	switch {
	case cfg.Stake <= 0:
		return &InvalidRiskParametersError{Field: "stake", Value: cfg.Stake}
	case cfg.RiskFactor <= 0:
		return &InvalidRiskParametersError{Field: "risk_factor", Value: cfg.RiskFactor}
	case cfg.RRRatio <= 0:
		return &InvalidRiskParametersError{Field: "rr_ratio", Value: cfg.RRRatio}
	}
	return nil
}

// Size converts a cash risk budget into stop/target prices and a position
// quantity. The price move is derived via the cash framing on purpose:
//
//	riskCash      = stake × riskFactor
//	riskPriceMove = (riskCash / stake) × entryPrice
//
// which algebraically equals riskFactor × entryPrice but keeps the
// documented two-step form. Quantity is notional: stake / entryPrice, a
// fixed dollar exposure regardless of price level.
func Size(stake, riskFactor, rrRatio, entryPrice float64, side models.Side) (Sizing, error) {
	switch {
	case stake <= 0:
		return Sizing{}, &InvalidRiskParametersError{Field: "stake", Value: stake}
	case riskFactor <= 0:
		return Sizing{}, &InvalidRiskParametersError{Field: "risk_factor", Value: riskFactor}
	case rrRatio <= 0:
		return Sizing{}, &InvalidRiskParametersError{Field: "rr_ratio", Value: rrRatio}
	case entryPrice <= 0:
		return Sizing{}, &InvalidRiskParametersError{Field: "entry_price", Value: entryPrice}
	}

	riskCash := stake * riskFactor
	riskPriceMove := (riskCash / stake) * entryPrice

	s := Sizing{Quantity: stake / entryPrice}
	if side == models.SideLong {
		s.StopPrice = entryPrice - riskPriceMove
		s.TargetPrice = entryPrice + riskPriceMove*rrRatio
	} else {
		s.StopPrice = entryPrice + riskPriceMove
		s.TargetPrice = entryPrice - riskPriceMove*rrRatio
	}
	return s, nil
}

// PnL computes the realized profit of a closed position
func PnL(side models.Side, entryPrice, exitPrice, quantity float64) float64 {
	pnl := (exitPrice - entryPrice) * quantity
	if side == models.SideShort {
		pnl = -pnl
	}
	return pnl
}
