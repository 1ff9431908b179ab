package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/models"
)

func TestSizeLong(t *testing.T) {
	s, err := Size(30, 0.5, 3, 100, models.SideLong)
	require.NoError(t, err)

	// riskCash = 15, riskPriceMove = (15/30)×100 = 50
	assert.InDelta(t, 50.0, s.StopPrice, 1e-9)
	assert.InDelta(t, 250.0, s.TargetPrice, 1e-9)
	assert.InDelta(t, 0.3, s.Quantity, 1e-9)

	// Reward distance is rrRatio times the risk distance.
	assert.InDelta(t, 3*(100-s.StopPrice), s.TargetPrice-100, 1e-9)
	// Notional sizing: quantity × entry equals the stake.
	assert.InDelta(t, 30.0, s.Quantity*100, 1e-9)
}

func TestSizeShortMirrors(t *testing.T) {
	entry := 200.0
	s, err := Size(30, 0.25, 2, entry, models.SideShort)
	require.NoError(t, err)

	// riskPriceMove = 0.25 × 200 = 50, mirrored around the entry.
	assert.InDelta(t, 250.0, s.StopPrice, 1e-9)
	assert.InDelta(t, 100.0, s.TargetPrice, 1e-9)
	assert.InDelta(t, 2*(s.StopPrice-entry), entry-s.TargetPrice, 1e-9)
	assert.InDelta(t, 30.0, s.Quantity*entry, 1e-9)
}

func TestSizeQuantityScalesWithPrice(t *testing.T) {
	low, err := Size(30, 0.5, 3, 10, models.SideLong)
	require.NoError(t, err)
	high, err := Size(30, 0.5, 3, 1000, models.SideLong)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, low.Quantity, 1e-9)
	assert.InDelta(t, 0.03, high.Quantity, 1e-9)
}

func TestSizeRejectsInvalidInputs(t *testing.T) {
	tests := []struct {
		name                                string
		stake, riskFactor, rrRatio, entry   float64
		field                               string
	}{
		{"zero stake", 0, 0.5, 3, 100, "stake"},
		{"negative risk factor", 30, -0.5, 3, 100, "risk_factor"},
		{"zero rr ratio", 30, 0.5, 0, 100, "rr_ratio"},
		{"zero entry", 30, 0.5, 3, 0, "entry_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Size(tt.stake, tt.riskFactor, tt.rrRatio, tt.entry, models.SideLong)

			var invalid *InvalidRiskParametersError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := models.DefaultConfig("R_75")
	require.NoError(t, Validate(cfg))

	cfg.RRRatio = -1
	var invalid *InvalidRiskParametersError
	require.ErrorAs(t, Validate(cfg), &invalid)
	assert.Equal(t, "rr_ratio", invalid.Field)
}

func TestPnL(t *testing.T) {
	assert.InDelta(t, 10.0, PnL(models.SideLong, 100, 110, 1), 1e-9)
	assert.InDelta(t, -10.0, PnL(models.SideLong, 100, 90, 1), 1e-9)
	assert.InDelta(t, 10.0, PnL(models.SideShort, 100, 90, 1), 1e-9)
	assert.InDelta(t, -10.0, PnL(models.SideShort, 100, 110, 1), 1e-9)
	assert.InDelta(t, 5.0, PnL(models.SideLong, 100, 110, 0.5), 1e-9)
}
