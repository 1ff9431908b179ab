package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"harmonic-go/src/models"
)

// File is the YAML run configuration. Zero-valued strategy fields fall
// back to the standard tuning; CLI flags override file values.
type File struct {
	Symbol          string `yaml:"symbol"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	Days            int    `yaml:"days"`

	Stake             float64 `yaml:"stake"`
	RiskFactor        float64 `yaml:"risk_factor"`
	RRRatio           float64 `yaml:"rr_ratio"`
	Lookback          int     `yaml:"lookback"`
	Forecast          int     `yaml:"forecast"`
	SmoothWindow      int     `yaml:"smooth_window"`
	ATRPeriod         int     `yaml:"atr_period"`
	ATRMultiplier     float64 `yaml:"atr_multiplier"`
	ATRBaselinePeriod int     `yaml:"atr_baseline_period"`
	HTFMAPeriod       int     `yaml:"htf_ma_period"`
	HTFSlopeThreshold float64 `yaml:"htf_slope_threshold"`
	InitialBalance    float64 `yaml:"initial_balance"`

	Sweep       SweepSection       `yaml:"sweep"`
	WalkForward WalkForwardSection `yaml:"walk_forward"`
}

// SweepSection configures the parameter grid
type SweepSection struct {
	RiskFactors       []float64 `yaml:"risk_factors"`
	RRRatios          []float64 `yaml:"rr_ratios"`
	Workers           int       `yaml:"workers"`
	RunTimeoutSeconds int       `yaml:"run_timeout_seconds"`
}

// WalkForwardSection configures the rolling validation windows
type WalkForwardSection struct {
	TrainDays int `yaml:"train_days"`
	TestDays  int `yaml:"test_days"`
	Workers   int `yaml:"workers"`
}

// Default returns the configuration used when no file is given
func Default() *File {
	return &File{
		Symbol:          "R_75",
		IntervalSeconds: 60,
		Days:            30,
		Sweep: SweepSection{
			RiskFactors: []float64{0.25, 0.5, 0.75},
			RRRatios:    []float64{2, 3, 4},
		},
		WalkForward: WalkForwardSection{
			TrainDays: 20,
			TestDays:  5,
		},
	}
}

// Load reads a YAML configuration file, filling omitted sections with
// defaults
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(f.Sweep.RiskFactors) == 0 {
		f.Sweep.RiskFactors = Default().Sweep.RiskFactors
	}
	if len(f.Sweep.RRRatios) == 0 {
		f.Sweep.RRRatios = Default().Sweep.RRRatios
	}
	log.Debug().Str("path", path).Msg("loaded config")
	return f, nil
}

// Parameters converts the file into a backtester configuration.
// Zero-valued fields are filled by Normalized downstream.
func (f *File) Parameters() models.ParameterConfig {
	cfg := models.DefaultConfig(f.Symbol)
	if f.Stake > 0 {
		cfg.Stake = f.Stake
	}
	if f.RiskFactor > 0 {
		cfg.RiskFactor = f.RiskFactor
	}
	if f.RRRatio > 0 {
		cfg.RRRatio = f.RRRatio
	}
	if f.Lookback > 0 {
		cfg.Lookback = f.Lookback
	}
	if f.Forecast > 0 {
		cfg.Forecast = f.Forecast
	}
	if f.SmoothWindow > 0 {
		cfg.SmoothWindow = f.SmoothWindow
	}
	if f.ATRPeriod > 0 {
		cfg.ATRPeriod = f.ATRPeriod
	}
	if f.ATRMultiplier > 0 {
		cfg.ATRMultiplier = f.ATRMultiplier
	}
	if f.ATRBaselinePeriod > 0 {
		cfg.ATRBaselinePeriod = f.ATRBaselinePeriod
	}
	if f.HTFMAPeriod > 0 {
		cfg.HTFMAPeriod = f.HTFMAPeriod
	}
	if f.HTFSlopeThreshold > 0 {
		cfg.HTFSlopeThreshold = f.HTFSlopeThreshold
	}
	if f.InitialBalance > 0 {
		cfg.InitialBalance = f.InitialBalance
	}
	return cfg
}

// LoadEnv loads .env if present. Missing files are not an error; real
// environment variables always win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg(".env load failed")
		}
	}
}
