package backtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"harmonic-go/src/models"
)

// Success predicate for ranking sweep results.
const (
	PassProfitFactor = 1.8
	PassMaxDrawdown  = 0.20
)

// SweepRun is the outcome of one parameter combination. Failed runs keep
// their error and offending configuration so they surface in the report
// instead of being silently dropped.
type SweepRun struct {
	ID     string
	Config models.ParameterConfig
	Result models.BacktestResult
	Err    error
}

// Passed reports whether the run satisfies the success predicate
func (r SweepRun) Passed() bool {
	if r.Err != nil {
		return false
	}
	m := r.Result.Metrics
	return m.ProfitFactor > PassProfitFactor && m.MaxDrawdown < PassMaxDrawdown
}

// SweepReport holds the ranked successes and the recorded failures
type SweepReport struct {
	Ranked []SweepRun
	Failed []SweepRun
}

// AllFailed reports whether the sweep produced failures and nothing else
func (r SweepReport) AllFailed() bool {
	return len(r.Ranked) == 0 && len(r.Failed) > 0
}

// SweepOptions tunes the optimizer's execution
type SweepOptions struct {
	Workers    int
	RunTimeout time.Duration // per-run budget; a timed-out run is a failed run

	// OnProgress, when set, is called after every finished run with the
	// completed count. Calls arrive from worker goroutines.
	OnProgress func(done, total int, run SweepRun)
}

// Sweep grid-searches riskFactors × rrRatios, one independent backtester
// run per combination. Runs are side-effect-free relative to each other
// and execute on a bounded worker pool; a failing or cancelled combination
// is recorded and excluded from ranking, never aborting the sweep.
func Sweep(ctx context.Context, candles, htf []models.Candle, riskFactors, rrRatios []float64, base models.ParameterConfig, opts SweepOptions) SweepReport {
	configs := make([]models.ParameterConfig, 0, len(riskFactors)*len(rrRatios))
	for _, rf := range riskFactors {
		for _, rr := range rrRatios {
			cfg := base
			cfg.RiskFactor = rf
			cfg.RRRatio = rr
			configs = append(configs, cfg)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(configs) {
		workers = len(configs)
	}

	log.Info().
		Int("combinations", len(configs)).
		Int("workers", workers).
		Msg("parameter sweep started")

	runs := make([]SweepRun, len(configs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var done int
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				runs[idx] = runOne(ctx, candles, htf, configs[idx], opts.RunTimeout)
				if opts.OnProgress != nil {
					mu.Lock()
					done++
					opts.OnProgress(done, len(configs), runs[idx])
					mu.Unlock()
				}
			}
		}()
	}
	for idx := range configs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return rank(runs)
}

// runOne executes a single combination under its own timeout
func runOne(ctx context.Context, candles, htf []models.Candle, cfg models.ParameterConfig, timeout time.Duration) SweepRun {
	run := SweepRun{ID: uuid.NewString(), Config: cfg}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bt, err := New(cfg)
	if err != nil {
		run.Err = err
		return run
	}
	result, err := bt.Run(ctx, candles, htf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn().
				Float64("risk_factor", cfg.RiskFactor).
				Float64("rr_ratio", cfg.RRRatio).
				Msg("sweep run cancelled")
		}
		run.Err = err
		return run
	}
	run.Result = result
	return run
}

// rank orders successful runs: passers of the success predicate first,
// then by profit factor descending. Failures go to their own list.
func rank(runs []SweepRun) SweepReport {
	var report SweepReport
	for _, r := range runs {
		if r.Err != nil {
			report.Failed = append(report.Failed, r)
		} else {
			report.Ranked = append(report.Ranked, r)
		}
	}

	sort.SliceStable(report.Ranked, func(i, j int) bool {
		a, b := report.Ranked[i], report.Ranked[j]
		if a.Passed() != b.Passed() {
			return a.Passed()
		}
		return a.Result.Metrics.ProfitFactor > b.Result.Metrics.ProfitFactor
	})
	return report
}
