package backtest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"harmonic-go/src/cycle"
	"harmonic-go/src/models"
)

// WalkForwardSummary aggregates out-of-sample metrics across windows to
// support an overfitting judgment: a large profit-factor variance or
// sign-inconsistent windows indicate a non-robust parameter choice.
type WalkForwardSummary struct {
	Windows              int
	FailedWindows        int
	TotalTrades          int
	TotalPnL             float64
	MeanProfitFactor     float64
	ProfitFactorVariance float64
	MeanDrawdown         float64
	MaxDrawdown          float64
	ProfitableWindows    int // windows with profit factor > 1
}

// RunWalkForward partitions the series into rolling train/test windows and
// backtests each test segment out of sample.
//
// The window is trainDays+testDays long and rolls forward in testDays
// steps, so test segments never overlap and every test start is strictly
// after its train end. The train segment is used only to confirm the
// strategy applies (a dominant cycle must be detectable there); the
// backtester itself runs on the test segment alone. Windows are
// independent and run on a bounded worker pool.
func RunWalkForward(ctx context.Context, candles, htf []models.Candle, trainDays, testDays int, cfg models.ParameterConfig, workers int) ([]models.WindowResult, WalkForwardSummary, error) {
	if trainDays <= 0 || testDays <= 0 {
		return nil, WalkForwardSummary{}, fmt.Errorf("walk-forward windows must be positive: train=%d test=%d", trainDays, testDays)
	}
	if len(candles) == 0 {
		return nil, WalkForwardSummary{}, &cycle.InsufficientDataError{Reason: "empty series"}
	}

	splits := makeSplits(candles, trainDays, testDays)
	if len(splits) == 0 {
		return nil, WalkForwardSummary{}, &cycle.InsufficientDataError{
			Have:   len(candles),
			Reason: "not enough history to form a train+test window",
		}
	}

	if workers <= 0 {
		workers = 4
	}
	if workers > len(splits) {
		workers = len(splits)
	}

	log.Info().
		Int("windows", len(splits)).
		Int("train_days", trainDays).
		Int("test_days", testDays).
		Int("workers", workers).
		Msg("walk-forward started")

	results := make([]models.WindowResult, len(splits))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = runWindow(ctx, splits[idx], htf, cfg)
			}
		}()
	}
	for idx := range splits {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results, summarize(results), nil
}

type split struct {
	train []models.Candle
	test  []models.Candle
}

// makeSplits slices the series into rolling train/test segments by
// timestamp, stepping forward one test window at a time
func makeSplits(candles []models.Candle, trainDays, testDays int) []split {
	trainDur := time.Duration(trainDays) * 24 * time.Hour
	testDur := time.Duration(testDays) * 24 * time.Hour

	start := candles[0].Timestamp
	end := candles[len(candles)-1].Timestamp

	var splits []split
	for cursor := start; !cursor.Add(trainDur + testDur).After(end.Add(time.Nanosecond)); cursor = cursor.Add(testDur) {
		trainEnd := cursor.Add(trainDur)
		testEnd := trainEnd.Add(testDur)

		train := sliceByTime(candles, cursor, trainEnd)
		test := sliceByTime(candles, trainEnd, testEnd)
		// Windows are half-open so consecutive test segments never share a
		// bar. The last window has no successor claiming its boundary, so
		// its upper bound is inclusive and the final bar stays in sample.
		if !testEnd.Before(end) {
			test = sliceByTime(candles, trainEnd, testEnd.Add(time.Nanosecond))
		}
		if len(train) == 0 || len(test) == 0 {
			continue
		}
		splits = append(splits, split{train: train, test: test})
	}
	return splits
}

// sliceByTime returns candles with from <= Timestamp < to
func sliceByTime(candles []models.Candle, from, to time.Time) []models.Candle {
	lo := len(candles)
	for i, c := range candles {
		if !c.Timestamp.Before(from) {
			lo = i
			break
		}
	}
	hi := lo
	for hi < len(candles) && candles[hi].Timestamp.Before(to) {
		hi++
	}
	return candles[lo:hi]
}

// runWindow confirms applicability on the train segment, then backtests
// the test segment. Failures become part of the window record; they never
// abort the validation.
func runWindow(ctx context.Context, s split, htf []models.Candle, cfg models.ParameterConfig) models.WindowResult {
	wr := models.WindowResult{
		TrainStart: s.train[0].Timestamp,
		TrainEnd:   s.train[len(s.train)-1].Timestamp,
		TestStart:  s.test[0].Timestamp,
		TestEnd:    s.test[len(s.test)-1].Timestamp,
	}

	detector := cycle.NewDetector(cfg.Normalized().SmoothWindow)
	if _, _, err := detector.Detect(models.Closes(s.train)); err != nil {
		wr.Err = fmt.Errorf("train segment rejected: %w", err)
		return wr
	}

	bt, err := New(cfg)
	if err != nil {
		wr.Err = err
		return wr
	}
	result, err := bt.Run(ctx, s.test, htf)
	if err != nil {
		wr.Err = err
		return wr
	}
	wr.Result = result
	return wr
}

// summarize aggregates profit factor and drawdown across windows.
// Infinite profit factors count as profitable but are excluded from the
// mean/variance so one loss-free window cannot swamp the aggregate.
func summarize(results []models.WindowResult) WalkForwardSummary {
	s := WalkForwardSummary{Windows: len(results)}

	var pfs []float64
	for _, wr := range results {
		if wr.Err != nil {
			s.FailedWindows++
			continue
		}
		m := wr.Result.Metrics
		s.TotalTrades += m.TradeCount
		s.TotalPnL += m.TotalPnL
		s.MeanDrawdown += m.MaxDrawdown
		if m.MaxDrawdown > s.MaxDrawdown {
			s.MaxDrawdown = m.MaxDrawdown
		}
		if m.ProfitFactor > 1 {
			s.ProfitableWindows++
		}
		if !math.IsInf(m.ProfitFactor, 1) {
			pfs = append(pfs, m.ProfitFactor)
		}
	}

	ok := s.Windows - s.FailedWindows
	if ok > 0 {
		s.MeanDrawdown /= float64(ok)
	}
	if len(pfs) > 0 {
		mean := 0.0
		for _, pf := range pfs {
			mean += pf
		}
		mean /= float64(len(pfs))
		variance := 0.0
		for _, pf := range pfs {
			d := pf - mean
			variance += d * d
		}
		s.MeanProfitFactor = mean
		s.ProfitFactorVariance = variance / float64(len(pfs))
	}
	return s
}
