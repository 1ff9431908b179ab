package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"harmonic-go/src/backtest"
	"harmonic-go/src/config"
	"harmonic-go/src/deriv"
	"harmonic-go/src/models"
	"harmonic-go/src/notify"
	"harmonic-go/src/ui"
)

// htfFactor is the higher-timeframe aggregation used by the regime filter
const htfFactor = 5

var (
	flagSymbol     string
	flagInterval   int
	flagDays       int
	flagStake      float64
	flagRiskFactor float64
	flagRRRatio    float64
	flagConfig     string
	flagOutput     string
	flagCSVOutput  string
	flagDataDir    string
	flagOffline    bool
	flagRefresh    bool
	flagVerbose    bool

	flagTrainDays int
	flagTestDays  int
	flagWorkers   int
	flagNoUI      bool
)

func main() {
	config.LoadEnv()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	root := &cobra.Command{
		Use:   "harmonic",
		Short: "Harmonic cycle backtesting engine for Deriv synthetic indices",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagSymbol, "symbol", "", "instrument symbol (e.g. R_75)")
	pf.IntVar(&flagInterval, "interval", 0, "candle interval in seconds")
	pf.IntVar(&flagDays, "days", 0, "days of history")
	pf.Float64Var(&flagStake, "stake", 0, "stake per trade")
	pf.Float64Var(&flagRiskFactor, "risk-factor", 0, "fraction of stake risked per trade")
	pf.Float64Var(&flagRRRatio, "rr-ratio", 0, "reward:risk multiple")
	pf.StringVar(&flagConfig, "config", "", "YAML configuration file")
	pf.StringVar(&flagOutput, "output", "", "JSON result path")
	pf.StringVar(&flagCSVOutput, "csv-output", "", "CSV result path")
	pf.StringVar(&flagDataDir, "data-dir", "data", "candle cache directory")
	pf.BoolVar(&flagOffline, "offline", false, "use cached data only")
	pf.BoolVar(&flagRefresh, "refresh", false, "bypass the cache and re-download")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(backtestCmd(), sweepCmd(), walkForwardCmd(), downloadCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings merges the optional YAML file with flag overrides
func loadSettings() (*config.File, models.ParameterConfig, error) {
	cf := config.Default()
	if flagConfig != "" {
		var err error
		cf, err = config.Load(flagConfig)
		if err != nil {
			return nil, models.ParameterConfig{}, err
		}
	}
	if flagSymbol != "" {
		cf.Symbol = flagSymbol
	}
	if flagInterval > 0 {
		cf.IntervalSeconds = flagInterval
	}
	if flagDays > 0 {
		cf.Days = flagDays
	}
	if flagStake > 0 {
		cf.Stake = flagStake
	}
	if flagRiskFactor > 0 {
		cf.RiskFactor = flagRiskFactor
	}
	if flagRRRatio > 0 {
		cf.RRRatio = flagRRRatio
	}
	return cf, cf.Parameters(), nil
}

// loadSeries fetches the candle series plus its higher-timeframe aggregate
func loadSeries(ctx context.Context, cf *config.File) ([]models.Candle, []models.Candle, error) {
	var client *deriv.Client
	opts := []deriv.DownloaderOption{deriv.WithDataDir(flagDataDir)}
	if flagOffline {
		opts = append(opts, deriv.WithOffline())
	} else {
		client = deriv.NewClientFromEnv()
		if err := client.Connect(ctx); err != nil {
			if !flagRefresh {
				log.Warn().Err(err).Msg("connection failed, trying cache only")
				opts = append(opts, deriv.WithOffline())
				client = nil
			} else {
				return nil, nil, err
			}
		} else {
			defer client.Close()
		}
	}
	if flagRefresh {
		opts = append(opts, deriv.WithForceRefresh())
	}

	dl := deriv.NewDownloader(client, opts...)
	candles, err := dl.GetCandles(ctx, cf.Symbol, cf.IntervalSeconds, cf.Days)
	if err != nil {
		return nil, nil, err
	}
	return candles, models.Resample(candles, htfFactor), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// notifyFailure reports a run-stopping error to Telegram when credentials
// are configured
func notifyFailure(title string, err error) {
	tn := notify.NewTelegramNotifierFromEnv()
	if nerr := tn.SendErrorNotification(title, err.Error()); nerr != nil {
		log.Warn().Err(nerr).Msg("telegram notification failed")
	}
}

func backtestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Run a single backtest over historical candles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cf, params, err := loadSettings()
			if err != nil {
				return err
			}
			candles, htf, err := loadSeries(ctx, cf)
			if err != nil {
				notifyFailure("Data retrieval failed", err)
				return err
			}

			bt, err := backtest.New(params)
			if err != nil {
				return err
			}
			result, err := bt.Run(ctx, candles, htf)
			if err != nil {
				return err
			}

			printMetrics(cf.Symbol, result.Metrics)
			if flagOutput != "" {
				if err := backtest.ExportJSON(flagOutput, result); err != nil {
					return err
				}
				log.Info().Str("path", flagOutput).Msg("wrote JSON result")
			}
			if flagCSVOutput != "" {
				if err := backtest.ExportTradesCSV(flagCSVOutput, result); err != nil {
					return err
				}
				log.Info().Str("path", flagCSVOutput).Msg("wrote CSV result")
			}

			tn := notify.NewTelegramNotifierFromEnv()
			if err := tn.SendBacktestSummary(cf.Symbol, result.Metrics); err != nil {
				log.Warn().Err(err).Msg("telegram notification failed")
			}
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Grid-search risk factor and reward:risk combinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cf, params, err := loadSettings()
			if err != nil {
				return err
			}
			candles, htf, err := loadSeries(ctx, cf)
			if err != nil {
				notifyFailure("Data retrieval failed", err)
				return err
			}

			opts := backtest.SweepOptions{Workers: flagWorkers}
			if cf.Sweep.Workers > 0 && flagWorkers <= 0 {
				opts.Workers = cf.Sweep.Workers
			}
			if cf.Sweep.RunTimeoutSeconds > 0 {
				opts.RunTimeout = time.Duration(cf.Sweep.RunTimeoutSeconds) * time.Second
			}

			total := len(cf.Sweep.RiskFactors) * len(cf.Sweep.RRRatios)
			useUI := !flagNoUI && isatty.IsTerminal(os.Stdout.Fd())

			var report backtest.SweepReport
			if useUI {
				sweepCtx, stopSweep := context.WithCancel(ctx)
				defer stopSweep()

				prog := tea.NewProgram(ui.NewSweepModel(cf.Symbol, total))
				opts.OnProgress = func(done, total int, run backtest.SweepRun) {
					prog.Send(ui.ProgressMsg{Done: done, Total: total, Run: run})
				}
				done := make(chan backtest.SweepReport, 1)
				go func() {
					done <- backtest.Sweep(sweepCtx, candles, htf, cf.Sweep.RiskFactors, cf.Sweep.RRRatios, params, opts)
					prog.Send(ui.DoneMsg{})
				}()

				_, uiErr := prog.Run()
				// Quitting the UI early cancels the in-flight runs; the
				// report then drains with the cancelled runs recorded.
				stopSweep()
				report = <-done
				if uiErr != nil {
					return uiErr
				}
			} else {
				opts.OnProgress = func(done, total int, run backtest.SweepRun) {
					log.Info().Int("done", done).Int("total", total).Msg("sweep progress")
				}
				report = backtest.Sweep(ctx, candles, htf, cf.Sweep.RiskFactors, cf.Sweep.RRRatios, params, opts)
			}

			fmt.Println(ui.RenderSweepTable(report))

			if flagCSVOutput != "" {
				if err := backtest.ExportSweepCSV(flagCSVOutput, report); err != nil {
					return err
				}
				log.Info().Str("path", flagCSVOutput).Msg("wrote sweep CSV")
			}

			if report.AllFailed() {
				notifyFailure("Parameter sweep failed", report.Failed[0].Err)
			} else if len(report.Ranked) > 0 {
				best := report.Ranked[0]
				tn := notify.NewTelegramNotifierFromEnv()
				if err := tn.SendSweepSummary(cf.Symbol, len(report.Ranked), len(report.Failed),
					best.Config.RiskFactor, best.Config.RRRatio, best.Result.Metrics.ProfitFactor); err != nil {
					log.Warn().Err(err).Msg("telegram notification failed")
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size")
	cmd.Flags().BoolVar(&flagNoUI, "no-ui", false, "disable the progress UI")
	return cmd
}

func walkForwardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Validate parameters over rolling out-of-sample windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cf, params, err := loadSettings()
			if err != nil {
				return err
			}
			if flagTrainDays > 0 {
				cf.WalkForward.TrainDays = flagTrainDays
			}
			if flagTestDays > 0 {
				cf.WalkForward.TestDays = flagTestDays
			}
			candles, htf, err := loadSeries(ctx, cf)
			if err != nil {
				notifyFailure("Data retrieval failed", err)
				return err
			}

			workers := flagWorkers
			if workers <= 0 {
				workers = cf.WalkForward.Workers
			}
			windows, summary, err := backtest.RunWalkForward(ctx, candles, htf,
				cf.WalkForward.TrainDays, cf.WalkForward.TestDays, params, workers)
			if err != nil {
				return err
			}

			for i, w := range windows {
				if w.Err != nil {
					fmt.Printf("window %d  %s → %s  FAILED: %v\n",
						i+1, w.TestStart.Format("2006-01-02"), w.TestEnd.Format("2006-01-02"), w.Err)
					continue
				}
				m := w.Result.Metrics
				fmt.Printf("window %d  %s → %s  trades=%d pf=%s pnl=%.2f dd=%.1f%%\n",
					i+1, w.TestStart.Format("2006-01-02"), w.TestEnd.Format("2006-01-02"),
					m.TradeCount, formatPF(m.ProfitFactor), m.TotalPnL, m.MaxDrawdown*100)
			}
			fmt.Printf("\nwindows=%d failed=%d trades=%d pnl=%.2f mean_pf=%.2f pf_var=%.3f max_dd=%.1f%% profitable=%d/%d\n",
				summary.Windows, summary.FailedWindows, summary.TotalTrades, summary.TotalPnL,
				summary.MeanProfitFactor, summary.ProfitFactorVariance, summary.MaxDrawdown*100,
				summary.ProfitableWindows, summary.Windows-summary.FailedWindows)

			if flagOutput != "" {
				if err := backtest.ExportWalkForwardJSON(flagOutput, windows, summary); err != nil {
					return err
				}
				log.Info().Str("path", flagOutput).Msg("wrote walk-forward JSON")
			}
			if flagCSVOutput != "" {
				if err := backtest.ExportWalkForwardCSV(flagCSVOutput, windows, summary); err != nil {
					return err
				}
				log.Info().Str("path", flagCSVOutput).Msg("wrote walk-forward CSV")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagTrainDays, "train-days", 0, "training window in days")
	cmd.Flags().IntVar(&flagTestDays, "test-days", 0, "test window in days")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size")
	return cmd
}

func downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download and cache historical candles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cf, _, err := loadSettings()
			if err != nil {
				return err
			}
			flagRefresh = true
			candles, _, err := loadSeries(ctx, cf)
			if err != nil {
				notifyFailure("Data retrieval failed", err)
				return err
			}
			log.Info().
				Int("candles", len(candles)).
				Str("path", deriv.CachePath(flagDataDir, cf.Symbol, cf.IntervalSeconds, cf.Days)).
				Msg("download complete")
			return nil
		},
	}
}

func printMetrics(symbol string, m models.Metrics) {
	fmt.Printf("symbol=%s trades=%d pnl=%.2f pf=%s win=%.1f%% dd=%.1f%% sharpe=%.2f avg_pnl=%.2f\n",
		symbol, m.TradeCount, m.TotalPnL, formatPF(m.ProfitFactor),
		m.WinRate*100, m.MaxDrawdown*100, m.Sharpe, m.AvgPnL)
}

func formatPF(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
