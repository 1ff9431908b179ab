package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"harmonic-go/src/deriv"
	"harmonic-go/src/models"
)

// gendata writes a synthetic sinusoidal candle series in the cache format,
// so offline backtests can run without any downloaded data.
func main() {
	var (
		out       = flag.String("out", "", "output path (default: cache path under -data-dir)")
		dataDir   = flag.String("data-dir", "data", "cache directory for the default path")
		symbol    = flag.String("symbol", "SINE_20", "symbol name used in the default path")
		count     = flag.Int("count", 2000, "number of candles")
		interval  = flag.Int("interval", 60, "candle interval in seconds")
		period    = flag.Float64("period", 20, "cycle period in bars")
		amplitude = flag.Float64("amplitude", 5, "cycle amplitude")
		midpoint  = flag.Float64("midpoint", 100, "price midpoint")
		noise     = flag.Float64("noise", 0, "uniform noise amplitude")
		seed      = flag.Int64("seed", 1, "noise seed")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *count <= 0 || *period <= 0 {
		log.Fatal().Msg("count and period must be positive")
	}

	path := *out
	if path == "" {
		days := *count * *interval / 86400
		if days < 1 {
			days = 1
		}
		path = deriv.CachePath(*dataDir, *symbol, *interval, days)
	}

	candles := generate(*count, *interval, *period, *amplitude, *midpoint, *noise, *seed)
	if err := deriv.WriteCandlesCSV(path, candles); err != nil {
		log.Fatal().Err(err).Msg("write failed")
	}
	fmt.Printf("wrote %d candles to %s\n", len(candles), path)
}

func generate(count, interval int, period, amplitude, midpoint, noise float64, seed int64) []models.Candle {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	price := func(i int) float64 {
		v := midpoint + amplitude*math.Sin(2*math.Pi*float64(i)/period)
		if noise > 0 {
			v += (rng.Float64()*2 - 1) * noise
		}
		return v
	}

	candles := make([]models.Candle, count)
	for i := 0; i < count; i++ {
		open := price(i)
		close := price(i + 1)
		high := math.Max(open, close)
		low := math.Min(open, close)
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i*interval) * time.Second),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
		}
	}
	return candles
}
