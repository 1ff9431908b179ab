package deriv

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"harmonic-go/src/models"
)

// symbolAliases maps the friendly names used in configs to the API's
// instrument codes. Unknown symbols pass through unchanged.
var symbolAliases = map[string]string{
	"VOLATILITY_75_1S": "R_75_1S",
	"V75_1S":           "R_75_1S",
	"VOL_75_1S":        "R_75_1S",
}

// ResolveSymbol translates a friendly symbol name to its API code
func ResolveSymbol(symbol string) string {
	if api, ok := symbolAliases[symbol]; ok {
		return api
	}
	return symbol
}

// Downloader fetches historical candles cache-first: a prior download for
// the same (symbol, interval, days) key is reused from disk so repeated
// backtests never touch the network.
type Downloader struct {
	client       *Client
	dataDir      string
	forceRefresh bool
	offline      bool
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithForceRefresh bypasses the cache and re-downloads
func WithForceRefresh() DownloaderOption {
	return func(d *Downloader) { d.forceRefresh = true }
}

// WithOffline forbids network access; a cache miss becomes an error
func WithOffline() DownloaderOption {
	return func(d *Downloader) { d.offline = true }
}

// WithDataDir overrides the default "data" cache directory
func WithDataDir(dir string) DownloaderOption {
	return func(d *Downloader) { d.dataDir = dir }
}

// NewDownloader builds a Downloader over the given client. The client may
// be nil for offline use.
func NewDownloader(client *Client, opts ...DownloaderOption) *Downloader {
	d := &Downloader{client: client, dataDir: "data"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetCandles returns up to days of candles at intervalSeconds granularity,
// from cache when present, otherwise downloaded and cached. The returned
// series is sorted by timestamp ascending.
func (d *Downloader) GetCandles(ctx context.Context, symbol string, intervalSeconds, days int) ([]models.Candle, error) {
	if intervalSeconds <= 0 || days <= 0 {
		return nil, fmt.Errorf("interval and days must be positive: interval=%ds days=%d", intervalSeconds, days)
	}

	cachePath := CachePath(d.dataDir, symbol, intervalSeconds, days)
	if !d.forceRefresh {
		if candles, err := ReadCandlesCSV(cachePath); err == nil {
			log.Info().
				Str("path", cachePath).
				Int("candles", len(candles)).
				Msg("loaded cached candles")
			return candles, nil
		} else if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", cachePath).Msg("unreadable cache, re-downloading")
		}
	}

	if d.offline {
		return nil, fmt.Errorf("offline mode and no cache at %s", cachePath)
	}
	if d.client == nil {
		return nil, fmt.Errorf("no client configured and no cache at %s", cachePath)
	}

	apiSymbol := ResolveSymbol(symbol)
	start := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Unix()

	log.Info().
		Str("symbol", symbol).
		Str("api_symbol", apiSymbol).
		Int("interval_s", intervalSeconds).
		Int("days", days).
		Msg("downloading candles")

	candles, err := d.client.History(ctx, apiSymbol, intervalSeconds, start, MaxCandlesPerRequest)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", apiSymbol)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	if err := WriteCandlesCSV(cachePath, candles); err != nil {
		log.Warn().Err(err).Str("path", cachePath).Msg("cache write failed")
	} else {
		log.Info().Str("path", cachePath).Int("candles", len(candles)).Msg("cached candles")
	}
	return candles, nil
}
