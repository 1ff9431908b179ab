package deriv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"harmonic-go/src/models"
)

// CachePath returns the cache file for one (symbol, interval, days)
// download under dataDir
func CachePath(dataDir, symbol string, intervalSeconds, days int) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s_candles_%ds_%dd.csv", symbol, intervalSeconds, days))
}

// WriteCandlesCSV writes a candle series in the cache format. The same
// format is produced by the gendata tool, so synthetic files are
// interchangeable with downloads.
func WriteCandlesCSV(path string, candles []models.Candle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"epoch", "open", "high", "low", "close"}); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			strconv.FormatInt(c.Timestamp.Unix(), 10),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCandlesCSV loads a cache file written by WriteCandlesCSV
func ReadCandlesCSV(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("read %s: no candle rows", path)
	}

	candles := make([]models.Candle, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("read %s: row %d has %d fields, want 5", path, i+2, len(row))
		}
		epoch, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read %s: row %d epoch: %w", path, i+2, err)
		}
		var prices [4]float64
		for j := 0; j < 4; j++ {
			prices[j], err = strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("read %s: row %d field %d: %w", path, i+2, j+1, err)
			}
		}
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(epoch, 0).UTC(),
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
		})
	}
	return candles, nil
}
