package s0_data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

// SnapshotFile is the collected-data file name inside DATA_DIR
const SnapshotFile = "stock_data.json"

const dateLayout = "2006-01-02"

// ErrNoSnapshot is returned when no collected snapshot exists yet
var ErrNoSnapshot = errors.New("no ticker snapshot found, run collect first")

// FileStore keeps the collected tickers as one JSON document
// ⭐ SSOT: data/stock_data.json 읽기/쓰기는 여기서만
type FileStore struct {
	path   string
	logger *logger.Logger
}

// fileTicker mirrors the on-disk record layout
type fileTicker struct {
	Ticker    string               `json:"ticker"`
	Name      string               `json:"name,omitempty"`
	Sector    string               `json:"sector"`
	Industry  string               `json:"industry"`
	MarketCap float64              `json:"market_cap"`
	Exchange  string               `json:"exchange"`
	AvgVolume float64              `json:"avg_volume,omitempty"`
	Indexes   []contracts.IndexSet `json:"indexes,omitempty"`
	Prices    []filePoint          `json:"prices"`
}

type filePoint struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// NewFileStore creates a store rooted at dataDir
func NewFileStore(dataDir string, log *logger.Logger) *FileStore {
	return &FileStore{
		path:   filepath.Join(dataDir, SnapshotFile),
		logger: log.Component("filestore"),
	}
}

// Path returns the snapshot file location
func (s *FileStore) Path() string {
	return s.path
}

// LoadTickers reads the snapshot; series are sorted ascending and de-duplicated by date
func (s *FileStore) LoadTickers(ctx context.Context) (map[string]contracts.Ticker, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var records []fileTicker
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	tickers := make(map[string]contracts.Ticker, len(records))
	for _, rec := range records {
		t, err := rec.toTicker()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.Ticker, err)
		}
		tickers[t.Symbol] = t
	}

	s.logger.WithFields(map[string]interface{}{
		"path":    s.path,
		"tickers": len(tickers),
	}).Info("Loaded ticker snapshot")

	return tickers, nil
}

// SaveTickers replaces the snapshot atomically (temp file + rename)
func (s *FileStore) SaveTickers(ctx context.Context, tickers []contracts.Ticker) error {
	records := make([]fileTicker, len(tickers))
	for i, t := range tickers {
		records[i] = fromTicker(t)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Ticker < records[j].Ticker })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), SnapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":    s.path,
		"tickers": len(records),
	}).Info("Saved ticker snapshot")

	return nil
}

func (r fileTicker) toTicker() (contracts.Ticker, error) {
	series := make(contracts.PriceSeries, 0, len(r.Prices))
	for _, p := range r.Prices {
		date, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return contracts.Ticker{}, fmt.Errorf("parse date %q: %w", p.Date, err)
		}
		series = append(series, contracts.PricePoint{Date: date, Close: p.Close, Volume: p.Volume})
	}

	return contracts.Ticker{
		Symbol:      contracts.NormalizeSymbol(r.Ticker),
		Name:        r.Name,
		Sector:      r.Sector,
		Industry:    r.Industry,
		Exchange:    r.Exchange,
		MarketCap:   r.MarketCap,
		AvgVolume:   r.AvgVolume,
		TradingDays: len(series),
		Indexes:     r.Indexes,
		Series:      SortSeries(series),
	}, nil
}

func fromTicker(t contracts.Ticker) fileTicker {
	prices := make([]filePoint, len(t.Series))
	for i, p := range t.Series {
		prices[i] = filePoint{Date: p.Date.Format(dateLayout), Close: p.Close, Volume: p.Volume}
	}

	return fileTicker{
		Ticker:    t.Symbol,
		Name:      t.Name,
		Sector:    t.Sector,
		Industry:  t.Industry,
		MarketCap: t.MarketCap,
		Exchange:  t.Exchange,
		AvgVolume: t.AvgVolume,
		Indexes:   t.Indexes,
		Prices:    prices,
	}
}

// SortSeries orders points by date and keeps the last point for a repeated date
func SortSeries(series contracts.PriceSeries) contracts.PriceSeries {
	if series.IsSorted() {
		return series
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	out := series[:0]
	for _, p := range series {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
