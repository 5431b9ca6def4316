package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

// FileName is the ranked table written into OUTPUT_DIR
const FileName = "rs_stocks.csv"

// Header is the column layout of the ranked table
var Header = []string{
	"Rank", "Ticker", "Sector", "Industry", "Exchange",
	"Relative Strength", "Percentile", "Market Cap ($B)", "Stock Strength (%)",
}

// CSVWriter implements contracts.TableWriter
// ⭐ SSOT: 결과 CSV 포맷은 여기서만
type CSVWriter struct {
	dir    string
	logger *logger.Logger
}

// NewCSVWriter creates a writer rooted at outputDir
func NewCSVWriter(outputDir string, log *logger.Logger) *CSVWriter {
	return &CSVWriter{
		dir:    outputDir,
		logger: log.Component(string(contracts.StageReport)),
	}
}

// Path returns the table location
func (w *CSVWriter) Path() string {
	return filepath.Join(w.dir, FileName)
}

// Write replaces the table file with entries and returns its path
func (w *CSVWriter) Write(entries []contracts.RankedEntry) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, FileName+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, entries); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close table: %w", err)
	}

	path := w.Path()
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace table: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": len(entries),
	}).Debug("Wrote ranking table")

	return path, nil
}

// Encode writes the header and one row per entry
func Encode(out io.Writer, entries []contracts.RankedEntry) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range entries {
		if err := writer.Write(Row(e)); err != nil {
			return fmt.Errorf("write row %s: %w", e.Symbol, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Row formats one entry in Header order
func Row(e contracts.RankedEntry) []string {
	return []string{
		strconv.Itoa(e.Rank),
		e.Symbol,
		e.Sector,
		e.Industry,
		e.Exchange,
		strconv.FormatFloat(e.RawScore, 'f', 2, 64),
		strconv.Itoa(e.Percentile),
		strconv.FormatFloat(MarketCapBillions(e.MarketCap), 'f', 2, 64),
		strconv.FormatFloat(StrengthPercent(e.Strength), 'f', 2, 64),
	}
}

// MarketCapBillions converts dollars to $B
func MarketCapBillions(cap float64) float64 {
	return cap / 1e9
}

// StrengthPercent converts the weighted performance ratio P into percent gain
func StrengthPercent(p float64) float64 {
	return (p - 1) * 100
}
