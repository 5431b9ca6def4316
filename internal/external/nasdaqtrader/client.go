package nasdaqtrader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/config"
	"github.com/wonny/rsrank/pkg/httputil"
	"github.com/wonny/rsrank/pkg/logger"
)

// Symbol directory files published by Nasdaq Trader
const (
	NasdaqListedPath = "/dynamic/SymDir/nasdaqlisted.txt"
	OtherListedPath  = "/dynamic/SymDir/otherlisted.txt"
)

// directory describes one pipe-delimited listing file
type directory struct {
	path         string
	symbolColumn string
}

var directories = []directory{
	{path: NasdaqListedPath, symbolColumn: "Symbol"},
	{path: OtherListedPath, symbolColumn: "ACT Symbol"},
}

// Client reads the exchange-listed symbol directory
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Nasdaq Trader client
func NewClient(httpClient *httputil.Client, cfg config.NasdaqTraderConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("nasdaqtrader"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// ListedSymbols returns every non-ETF, non-test common listing on Nasdaq, NYSE and the other US exchanges.
// Result is normalized, de-duplicated and sorted.
func (c *Client) ListedSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	for _, dir := range directories {
		body, err := c.httpClient.GetBody(ctx, c.baseURL+dir.path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", dir.path, err)
		}

		symbols, err := ParseDirectory(bytes.NewReader(body), dir.symbolColumn)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", dir.path, err)
		}

		c.logger.WithFields(map[string]interface{}{
			"file":  dir.path,
			"count": len(symbols),
		}).Debug("Parsed symbol directory")

		for _, s := range symbols {
			seen[s] = true
		}
	}

	result := make([]string, 0, len(seen))
	for s := range seen {
		result = append(result, s)
	}
	sort.Strings(result)

	c.logger.WithField("count", len(result)).Info("Fetched listed symbols")
	return result, nil
}

// ParseDirectory reads one pipe-delimited listing file.
// ETFs, test issues and the trailing "File Creation Time" row are skipped.
func ParseDirectory(r io.Reader, symbolColumn string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	symbolIdx, ok := cols[symbolColumn]
	if !ok {
		return nil, fmt.Errorf("missing %q column", symbolColumn)
	}
	etfIdx, hasETF := cols["ETF"]
	testIdx, hasTest := cols["Test Issue"]

	var symbols []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		if len(record) > 0 && strings.HasPrefix(record[0], "File Creation Time") {
			continue
		}
		if symbolIdx >= len(record) {
			continue
		}
		if hasETF && etfIdx < len(record) && record[etfIdx] == "Y" {
			continue
		}
		if hasTest && testIdx < len(record) && record[testIdx] == "Y" {
			continue
		}

		if symbol := contracts.NormalizeSymbol(record[symbolIdx]); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	return symbols, nil
}
