package rankconfig

import "github.com/wonny/rsrank/internal/contracts"

// Config holds the thresholds of one ranking run
// 키 이름은 config.yaml 과 동일 (대문자)
type Config struct {
	// Index universes
	NQ100              bool `yaml:"NQ100" json:"NQ100"`
	SP500              bool `yaml:"SP500" json:"SP500"`
	SP400              bool `yaml:"SP400" json:"SP400"`
	SP600              bool `yaml:"SP600" json:"SP600"`
	IncludeRussell2000 bool `yaml:"INCLUDE_RUSSELL_2000" json:"INCLUDE_RUSSELL_2000"`

	// Market-cap-only inclusion
	IncludeByMarketCap bool    `yaml:"INCLUDE_BY_MARKET_CAP" json:"INCLUDE_BY_MARKET_CAP"`
	MinMarketCap       float64 `yaml:"MIN_MARKET_CAP" json:"MIN_MARKET_CAP" validate:"gte=0"`
	MaxTickersByCap    int     `yaml:"MAX_TICKERS_BY_CAP" json:"MAX_TICKERS_BY_CAP" validate:"gte=0"`

	// Data quality
	MinTradingDays int     `yaml:"MIN_TRADING_DAYS" json:"MIN_TRADING_DAYS" validate:"gte=0"`
	MinAvgVolume   float64 `yaml:"MIN_AVG_VOLUME" json:"MIN_AVG_VOLUME" validate:"gte=0"`

	// Output
	MinPercentile   int    `yaml:"MIN_PERCENTILE" json:"MIN_PERCENTILE" validate:"gte=0,lte=100"`
	ReferenceTicker string `yaml:"REFERENCE_TICKER" json:"REFERENCE_TICKER" validate:"required,ticker"`
	OutputDir       string `yaml:"OUTPUT_DIR" json:"OUTPUT_DIR" validate:"required"`

	// Execution
	Workers     int `yaml:"WORKERS" json:"WORKERS" validate:"gte=1,lte=256"`
	HistoryDays int `yaml:"HISTORY_DAYS" json:"HISTORY_DAYS" validate:"gte=1"`
}

// Default returns the stock thresholds
func Default() *Config {
	return &Config{
		NQ100:              true,
		SP500:              true,
		SP400:              true,
		SP600:              true,
		IncludeRussell2000: false,
		IncludeByMarketCap: false,
		MinMarketCap:       500_000_000,
		MaxTickersByCap:    1000,
		MinTradingDays:     200,
		MinAvgVolume:       100_000,
		MinPercentile:      70,
		ReferenceTicker:    "SPY",
		OutputDir:          "output",
		Workers:            8,
		HistoryDays:        400,
	}
}

// EnabledIndexes returns the index sets whose members bypass the market-cap rules
func (c *Config) EnabledIndexes() []contracts.IndexSet {
	var sets []contracts.IndexSet
	if c.NQ100 {
		sets = append(sets, contracts.IndexNQ100)
	}
	if c.SP500 {
		sets = append(sets, contracts.IndexSP500)
	}
	if c.SP400 {
		sets = append(sets, contracts.IndexSP400)
	}
	if c.SP600 {
		sets = append(sets, contracts.IndexSP600)
	}
	if c.IncludeRussell2000 {
		sets = append(sets, contracts.IndexR2000)
	}
	return sets
}
