package contracts

import (
	"errors"
	"fmt"
)

// ErrBenchmarkMissing is returned when the reference ticker is not in the input set
var ErrBenchmarkMissing = errors.New("benchmark ticker missing")

// Fault kinds recorded on ScoreFault
const (
	FaultInsufficientHistory = "insufficient_history"
	FaultInvalidPrice        = "invalid_price"
)

// InsufficientHistoryFault is raised when a series is too short for every lookback
type InsufficientHistoryFault struct {
	Symbol string
	Have   int
	Need   int
}

func (e *InsufficientHistoryFault) Error() string {
	return fmt.Sprintf("%s: insufficient history: have %d closes, need %d", e.Symbol, e.Have, e.Need)
}

// InvalidPriceFault is raised for a non-positive or missing close at a required offset
type InvalidPriceFault struct {
	Symbol string
	Offset int // 0 = as-of
	Price  float64
}

func (e *InvalidPriceFault) Error() string {
	return fmt.Sprintf("%s: invalid price %v at offset %d", e.Symbol, e.Price, e.Offset)
}

// ConfigurationFault is a malformed threshold; fatal before any scoring
type ConfigurationFault struct {
	Field   string
	Message string
}

func (e *ConfigurationFault) Error() string {
	return fmt.Sprintf("configuration fault: %s: %s", e.Field, e.Message)
}

// IsTickerFault reports whether err is a per-ticker fault (drop the ticker, keep running)
func IsTickerFault(err error) bool {
	var hist *InsufficientHistoryFault
	var price *InvalidPriceFault
	return errors.As(err, &hist) || errors.As(err, &price)
}

// IsConfigurationFault reports whether err carries a ConfigurationFault
func IsConfigurationFault(err error) bool {
	var cfg *ConfigurationFault
	return errors.As(err, &cfg)
}

// NewScoreFault converts a per-ticker fault into its run record
func NewScoreFault(symbol string, err error) ScoreFault {
	kind := FaultInvalidPrice
	var hist *InsufficientHistoryFault
	if errors.As(err, &hist) {
		kind = FaultInsufficientHistory
	}
	return ScoreFault{Symbol: symbol, Kind: kind, Detail: err.Error()}
}
