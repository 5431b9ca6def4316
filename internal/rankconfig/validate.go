package rankconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/rsrank/internal/contracts"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("ticker", isValidTicker)

		// 에러 메시지에 YAML 키 이름 사용
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks every threshold; the first violation is returned as a ConfigurationFault
// 실패 시 스코어링 시작 전 실행 중단
func Validate(cfg *Config) error {
	if cfg == nil {
		return &contracts.ConfigurationFault{Field: "config", Message: "required"}
	}

	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &contracts.ConfigurationFault{Field: fe.Field(), Message: formatFieldError(fe)}
		}
		return &contracts.ConfigurationFault{Field: "config", Message: err.Error()}
	}

	if len(cfg.EnabledIndexes()) == 0 && !cfg.IncludeByMarketCap {
		return &contracts.ConfigurationFault{
			Field:   "NQ100",
			Message: "no index universe enabled and INCLUDE_BY_MARKET_CAP is false",
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 252 lookback + as-of = 253 거래일 ≈ 366 달력일
	if cfg.HistoryDays < 366 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY_WINDOW",
			Message: fmt.Sprintf("HISTORY_DAYS=%d cannot cover the 252-day lookback", cfg.HistoryDays),
		})
	}

	if cfg.MinTradingDays < 253 {
		warnings = append(warnings, Warning{
			Code:    "FILTER_BELOW_LOOKBACK",
			Message: fmt.Sprintf("MIN_TRADING_DAYS=%d admits tickers that will fault on the 252-day lookback", cfg.MinTradingDays),
		})
	}

	if cfg.MinPercentile >= 100 {
		warnings = append(warnings, Warning{
			Code:    "EMPTY_TABLE",
			Message: "MIN_PERCENTILE >= 100: percentiles top out at 99, output table will be empty",
		})
	}

	return warnings
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "ticker":
		return fmt.Sprintf("invalid ticker symbol %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// isValidTicker accepts upper-case symbols with digits, '-', '.' and a leading '^' for indexes
func isValidTicker(fl validator.FieldLevel) bool {
	ticker := fl.Field().String()
	if len(ticker) < 1 || len(ticker) > 10 {
		return false
	}
	for i, ch := range ticker {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '.':
		case ch == '^' && i == 0:
		default:
			return false
		}
	}
	return true
}
