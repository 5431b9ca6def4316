package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol       string `json:"symbol"`
		ExchangeName string `json:"exchangeName"`
		GMTOffset    int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchHistory fetches daily bars between from and to (inclusive) as an ascending series.
// Split/dividend-adjusted closes are used when present; bars without a close are skipped.
func (c *Client) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	params.Set("includeAdjustedClose", "true")

	var resp chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}
	if err := resp.Chart.Error.err(symbol); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}

	series := parseChart(resp.Chart.Result[0])

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(series),
	}).Debug("Fetched history")

	return series, nil
}

// parseChart converts the columnar chart payload into PricePoints keyed by exchange-local date
func parseChart(r chartResult) contracts.PriceSeries {
	if len(r.Indicators.Quote) == 0 {
		return contracts.PriceSeries{}
	}
	quote := r.Indicators.Quote[0]

	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	byDate := make(map[time.Time]contracts.PricePoint, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		var closePtr *float64
		if i < len(adj) && adj[i] != nil {
			closePtr = adj[i]
		} else if i < len(quote.Close) {
			closePtr = quote.Close[i]
		}
		if closePtr == nil {
			continue
		}

		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		// 같은 날짜 중복 시 마지막 값 사용
		byDate[date] = contracts.PricePoint{Date: date, Close: *closePtr, Volume: volume}
	}

	series := make(contracts.PriceSeries, 0, len(byDate))
	for _, p := range byDate {
		series = append(series, p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}
