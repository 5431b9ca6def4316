package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/rsrank/internal/contracts"
)

// QuoteBatchSize is the number of symbols per batch quote request
const QuoteBatchSize = 50

type rawValue struct {
	Raw float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price struct {
				ShortName    string   `json:"shortName"`
				LongName     string   `json:"longName"`
				ExchangeName string   `json:"exchangeName"`
				MarketCap    rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				AverageVolume rawValue `json:"averageVolume"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// FetchProfile fetches sector, industry, exchange and market cap for one symbol.
// Missing descriptive fields come back as "Unknown".
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	params := url.Values{}
	params.Set("modules", "assetProfile,price,summaryDetail")

	var resp summaryResponse
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", symbol, err)
	}
	if err := resp.QuoteSummary.Error.err(symbol); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}

	r := resp.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}

	return &contracts.Profile{
		Symbol:    symbol,
		Name:      name,
		Sector:    orUnknown(r.AssetProfile.Sector),
		Industry:  orUnknown(r.AssetProfile.Industry),
		Exchange:  orUnknown(r.Price.ExchangeName),
		MarketCap: r.Price.MarketCap.Raw,
		AvgVolume: r.SummaryDetail.AverageVolume.Raw,
	}, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol           string  `json:"symbol"`
			LongName         string  `json:"longName"`
			ShortName        string  `json:"shortName"`
			FullExchangeName string  `json:"fullExchangeName"`
			MarketCap        float64 `json:"marketCap"`
			AvgVolume3Month  float64 `json:"averageDailyVolume3Month"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteResponse"`
}

// FetchQuotes fetches market cap and average volume for many symbols in batches.
// Symbols Yahoo does not return are silently absent from the result.
func (c *Client) FetchQuotes(ctx context.Context, symbols []string) ([]contracts.Profile, error) {
	profiles := make([]contracts.Profile, 0, len(symbols))

	for start := 0; start < len(symbols); start += QuoteBatchSize {
		end := start + QuoteBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		params := url.Values{}
		params.Set("symbols", strings.Join(batch, ","))

		var resp quoteResponse
		if err := c.getJSON(ctx, "/v7/finance/quote", params, &resp); err != nil {
			return nil, fmt.Errorf("fetch quotes [%d:%d]: %w", start, end, err)
		}
		if err := resp.QuoteResponse.Error.err("quote"); err != nil {
			return nil, err
		}

		for _, q := range resp.QuoteResponse.Result {
			name := q.LongName
			if name == "" {
				name = q.ShortName
			}
			profiles = append(profiles, contracts.Profile{
				Symbol:    q.Symbol,
				Name:      name,
				Exchange:  orUnknown(q.FullExchangeName),
				MarketCap: q.MarketCap,
				AvgVolume: q.AvgVolume3Month,
			})
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"returned":  len(profiles),
	}).Debug("Fetched quotes")

	return profiles, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
