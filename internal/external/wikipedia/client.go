package wikipedia

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/config"
	"github.com/wonny/rsrank/pkg/httputil"
	"github.com/wonny/rsrank/pkg/logger"
)

// Pages maps each index set to its constituents article
var Pages = map[contracts.IndexSet]string{
	contracts.IndexSP500: "/wiki/List_of_S%26P_500_companies",
	contracts.IndexNQ100: "/wiki/Nasdaq-100",
	contracts.IndexSP400: "/wiki/List_of_S%26P_400_companies",
	contracts.IndexSP600: "/wiki/List_of_S%26P_600_companies",
	contracts.IndexR2000: "/wiki/Russell_2000_Index",
}

// Client scrapes index constituent tables from Wikipedia
// ⭐ SSOT: 지수 구성종목 수집은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Wikipedia client
func NewClient(httpClient *httputil.Client, cfg config.WikipediaConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("wikipedia"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Constituents fetches and parses the member table of one index
func (c *Client) Constituents(ctx context.Context, set contracts.IndexSet) ([]contracts.Constituent, error) {
	path, ok := Pages[set]
	if !ok {
		return nil, fmt.Errorf("no constituents page for index %s", set)
	}

	body, err := c.httpClient.GetBody(ctx, c.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s constituents: %w", set, err)
	}

	members, err := ParseConstituents(bytes.NewReader(body), set)
	if err != nil {
		return nil, fmt.Errorf("parse %s constituents: %w", set, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"index": string(set),
		"count": len(members),
	}).Info("Fetched index constituents")

	return members, nil
}

// column indexes of one wikitable
type layout struct {
	symbol, name, sector, industry int
}

// ParseConstituents finds the first wikitable with a Symbol/Ticker column and reads its rows.
// Symbols are normalized (BRK.B → BRK-B) and de-duplicated.
func ParseConstituents(r io.Reader, set contracts.IndexSet) ([]contracts.Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var members []contracts.Constituent
	found := false

	doc.Find("table.wikitable").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols, ok := headerLayout(table)
		if !ok {
			return true
		}
		found = true

		seen := make(map[string]bool)
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= cols.symbol {
				return
			}

			symbol := contracts.NormalizeSymbol(cellText(cells, cols.symbol))
			if symbol == "" || seen[symbol] {
				return
			}
			seen[symbol] = true

			members = append(members, contracts.Constituent{
				Symbol:   symbol,
				Name:     cellText(cells, cols.name),
				Sector:   cellText(cells, cols.sector),
				Industry: cellText(cells, cols.industry),
				Index:    set,
			})
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no constituents table with a Symbol or Ticker column")
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Symbol < members[j].Symbol })
	return members, nil
}

func headerLayout(table *goquery.Selection) (layout, bool) {
	cols := layout{symbol: -1, name: -1, sector: -1, industry: -1}

	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch h := strings.ToLower(strings.TrimSpace(th.Text())); {
		case h == "symbol" || h == "ticker" || h == "ticker symbol":
			cols.symbol = i
		case h == "security" || h == "company" || h == "name":
			cols.name = i
		case h == "gics sector" || h == "sector":
			cols.sector = i
		case h == "gics sub-industry" || h == "industry" || h == "gics sub industry":
			cols.industry = i
		}
	})

	return cols, cols.symbol >= 0
}

func cellText(cells *goquery.Selection, i int) string {
	if i < 0 || i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}
