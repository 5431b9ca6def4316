package s1_universe

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/pkg/logger"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestBuilder_Build(t *testing.T) {
	cfg := rankconfig.Default()
	cfg.IncludeByMarketCap = true
	cfg.MaxTickersByCap = 2

	tickers := map[string]contracts.Ticker{
		"SPY":  ticker("SPY", 300, 60_000_000, 0),
		"AAPL": ticker("AAPL", 300, 50_000_000, 3e12, contracts.IndexSP500, contracts.IndexNQ100),
		"NEW":  ticker("NEW", 150, 5_000_000, 4e10, contracts.IndexSP500),
		"CAP1": ticker("CAP1", 300, 500_000, 9e9),
		"CAP2": ticker("CAP2", 300, 500_000, 7e9),
		"CAP3": ticker("CAP3", 300, 500_000, 6e9),
		"PENY": ticker("PENY", 300, 500_000, 1e7),
	}

	universe := NewBuilder(NewFilter(cfg), logger.Nop()).Build(asOf, tickers)

	assert.Equal(t, asOf, universe.AsOf)
	assert.Equal(t, 7, universe.TotalCount)
	assert.Equal(t, []string{"AAPL", "CAP1", "CAP2", "SPY"}, universe.Admitted)
	assert.Equal(t, map[string]contracts.RejectReason{
		"NEW":  contracts.ReasonInsufficientHistory,
		"CAP3": contracts.ReasonBeyondCapLimit,
		"PENY": contracts.ReasonLowMarketCap,
	}, universe.Excluded)
}

func TestBuilder_ShortHistoryAbsent(t *testing.T) {
	cfg := rankconfig.Default()
	cfg.MinTradingDays = 200

	tickers := map[string]contracts.Ticker{
		"SPY":  ticker("SPY", 260, 60_000_000, 0),
		"HOT":  ticker("HOT", 150, 90_000_000, 9e11, contracts.IndexNQ100),
		"AAPL": ticker("AAPL", 260, 50_000_000, 3e12, contracts.IndexSP500),
	}

	universe := NewBuilder(NewFilter(cfg), logger.Nop()).Build(asOf, tickers)

	assert.False(t, universe.Contains("HOT"))
	excluded, reason := universe.IsExcluded("HOT")
	assert.True(t, excluded)
	assert.Equal(t, contracts.ReasonInsufficientHistory, reason)
}

func TestBuilder_CapRanks(t *testing.T) {
	cfg := rankconfig.Default()
	cfg.IncludeByMarketCap = true

	tickers := map[string]contracts.Ticker{
		"SPY":  ticker("SPY", 1, 1, 0),
		"IDX":  ticker("IDX", 1, 1, 1e13, contracts.IndexSP400),
		"BBB":  ticker("BBB", 1, 1, 5e9),
		"AAA":  ticker("AAA", 1, 1, 5e9),
		"HUGE": ticker("HUGE", 1, 1, 8e11),
	}

	ranks := NewBuilder(NewFilter(cfg), logger.Nop()).CapRanks(tickers)

	assert.Equal(t, map[string]int{"HUGE": 1, "AAA": 2, "BBB": 3}, ranks)
}

func TestRepository_Roundtrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewRepository(pool)
	universe := &contracts.Universe{
		AsOf:       asOf,
		Admitted:   []string{"AAPL", "SPY"},
		Excluded:   map[string]contracts.RejectReason{"NEW": contracts.ReasonInsufficientHistory},
		TotalCount: 3,
	}
	require.NoError(t, repo.SaveUniverse(ctx, universe))

	got, err := repo.GetUniverse(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, universe.Admitted, got.Admitted)
	assert.Equal(t, universe.Excluded, got.Excluded)
	assert.Equal(t, 3, got.TotalCount)
}
