package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsrank/internal/contracts"
)

// PriceRepository implements contracts.TickerStore on Postgres
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// SaveTickers upserts profiles and replaces each ticker's daily series
func (r *PriceRepository) SaveTickers(ctx context.Context, tickers []contracts.Ticker) error {
	if len(tickers) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
		batch.Queue(`
			INSERT INTO rs.tickers (symbol, name, sector, industry, exchange, market_cap, avg_volume, indexes, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (symbol) DO UPDATE SET
				name = EXCLUDED.name,
				sector = EXCLUDED.sector,
				industry = EXCLUDED.industry,
				exchange = EXCLUDED.exchange,
				market_cap = EXCLUDED.market_cap,
				avg_volume = EXCLUDED.avg_volume,
				indexes = EXCLUDED.indexes,
				updated_at = NOW()
		`, t.Symbol, t.Name, t.Sector, t.Industry, t.Exchange, t.MarketCap, t.AvgVolume, indexNames(t.Indexes))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert tickers: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM rs.daily_prices WHERE symbol = ANY($1)`, symbols); err != nil {
		return fmt.Errorf("failed to clear daily prices: %w", err)
	}

	var rows [][]interface{}
	for _, t := range tickers {
		for _, p := range t.Series {
			rows = append(rows, []interface{}{t.Symbol, p.Date, p.Close, p.Volume})
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"rs", "daily_prices"},
		[]string{"symbol", "trade_date", "close_price", "volume"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy daily prices: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadTickers reads every stored ticker with its full series
func (r *PriceRepository) LoadTickers(ctx context.Context) (map[string]contracts.Ticker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol, name, sector, industry, exchange, market_cap, avg_volume, indexes
		FROM rs.tickers
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	tickers := make(map[string]contracts.Ticker)
	for rows.Next() {
		var t contracts.Ticker
		var indexes []string
		if err := rows.Scan(&t.Symbol, &t.Name, &t.Sector, &t.Industry, &t.Exchange, &t.MarketCap, &t.AvgVolume, &indexes); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		for _, idx := range indexes {
			t.Indexes = append(t.Indexes, contracts.IndexSet(idx))
		}
		tickers[t.Symbol] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	priceRows, err := r.pool.Query(ctx, `
		SELECT symbol, trade_date, close_price, volume
		FROM rs.daily_prices
		ORDER BY symbol, trade_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer priceRows.Close()

	series := make(map[string]contracts.PriceSeries, len(tickers))
	for priceRows.Next() {
		var symbol string
		var p contracts.PricePoint
		if err := priceRows.Scan(&symbol, &p.Date, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		series[symbol] = append(series[symbol], p)
	}
	if err := priceRows.Err(); err != nil {
		return nil, err
	}

	for symbol, s := range series {
		t, ok := tickers[symbol]
		if !ok {
			continue
		}
		t.Series = s
		t.TradingDays = len(s)
		tickers[symbol] = t
	}

	return tickers, nil
}

func indexNames(sets []contracts.IndexSet) []string {
	names := make([]string, len(sets))
	for i, s := range sets {
		names[i] = string(s)
	}
	return names
}
