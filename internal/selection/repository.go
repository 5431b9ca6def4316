package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsrank/internal/contracts"
)

// ErrNoRuns is returned when no ranking run has been stored yet
var ErrNoRuns = errors.New("no ranking run stored")

// Repository handles ranking run persistence
// ⭐ SSOT: 랭킹 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores the run header and its full ranked set in one transaction
func (r *Repository) SaveRun(ctx context.Context, run *contracts.RankingRun) error {
	faultsJSON, err := json.Marshal(run.Faults)
	if err != nil {
		return fmt.Errorf("failed to marshal faults: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	admitted := 0
	if run.Universe != nil {
		admitted = run.Universe.Count()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rs.ranking_runs (
			run_id, as_of, benchmark, config_hash, admitted, faults, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.RunID, run.AsOf, run.Benchmark, run.ConfigHash, admitted, faultsJSON, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ranking run: %w", err)
	}

	rows := make([][]interface{}, 0, len(run.Entries))
	for _, e := range run.Entries {
		rows = append(rows, []interface{}{
			run.RunID, e.Rank, e.Symbol, e.RawScore, e.Percentile, e.Strength,
			e.Sector, e.Industry, e.Exchange, e.MarketCap,
		})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"rs", "ranked_entries"},
		[]string{"run_id", "rank", "symbol", "raw_score", "percentile", "strength", "sector", "industry", "exchange", "market_cap"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy ranked entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestRun loads the most recent run with its full ranked set (Table left empty)
func (r *Repository) LatestRun(ctx context.Context) (*contracts.RankingRun, error) {
	run := &contracts.RankingRun{}
	var faultsJSON []byte

	err := r.pool.QueryRow(ctx, `
		SELECT run_id, as_of, benchmark, config_hash, faults, started_at, finished_at
		FROM rs.ranking_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&run.RunID, &run.AsOf, &run.Benchmark, &run.ConfigHash, &faultsJSON, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if len(faultsJSON) > 0 {
		if err := json.Unmarshal(faultsJSON, &run.Faults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal faults: %w", err)
		}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT rank, symbol, raw_score, percentile, strength, sector, industry, exchange, market_cap
		FROM rs.ranked_entries
		WHERE run_id = $1
		ORDER BY rank ASC
	`, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked entries: %w", err)
	}
	defer rows.Close()

	run.Entries = make([]contracts.RankedEntry, 0)
	for rows.Next() {
		var e contracts.RankedEntry
		if err := rows.Scan(
			&e.Rank, &e.Symbol, &e.RawScore, &e.Percentile, &e.Strength,
			&e.Sector, &e.Industry, &e.Exchange, &e.MarketCap,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.Entries = append(run.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return run, nil
}
