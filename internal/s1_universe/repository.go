package s1_universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsrank/internal/contracts"
)

// ErrNoUniverse is returned when no universe snapshot matches
var ErrNoUniverse = errors.New("no universe snapshot stored")

// Repository handles data persistence for S1
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveUniverse saves a universe snapshot to the database
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO rs.universe_snapshots (
			as_of,
			admitted,
			excluded,
			total_count,
			created_at
		) VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (as_of) DO UPDATE SET
			admitted = EXCLUDED.admitted,
			excluded = EXCLUDED.excluded,
			total_count = EXCLUDED.total_count,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		universe.AsOf,
		universe.Admitted,
		excludedJSON,
		universe.TotalCount,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// GetUniverse retrieves the snapshot for one as-of date
func (r *Repository) GetUniverse(ctx context.Context, asOf time.Time) (*contracts.Universe, error) {
	query := `
		SELECT as_of, admitted, excluded, total_count
		FROM rs.universe_snapshots
		WHERE as_of = $1
	`
	return r.scanOne(ctx, query, asOf)
}

// GetLatestUniverse retrieves the most recent universe snapshot
func (r *Repository) GetLatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	query := `
		SELECT as_of, admitted, excluded, total_count
		FROM rs.universe_snapshots
		ORDER BY as_of DESC
		LIMIT 1
	`
	return r.scanOne(ctx, query)
}

func (r *Repository) scanOne(ctx context.Context, query string, args ...interface{}) (*contracts.Universe, error) {
	universe := &contracts.Universe{
		Excluded: make(map[string]contracts.RejectReason),
	}

	var excludedJSON []byte
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&universe.AsOf,
		&universe.Admitted,
		&excludedJSON,
		&universe.TotalCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoUniverse
	}
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}

	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}
	sort.Strings(universe.Admitted)

	return universe, nil
}
