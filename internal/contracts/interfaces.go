package contracts

import (
	"context"
	"time"
)

// TickerStore loads and saves the collected ticker snapshot
// ⭐ SSOT: S0 스냅샷 저장소 인터페이스 (JSON 파일 또는 Postgres)
type TickerStore interface {
	LoadTickers(ctx context.Context) (map[string]Ticker, error)
	SaveTickers(ctx context.Context, tickers []Ticker) error
}

// RunStore persists ranking runs
// ⭐ SSOT: S3 결과 저장 인터페이스
type RunStore interface {
	SaveRun(ctx context.Context, run *RankingRun) error
	LatestRun(ctx context.Context) (*RankingRun, error)
}

// UniverseStore persists universe snapshots
type UniverseStore interface {
	SaveUniverse(ctx context.Context, u *Universe) error
	GetUniverse(ctx context.Context, asOf time.Time) (*Universe, error)
}

// TableWriter serializes the ranked display table
type TableWriter interface {
	Write(entries []RankedEntry) (string, error)
}
