package selection

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

func scores(pairs ...interface{}) []contracts.ScoredTicker {
	out := make([]contracts.ScoredTicker, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, contracts.ScoredTicker{Symbol: pairs[i].(string), RawScore: pairs[i+1].(float64)})
	}
	return out
}

func symbols(entries []contracts.RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}

func TestRank_ThreeTickers(t *testing.T) {
	ranker := NewPercentileRanker(logger.Nop())

	entries := ranker.Rank(scores("A", 80.0, "B", 120.0, "C", 100.0), nil)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"B", "C", "A"}, symbols(entries))
	assert.Equal(t, 99, entries[0].Percentile)
	assert.Equal(t, 49, entries[1].Percentile)
	assert.Equal(t, 0, entries[2].Percentile)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 3, entries[2].Rank)

	table := FilterByPercentile(entries, 50)
	require.Len(t, table, 1)
	assert.Equal(t, "B", table[0].Symbol)

	// 49 포함 경계
	table = FilterByPercentile(entries, 49)
	assert.Equal(t, []string{"B", "C"}, symbols(table))
}

func TestRank_TiesShareAPercentile(t *testing.T) {
	ranker := NewPercentileRanker(logger.Nop())

	entries := ranker.Rank(scores("ZZZ", 100.0, "LOW", 50.0, "AAA", 100.0, "TOP", 150.0), nil)

	assert.Equal(t, []string{"TOP", "AAA", "ZZZ", "LOW"}, symbols(entries))
	assert.Equal(t, entries[1].Percentile, entries[2].Percentile)
	assert.Equal(t, 33, entries[1].Percentile) // 첫 위치 i=1 → floor(99/3)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank, entries[3].Rank})
}

func TestRank_TieAtTop(t *testing.T) {
	entries := NewPercentileRanker(logger.Nop()).Rank(scores("B", 100.0, "A", 100.0), nil)

	assert.Equal(t, []string{"A", "B"}, symbols(entries))
	assert.Equal(t, 0, entries[0].Percentile)
	assert.Equal(t, 0, entries[1].Percentile)
}

func TestPercentiles_TiedTopGroupBelowMax(t *testing.T) {
	asc := []contracts.ScoredTicker{
		{Symbol: "A", RawScore: 90},
		{Symbol: "B", RawScore: 100},
		{Symbol: "C", RawScore: 120},
		{Symbol: "D", RawScore: 120},
		{Symbol: "E", RawScore: 120},
	}

	got := Percentiles(asc)

	assert.Equal(t, []int{0, 24, 49, 49, 49}, got)
	assert.Less(t, got[len(got)-1], MaxPercentile)
}

func TestRank_SingleAndEmpty(t *testing.T) {
	ranker := NewPercentileRanker(logger.Nop())

	single := ranker.Rank(scores("SPY", 100.0), nil)
	require.Len(t, single, 1)
	assert.Equal(t, MaxPercentile, single[0].Percentile)
	assert.Equal(t, 1, single[0].Rank)

	assert.Empty(t, ranker.Rank(nil, nil))
}

func TestRank_PassThroughAttributes(t *testing.T) {
	attrs := map[string]contracts.Ticker{
		"NVDA": {Symbol: "NVDA", Sector: "Technology", Industry: "Semiconductors", Exchange: "NMS", MarketCap: 3e12},
	}
	in := []contracts.ScoredTicker{{Symbol: "NVDA", RawScore: 180, Strength: 1.9}}

	e := NewPercentileRanker(logger.Nop()).Rank(in, attrs)[0]

	assert.Equal(t, "Technology", e.Sector)
	assert.Equal(t, "Semiconductors", e.Industry)
	assert.Equal(t, "NMS", e.Exchange)
	assert.Equal(t, 3e12, e.MarketCap)
	assert.Equal(t, 1.9, e.Strength)
}

func TestRank_Properties(t *testing.T) {
	ranker := NewPercentileRanker(logger.Nop())
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{2, 3, 7, 100, 2500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			in := make([]contracts.ScoredTicker, n)
			for i := range in {
				// 정수 점수로 동률 발생
				in[i] = contracts.ScoredTicker{
					Symbol:   fmt.Sprintf("T%04d", i),
					RawScore: float64(rng.Intn(n)) + 50,
				}
			}
			// 최소/최대 고유값 보장
			in[0].RawScore = 0
			in[n-1].RawScore = 1e6

			entries := ranker.Rank(in, nil)
			require.Len(t, entries, n)

			// 범위 및 최소/최대
			for _, e := range entries {
				assert.GreaterOrEqual(t, e.Percentile, 0)
				assert.LessOrEqual(t, e.Percentile, 99)
			}
			assert.Equal(t, 99, entries[0].Percentile)
			assert.Equal(t, 0, entries[n-1].Percentile)

			// 단조성: RawScore 내림차순이면 백분위도 비증가
			for i := 1; i < n; i++ {
				assert.GreaterOrEqual(t, entries[i-1].RawScore, entries[i].RawScore)
				assert.GreaterOrEqual(t, entries[i-1].Percentile, entries[i].Percentile)
				if entries[i-1].RawScore == entries[i].RawScore {
					assert.Equal(t, entries[i-1].Percentile, entries[i].Percentile)
					assert.Less(t, entries[i-1].Symbol, entries[i].Symbol)
				}
			}

			// 결정성: 입력 순서를 섞어도 동일
			shuffled := make([]contracts.ScoredTicker, n)
			copy(shuffled, in)
			rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			assert.Equal(t, entries, ranker.Rank(shuffled, nil))
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := scores("B", 2.0, "A", 1.0)
	NewPercentileRanker(logger.Nop()).Rank(in, nil)
	assert.Equal(t, "B", in[0].Symbol)
}

func TestFilterBySectorAndTop(t *testing.T) {
	entries := []contracts.RankedEntry{
		{Rank: 1, Symbol: "NVDA", Sector: "Technology"},
		{Rank: 2, Symbol: "LLY", Sector: "Healthcare"},
		{Rank: 3, Symbol: "AVGO", Sector: "Technology"},
	}

	assert.Equal(t, []string{"NVDA", "AVGO"}, symbols(FilterBySector(entries, "Technology")))
	assert.Empty(t, FilterBySector(entries, "Energy"))
	assert.Equal(t, []string{"NVDA", "LLY"}, symbols(Top(entries, 2)))
	assert.Len(t, Top(entries, 20), 3)
}

func TestRepository_Roundtrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	now := time.Now().UTC().Truncate(time.Second)
	run := &contracts.RankingRun{
		RunID:      uuid.New(),
		AsOf:       time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Benchmark:  "SPY",
		ConfigHash: "abc",
		Entries: []contracts.RankedEntry{
			{Rank: 1, Symbol: "B", RawScore: 120, Percentile: 99},
			{Rank: 2, Symbol: "A", RawScore: 80, Percentile: 0},
		},
		Faults: []contracts.ScoreFault{{Symbol: "X", Kind: contracts.FaultInvalidPrice, Detail: "x"}},
	}

	repo := NewRepository(pool)
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.Entries, got.Entries)
	assert.Equal(t, run.Faults, got.Faults)
}
