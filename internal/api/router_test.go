package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsrank/internal/api/handlers"
	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/ranking"
	"github.com/wonny/rsrank/internal/s1_universe"
	"github.com/wonny/rsrank/internal/selection"
	"github.com/wonny/rsrank/pkg/logger"
	"github.com/wonny/rsrank/pkg/metrics"
)

type fakeRunner struct {
	run   *contracts.RankingRun
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context) (*contracts.RankingRun, error) {
	f.calls++
	return f.run, f.err
}

type fakeRunStore struct {
	mu  sync.Mutex
	run *contracts.RankingRun
}

func (f *fakeRunStore) SaveRun(ctx context.Context, run *contracts.RankingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.run = run
	return nil
}

func (f *fakeRunStore) LatestRun(ctx context.Context) (*contracts.RankingRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.run == nil {
		return nil, selection.ErrNoRuns
	}
	return f.run, nil
}

type fakeUniverses struct {
	universe *contracts.Universe
}

func (f *fakeUniverses) GetLatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	if f.universe == nil {
		return nil, s1_universe.ErrNoUniverse
	}
	return f.universe, nil
}

func sampleRun() *contracts.RankingRun {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	entries := []contracts.RankedEntry{
		{Rank: 1, Symbol: "NVDA", RawScore: 140, Percentile: 99, Sector: "Technology"},
		{Rank: 2, Symbol: "JPM", RawScore: 115, Percentile: 66, Sector: "Financial Services"},
		{Rank: 3, Symbol: "SPY", RawScore: 100, Percentile: 33, Sector: "Unknown"},
		{Rank: 4, Symbol: "XOM", RawScore: 80, Percentile: 0, Sector: "Energy"},
	}
	return &contracts.RankingRun{
		RunID:      uuid.New(),
		AsOf:       asOf,
		StartedAt:  asOf,
		FinishedAt: asOf.Add(2 * time.Second),
		Benchmark:  "SPY",
		ConfigHash: "abc123",
		Universe: &contracts.Universe{
			AsOf:       asOf,
			Admitted:   []string{"JPM", "NVDA", "SPY", "XOM"},
			Excluded:   map[string]contracts.RejectReason{"TINY": contracts.ReasonLowVolume},
			TotalCount: 5,
		},
		Entries: entries,
		Table:   entries[:2],
		Faults:  []contracts.ScoreFault{{Symbol: "BAD", Kind: contracts.FaultInvalidPrice}},
	}
}

func newTestRouter(runner handlers.Runner, runs contracts.RunStore, universes handlers.UniverseReader) http.Handler {
	h := handlers.NewRankingHandler(runner, runs, universes, 50, logger.Nop())
	return NewRouter(h, metrics.New(), logger.Nop())
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := do(t, router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.RecordRun("success", time.Now())
	h := handlers.NewRankingHandler(nil, nil, nil, 50, logger.Nop())
	router := NewRouter(h, m, logger.Nop())

	rec := do(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rsrank_runs_total")
}

func TestGetRankings_NoRun(t *testing.T) {
	tests := []struct {
		name string
		runs contracts.RunStore
	}{
		{name: "no store", runs: nil},
		{name: "empty store", runs: &fakeRunStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(nil, tt.runs, nil)
			rec := do(t, router, http.MethodGet, "/api/rankings")
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestGetRankings_Filters(t *testing.T) {
	store := &fakeRunStore{run: sampleRun()}
	router := newTestRouter(nil, store, nil)

	tests := []struct {
		name    string
		query   string
		status  int
		symbols []string
	}{
		{name: "default min percentile", query: "", status: http.StatusOK, symbols: []string{"NVDA", "JPM"}},
		{name: "explicit zero keeps all", query: "?min_percentile=0", status: http.StatusOK, symbols: []string{"NVDA", "JPM", "SPY", "XOM"}},
		{name: "sector filter", query: "?min_percentile=0&sector=Energy", status: http.StatusOK, symbols: []string{"XOM"}},
		{name: "sector with default percentile", query: "?sector=Technology", status: http.StatusOK, symbols: []string{"NVDA"}},
		{name: "nothing passes", query: "?min_percentile=99&sector=Energy", status: http.StatusOK, symbols: []string{}},
		{name: "out of range", query: "?min_percentile=120", status: http.StatusBadRequest},
		{name: "not a number", query: "?min_percentile=high", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/rankings"+tt.query)
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}

			var body handlers.RankingsResponse
			decode(t, rec, &body)

			got := make([]string, 0, len(body.Entries))
			for _, e := range body.Entries {
				got = append(got, e.Symbol)
			}
			assert.Equal(t, tt.symbols, got)
			assert.Equal(t, 4, body.Total)
			assert.Equal(t, "2025-06-02", body.AsOf)
			assert.Equal(t, "SPY", body.Benchmark)
		})
	}
}

func TestGetRanking_Symbol(t *testing.T) {
	router := newTestRouter(nil, &fakeRunStore{run: sampleRun()}, nil)

	rec := do(t, router, http.MethodGet, "/api/rankings/nvda")
	require.Equal(t, http.StatusOK, rec.Code)

	var entry contracts.RankedEntry
	decode(t, rec, &entry)
	assert.Equal(t, "NVDA", entry.Symbol)
	assert.Equal(t, 99, entry.Percentile)

	// 전체 순위 집합에서 조회 (MIN_PERCENTILE 무관)
	rec = do(t, router, http.MethodGet, "/api/rankings/XOM")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/rankings/ZZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUniverse(t *testing.T) {
	t.Run("from store", func(t *testing.T) {
		u := sampleRun().Universe
		router := newTestRouter(nil, nil, &fakeUniverses{universe: u})

		rec := do(t, router, http.MethodGet, "/api/universe")
		require.Equal(t, http.StatusOK, rec.Code)

		var got contracts.Universe
		decode(t, rec, &got)
		assert.Equal(t, u.Admitted, got.Admitted)
		assert.Equal(t, contracts.ReasonLowVolume, got.Excluded["TINY"])
	})

	t.Run("empty store", func(t *testing.T) {
		router := newTestRouter(nil, nil, &fakeUniverses{})
		rec := do(t, router, http.MethodGet, "/api/universe")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no store", func(t *testing.T) {
		router := newTestRouter(nil, nil, nil)
		rec := do(t, router, http.MethodGet, "/api/universe")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTriggerRun(t *testing.T) {
	run := sampleRun()
	runner := &fakeRunner{run: run}
	router := newTestRouter(runner, nil, nil)

	// 실행 전에는 조회할 결과가 없음
	rec := do(t, router, http.MethodGet, "/api/rankings")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/rankings/run")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)

	var body handlers.RunResponse
	decode(t, rec, &body)
	assert.Equal(t, run.RunID.String(), body.RunID)
	assert.Equal(t, 4, body.Admitted)
	assert.Equal(t, 4, body.Ranked)
	assert.Equal(t, 2, body.TableSize)
	assert.Equal(t, 1, body.Faults)
	assert.Equal(t, int64(2000), body.DurationMs)

	// 실행 결과는 메모리에서 바로 조회됨
	rec = do(t, router, http.MethodGet, "/api/rankings")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/universe")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		runner handlers.Runner
		status int
	}{
		{name: "not configured", runner: nil, status: http.StatusServiceUnavailable},
		{name: "in progress", runner: &fakeRunner{err: ranking.ErrRunInProgress}, status: http.StatusConflict},
		{
			name:   "configuration fault",
			runner: &fakeRunner{err: &contracts.ConfigurationFault{Field: "MIN_PERCENTILE", Message: "must be <= 99"}},
			status: http.StatusUnprocessableEntity,
		},
		{name: "benchmark missing", runner: &fakeRunner{err: contracts.ErrBenchmarkMissing}, status: http.StatusInternalServerError},
		{
			name:   "output failure still returns run",
			runner: &fakeRunner{run: sampleRun(), err: assert.AnError},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.runner, nil, nil)
			rec := do(t, router, http.MethodPost, "/api/rankings/run")
			assert.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				assert.True(t, strings.Contains(rec.Body.String(), "error"))
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		// GET /api/rankings/run 은 심볼 조회로 라우팅됨 (실행 결과 없음)
		{name: "get run path is a symbol lookup", method: http.MethodGet, target: "/api/rankings/run", status: http.StatusNotFound},
		{name: "delete rankings", method: http.MethodDelete, target: "/api/rankings", status: http.StatusMethodNotAllowed},
		{name: "post universe", method: http.MethodPost, target: "/api/universe", status: http.StatusMethodNotAllowed},
		{name: "put run", method: http.MethodPut, target: "/api/rankings/run", status: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, target: "/api/unknown", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
