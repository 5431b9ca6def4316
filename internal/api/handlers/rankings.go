package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/ranking"
	"github.com/wonny/rsrank/internal/s1_universe"
	"github.com/wonny/rsrank/internal/selection"
	"github.com/wonny/rsrank/pkg/logger"
)

// Runner executes one ranking run on demand
type Runner interface {
	Run(ctx context.Context) (*contracts.RankingRun, error)
}

// UniverseReader loads the most recent stored universe
type UniverseReader interface {
	GetLatestUniverse(ctx context.Context) (*contracts.Universe, error)
}

// RankingHandler handles ranking-related API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	runner        Runner
	runs          contracts.RunStore
	universes     UniverseReader
	minPercentile int
	logger        *logger.Logger

	mu     sync.RWMutex
	latest *contracts.RankingRun
}

// NewRankingHandler creates a new ranking handler.
// runs and universes may be nil; the handler then serves the last run it executed.
func NewRankingHandler(runner Runner, runs contracts.RunStore, universes UniverseReader, minPercentile int, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		runner:        runner,
		runs:          runs,
		universes:     universes,
		minPercentile: minPercentile,
		logger:        log.Component("api"),
	}
}

// RankingsResponse is the ranked table payload
type RankingsResponse struct {
	RunID         string                  `json:"run_id"`
	AsOf          string                  `json:"as_of"`
	Benchmark     string                  `json:"benchmark"`
	ConfigHash    string                  `json:"config_hash"`
	MinPercentile int                     `json:"min_percentile"`
	Sector        string                  `json:"sector,omitempty"`
	Total         int                     `json:"total"`
	Count         int                     `json:"count"`
	Entries       []contracts.RankedEntry `json:"entries"`
}

// RunResponse summarizes a finished ranking run
type RunResponse struct {
	RunID      string `json:"run_id"`
	AsOf       string `json:"as_of"`
	Admitted   int    `json:"admitted"`
	Ranked     int    `json:"ranked"`
	TableSize  int    `json:"table_size"`
	Faults     int    `json:"faults"`
	DurationMs int64  `json:"duration_ms"`
}

// SetLatest replaces the in-memory run served by the read endpoints
func (h *RankingHandler) SetLatest(run *contracts.RankingRun) {
	if run == nil {
		return
	}
	h.mu.Lock()
	h.latest = run
	h.mu.Unlock()
}

// GetRankings returns the ranked table of the latest run
// GET /api/rankings?min_percentile=80&sector=Technology
func (h *RankingHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	minPercentile := h.minPercentile
	if raw := r.URL.Query().Get("min_percentile"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 99 {
			respondError(w, http.StatusBadRequest, "min_percentile must be an integer in [0, 99]")
			return
		}
		minPercentile = v
	}
	sector := strings.TrimSpace(r.URL.Query().Get("sector"))

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	entries := selection.FilterByPercentile(run.Entries, minPercentile)
	if sector != "" {
		entries = selection.FilterBySector(entries, sector)
	}
	if entries == nil {
		entries = []contracts.RankedEntry{}
	}

	respondJSON(w, http.StatusOK, RankingsResponse{
		RunID:         run.RunID.String(),
		AsOf:          run.AsOf.Format("2006-01-02"),
		Benchmark:     run.Benchmark,
		ConfigHash:    run.ConfigHash,
		MinPercentile: minPercentile,
		Sector:        sector,
		Total:         len(run.Entries),
		Count:         len(entries),
		Entries:       entries,
	})
}

// GetRanking returns one symbol's entry from the full ranked set
// GET /api/rankings/{symbol}
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	symbol := contracts.NormalizeSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	entry, found := run.Find(symbol)
	if !found {
		respondError(w, http.StatusNotFound, "symbol not ranked: "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// GetUniverse returns the latest admitted universe
// GET /api/universe
func (h *RankingHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest != nil && latest.Universe != nil {
		respondJSON(w, http.StatusOK, latest.Universe)
		return
	}

	if h.universes == nil {
		respondError(w, http.StatusNotFound, "no universe available")
		return
	}

	universe, err := h.universes.GetLatestUniverse(r.Context())
	if errors.Is(err, s1_universe.ErrNoUniverse) {
		respondError(w, http.StatusNotFound, "no universe available")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, universe)
}

// TriggerRun executes a ranking run synchronously
// POST /api/rankings/run
func (h *RankingHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "ranking runner not configured")
		return
	}

	run, err := h.runner.Run(r.Context())
	switch {
	case errors.Is(err, ranking.ErrRunInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case contracts.IsConfigurationFault(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil && run == nil:
		h.logger.WithError(err).Error("Ranking run failed")
		respondError(w, http.StatusInternalServerError, "Ranking run failed")
		return
	case err != nil:
		// 순위는 계산됨, 저장/출력만 실패
		h.logger.WithError(err).Warn("Ranking run finished with output errors")
	}

	h.SetLatest(run)

	admitted := 0
	if run.Universe != nil {
		admitted = run.Universe.Count()
	}

	respondJSON(w, http.StatusOK, RunResponse{
		RunID:      run.RunID.String(),
		AsOf:       run.AsOf.Format("2006-01-02"),
		Admitted:   admitted,
		Ranked:     len(run.Entries),
		TableSize:  len(run.Table),
		Faults:     len(run.Faults),
		DurationMs: run.Duration().Milliseconds(),
	})
}

// latestRun resolves the in-memory run, then the store; it writes the error response itself
func (h *RankingHandler) latestRun(w http.ResponseWriter, r *http.Request) (*contracts.RankingRun, bool) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest != nil {
		return latest, true
	}

	if h.runs == nil {
		respondError(w, http.StatusNotFound, "no ranking run available")
		return nil, false
	}

	run, err := h.runs.LatestRun(r.Context())
	if errors.Is(err, selection.ErrNoRuns) {
		respondError(w, http.StatusNotFound, "no ranking run available")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ranking run")
		return nil, false
	}

	return run, true
}
