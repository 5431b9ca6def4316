package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/internal/s1_universe"
	"github.com/wonny/rsrank/internal/s2_rs"
	"github.com/wonny/rsrank/internal/selection"
	"github.com/wonny/rsrank/pkg/logger"
	"github.com/wonny/rsrank/pkg/metrics"
)

// Orchestrator coordinates universe → score → rank → report
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	cfg *rankconfig.Config

	// Stage components
	universeBuilder *s1_universe.Builder
	calculator      *s2_rs.Calculator
	ranker          *selection.PercentileRanker

	// Optional sinks (nil = skip)
	universeRepo contracts.UniverseStore
	runRepo      contracts.RunStore
	writer       contracts.TableWriter

	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time
}

// NewOrchestrator creates a new orchestrator for one ranking config
func NewOrchestrator(cfg *rankconfig.Config, m *metrics.Registry, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:             cfg,
		universeBuilder: s1_universe.NewBuilder(s1_universe.NewFilter(cfg), log),
		calculator:      s2_rs.NewCalculator(log),
		ranker:          selection.NewPercentileRanker(log),
		metrics:         m,
		logger:          log.Component("orchestrator"),
		now:             time.Now,
	}
}

// WithStores enables persistence of universes and runs
func (o *Orchestrator) WithStores(universes contracts.UniverseStore, runs contracts.RunStore) *Orchestrator {
	o.universeRepo = universes
	o.runRepo = runs
	return o
}

// WithWriter enables the display-table output
func (o *Orchestrator) WithWriter(w contracts.TableWriter) *Orchestrator {
	o.writer = w
	return o
}

// Config returns the thresholds this orchestrator runs with
func (o *Orchestrator) Config() *rankconfig.Config {
	return o.cfg
}

// Run executes one ranking over an immutable ticker set.
// A ConfigurationFault or a missing benchmark aborts before any scoring and nothing is written.
// Per-ticker faults drop the ticker and are reported on the run.
func (o *Orchestrator) Run(ctx context.Context, tickers map[string]contracts.Ticker) (*contracts.RankingRun, error) {
	run := &contracts.RankingRun{
		RunID:     uuid.New(),
		StartedAt: o.now(),
		Faults:    []contracts.ScoreFault{},
	}

	// 0. 설정 검증
	if err := rankconfig.Validate(o.cfg); err != nil {
		o.metrics.RecordRun("config_fault", o.now())
		return nil, fmt.Errorf("validate config: %w", err)
	}
	for _, w := range rankconfig.Warn(o.cfg) {
		o.logger.WithField("code", w.Code).Warn(w.Message)
	}

	hash, err := rankconfig.Hash(o.cfg)
	if err != nil {
		return nil, err
	}
	run.ConfigHash = hash

	o.logger.WithFields(map[string]interface{}{
		"run_id":    run.RunID.String(),
		"tickers":   len(tickers),
		"benchmark": o.cfg.ReferenceTicker,
		"workers":   o.cfg.Workers,
	}).Info("Starting ranking run")

	// 1. 벤치마크
	bench, err := o.benchmark(tickers)
	if err != nil {
		o.metrics.RecordRun("error", o.now())
		return nil, err
	}
	run.Benchmark = bench.Symbol
	run.AsOf = bench.AsOf

	// S1: Universe
	universe, err := o.runS1(ctx, bench.AsOf, tickers)
	if err != nil {
		o.metrics.RecordRun("error", o.now())
		return nil, fmt.Errorf("S1 failed: %w", err)
	}
	run.Universe = universe

	// S2: Score
	scored, faults, err := o.runS2(ctx, universe, tickers, bench)
	if err != nil {
		o.metrics.RecordRun("error", o.now())
		return nil, fmt.Errorf("S2 failed: %w", err)
	}
	run.Faults = faults

	// S3: Rank
	run.Entries = o.runS3(scored, tickers)
	run.Table = selection.FilterByPercentile(run.Entries, o.cfg.MinPercentile)
	run.FinishedAt = o.now()

	o.recordMetrics(tickers, run)

	// S4: Persist + report
	if err := o.runS4(ctx, run); err != nil {
		o.metrics.RecordRun("error", run.FinishedAt)
		return run, fmt.Errorf("S4 failed: %w", err)
	}

	o.metrics.RecordRun("success", run.FinishedAt)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   run.RunID.String(),
		"as_of":    run.AsOf.Format("2006-01-02"),
		"admitted": universe.Count(),
		"ranked":   len(run.Entries),
		"table":    len(run.Table),
		"faults":   len(run.Faults),
		"duration": run.Duration().Seconds(),
	}).Info("Ranking run completed")

	return run, nil
}

// benchmark locates the reference ticker and computes B
func (o *Orchestrator) benchmark(tickers map[string]contracts.Ticker) (*s2_rs.Benchmark, error) {
	symbol := contracts.NormalizeSymbol(o.cfg.ReferenceTicker)

	t, ok := tickers[symbol]
	if !ok {
		return nil, fmt.Errorf("locate %s: %w", symbol, contracts.ErrBenchmarkMissing)
	}

	bench, err := o.calculator.Benchmark(t)
	if err != nil {
		return nil, fmt.Errorf("compute benchmark: %w", err)
	}
	return bench, nil
}

// runS1 executes S1: Universe Generation
func (o *Orchestrator) runS1(ctx context.Context, asOf time.Time, tickers map[string]contracts.Ticker) (*contracts.Universe, error) {
	timer := o.metrics.StartStepTimer(string(contracts.StageUniverse))

	universe := o.universeBuilder.Build(asOf, tickers)

	if o.universeRepo != nil {
		if err := o.universeRepo.SaveUniverse(ctx, universe); err != nil {
			timer.Stop("error")
			return nil, fmt.Errorf("save universe: %w", err)
		}
	}

	timer.Stop("success")
	return universe, nil
}

// scoreSlot is written by exactly one scoring task
type scoreSlot struct {
	scored contracts.ScoredTicker
	err    error
}

// runS2 scores admitted tickers on a bounded errgroup.
// Each task owns one slot; the Wait barrier precedes ranking.
func (o *Orchestrator) runS2(ctx context.Context, universe *contracts.Universe, tickers map[string]contracts.Ticker, bench *s2_rs.Benchmark) ([]contracts.ScoredTicker, []contracts.ScoreFault, error) {
	timer := o.metrics.StartStepTimer(string(contracts.StageScore))

	slots := make([]scoreSlot, len(universe.Admitted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for i, symbol := range universe.Admitted {
		i := i
		t := tickers[symbol]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := o.calculator.Score(t, bench)
			slots[i] = scoreSlot{scored: s, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		timer.Stop("error")
		return nil, nil, fmt.Errorf("score tickers: %w", err)
	}

	scored := make([]contracts.ScoredTicker, 0, len(slots))
	faults := make([]contracts.ScoreFault, 0)
	for i, slot := range slots {
		symbol := universe.Admitted[i]
		if slot.err != nil {
			fault := contracts.NewScoreFault(symbol, slot.err)
			faults = append(faults, fault)
			o.metrics.RecordFault(fault.Kind)
			o.logger.WithError(slot.err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"kind":   fault.Kind,
			}).Warn("Ticker dropped from ranking")
			continue
		}
		scored = append(scored, slot.scored)
	}

	o.logger.WithFields(map[string]interface{}{
		"admitted": len(slots),
		"scored":   len(scored),
		"faults":   len(faults),
	}).Info("Scoring completed")

	timer.Stop("success")
	return scored, faults, nil
}

// runS3 executes S3: Percentile Ranking
func (o *Orchestrator) runS3(scored []contracts.ScoredTicker, tickers map[string]contracts.Ticker) []contracts.RankedEntry {
	timer := o.metrics.StartStepTimer(string(contracts.StageRank))
	entries := o.ranker.Rank(scored, tickers)
	timer.Stop("success")
	return entries
}

// runS4 persists the run and writes the display table
func (o *Orchestrator) runS4(ctx context.Context, run *contracts.RankingRun) error {
	timer := o.metrics.StartStepTimer(string(contracts.StageReport))

	if o.runRepo != nil {
		if err := o.runRepo.SaveRun(ctx, run); err != nil {
			timer.Stop("error")
			return fmt.Errorf("save run: %w", err)
		}
	}

	if o.writer != nil {
		path, err := o.writer.Write(run.Table)
		if err != nil {
			timer.Stop("error")
			return fmt.Errorf("write table: %w", err)
		}
		o.logger.WithFields(map[string]interface{}{
			"path": path,
			"rows": len(run.Table),
		}).Info("Ranking table written")
	}

	timer.Stop("success")
	return nil
}

func (o *Orchestrator) recordMetrics(tickers map[string]contracts.Ticker, run *contracts.RankingRun) {
	o.metrics.SetTickers("input", len(tickers))
	o.metrics.SetTickers("admitted", run.Universe.Count())
	o.metrics.SetTickers("ranked", len(run.Entries))
	o.metrics.SetTickers("table", len(run.Table))

	counts := make(map[string]int)
	for reason, n := range run.Universe.ExclusionCounts() {
		counts[string(reason)] = n
	}
	o.metrics.SetExclusions(counts)
}
