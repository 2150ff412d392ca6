package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dexiq/dexiq/internal/domain"
)

// AnalysisEnqueuer accepts fire-and-forget analysis jobs. EnqueueAnalysis
// reports whether the job was accepted; a full queue is not an ingestion
// failure.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(token domain.Token) bool
}

// SourceResult is the outcome of one source fetch within a pass.
type SourceResult struct {
	Source   string
	Inserted int
	Err      error
}

// PassReport summarises one orchestration pass over all sources.
type PassReport struct {
	TokenID  int64
	Results  []SourceResult
	Inserted int
	// AnalysisEnqueued is set when the post-pass readiness check found the
	// token analyzable and a job was handed to the enqueuer.
	AnalysisEnqueued bool
}

// Failed returns the results of sources that errored.
func (r *PassReport) Failed() []SourceResult {
	var failed []SourceResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Orchestrator runs every source for a token concurrently. Source failures
// are isolated: a pass only fails outright when the token itself cannot be
// resolved, which the caller handles before invoking Run.
type Orchestrator struct {
	sources  []Source
	metadata domain.MetadataSnapshotStore
	candles  domain.CandleStore
	enqueuer AnalysisEnqueuer
	logger   *slog.Logger
}

// NewOrchestrator creates the orchestrator. enqueuer may be nil, in which
// case the post-pass analysis hand-off is disabled.
func NewOrchestrator(
	sources []Source,
	metadata domain.MetadataSnapshotStore,
	candles domain.CandleStore,
	enqueuer AnalysisEnqueuer,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sources:  sources,
		metadata: metadata,
		candles:  candles,
		enqueuer: enqueuer,
		logger:   logger.With("component", "ingest"),
	}
}

// Run executes one ingestion pass for the token and, when the token ends the
// pass analyzable, enqueues an analysis job.
func (o *Orchestrator) Run(ctx context.Context, token domain.Token) PassReport {
	report := PassReport{
		TokenID: token.ID,
		Results: make([]SourceResult, len(o.sources)),
	}

	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			n, err := src.Fetch(ctx, &token)
			report.Results[i] = SourceResult{Source: src.Name(), Inserted: n, Err: err}
		}(i, src)
	}
	wg.Wait()

	for _, res := range report.Results {
		report.Inserted += res.Inserted
		if res.Err != nil {
			o.logger.Error("source fetch failed",
				"token_id", token.ID, "source", res.Source, "error", res.Err)
		}
	}

	if o.enqueuer != nil {
		ready, err := o.readyForAnalysis(ctx, token.ID)
		if err != nil {
			o.logger.Error("post-pass readiness check failed", "token_id", token.ID, "error", err)
		} else if ready {
			report.AnalysisEnqueued = o.enqueuer.EnqueueAnalysis(token)
			if !report.AnalysisEnqueued {
				o.logger.Warn("analysis queue full, job dropped", "token_id", token.ID)
			}
		}
	}

	o.logger.Info("ingestion pass complete",
		"token_id", token.ID, "inserted", report.Inserted,
		"failed_sources", len(report.Failed()), "analysis_enqueued", report.AnalysisEnqueued)
	return report
}

// readyForAnalysis applies the analyzability gate: base-role metadata plus at
// least one stored candle.
func (o *Orchestrator) readyForAnalysis(ctx context.Context, tokenID int64) (bool, error) {
	hasBase, err := o.metadata.HasRole(ctx, tokenID, domain.RoleBase)
	if err != nil {
		return false, fmt.Errorf("ingest: has base metadata: %w", err)
	}
	if !hasBase {
		return false, nil
	}
	candleCount, err := o.candles.Count(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("ingest: candle count: %w", err)
	}
	return candleCount > 0, nil
}
