// Package pipeline wires the ingestion and analysis stages together through
// explicit job queues. Stages never call each other directly: ingestion
// completes, decides analyzability, and drops a job on the analysis queue;
// workers on each queue run independently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dexiq/dexiq/internal/analysis"
	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/ingest"
)

// IngestJob asks for one ingestion pass over a token.
type IngestJob struct {
	TokenID int64
}

// AnalysisJob asks for one analysis run. ReferencePrice carries the user's
// purchase price when the job came from an explicit API request; pipeline
// jobs leave it nil.
type AnalysisJob struct {
	Token          domain.Token
	ReferencePrice *decimal.Decimal
}

// Config sizes the worker pools and queues.
type Config struct {
	IngestWorkers   int
	AnalysisWorkers int
	QueueSize       int
}

// Pipeline owns the job queues and worker pools. Enqueue methods are
// non-blocking: a full queue drops the job and returns false, callers decide
// whether that matters.
type Pipeline struct {
	tokens       domain.TokenStore
	orchestrator *ingest.Orchestrator
	trigger      *analysis.Trigger

	ingestJobs   chan IngestJob
	analysisJobs chan AnalysisJob

	ingestWorkers   int
	analysisWorkers int
	logger          *slog.Logger
}

// New creates the pipeline. The ingest orchestrator's analysis hand-off
// should point back at this pipeline via EnqueueAnalysis.
func New(tokens domain.TokenStore, orchestrator *ingest.Orchestrator, trigger *analysis.Trigger, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		tokens:          tokens,
		orchestrator:    orchestrator,
		trigger:         trigger,
		ingestJobs:      make(chan IngestJob, cfg.QueueSize),
		analysisJobs:    make(chan AnalysisJob, cfg.QueueSize),
		ingestWorkers:   cfg.IngestWorkers,
		analysisWorkers: cfg.AnalysisWorkers,
		logger:          logger.With("component", "pipeline"),
	}
}

// EnqueueIngest schedules an ingestion pass for a token.
func (p *Pipeline) EnqueueIngest(tokenID int64) bool {
	select {
	case p.ingestJobs <- IngestJob{TokenID: tokenID}:
		return true
	default:
		p.logger.Warn("ingest queue full, job dropped", "token_id", tokenID)
		return false
	}
}

// EnqueueAnalysis schedules an analysis run with no reference price. It
// satisfies the ingest orchestrator's hand-off interface.
func (p *Pipeline) EnqueueAnalysis(token domain.Token) bool {
	return p.EnqueueAnalysisWithPrice(token, nil)
}

// EnqueueAnalysisWithPrice schedules an analysis run for an explicit request
// carrying the user's purchase price.
func (p *Pipeline) EnqueueAnalysisWithPrice(token domain.Token, referencePrice *decimal.Decimal) bool {
	select {
	case p.analysisJobs <- AnalysisJob{Token: token, ReferencePrice: referencePrice}:
		return true
	default:
		p.logger.Warn("analysis queue full, job dropped", "token_id", token.ID)
		return false
	}
}

// Run starts the worker pools and blocks until ctx is cancelled. Workers
// drain jobs continuously; a failed job is logged and never stops its pool.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline starting",
		"ingest_workers", p.ingestWorkers, "analysis_workers", p.analysisWorkers)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.ingestWorkers; i++ {
		worker := i
		g.Go(func() error {
			p.runIngestWorker(ctx, worker)
			return nil
		})
	}

	for i := 0; i < p.analysisWorkers; i++ {
		worker := i
		g.Go(func() error {
			p.runAnalysisWorker(ctx, worker)
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("pipeline stopped")
	return err
}

func (p *Pipeline) runIngestWorker(ctx context.Context, worker int) {
	logger := p.logger.With("worker", fmt.Sprintf("ingest-%d", worker))
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.ingestJobs:
			token, err := p.tokens.GetByID(ctx, job.TokenID)
			if err != nil {
				logger.Error("token resolution failed, pass aborted",
					"token_id", job.TokenID, "error", err)
				continue
			}
			p.orchestrator.Run(ctx, token)
		}
	}
}

func (p *Pipeline) runAnalysisWorker(ctx context.Context, worker int) {
	logger := p.logger.With("worker", fmt.Sprintf("analysis-%d", worker))
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.analysisJobs:
			if _, err := p.trigger.Run(ctx, job.Token, job.ReferencePrice); err != nil {
				logger.Error("analysis job failed", "token_id", job.Token.ID, "error", err)
			}
		}
	}
}
