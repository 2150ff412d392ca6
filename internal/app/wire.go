package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dexiq/dexiq/internal/analysis"
	"github.com/dexiq/dexiq/internal/cache/redis"
	"github.com/dexiq/dexiq/internal/config"
	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/ingest"
	"github.com/dexiq/dexiq/internal/ledger"
	"github.com/dexiq/dexiq/internal/pipeline"
	"github.com/dexiq/dexiq/internal/platform/dexscreener"
	"github.com/dexiq/dexiq/internal/platform/geckoterminal"
	"github.com/dexiq/dexiq/internal/platform/openai"
	"github.com/dexiq/dexiq/internal/readiness"
	"github.com/dexiq/dexiq/internal/server"
	"github.com/dexiq/dexiq/internal/server/handler"
	"github.com/dexiq/dexiq/internal/server/ws"
	"github.com/dexiq/dexiq/internal/service"
	"github.com/dexiq/dexiq/internal/store/postgres"
)

// Dependencies bundles everything the running application needs: the pipeline,
// the API server and the WebSocket hub. It is constructed by Wire and torn
// down by the returned cleanup function.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Server   *server.Server
	WSHub    *ws.Hub
	Bus      domain.StatusBus
}

// Wire constructs every concrete dependency from the configuration. The
// returned cleanup releases connections in reverse construction order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	tokens := postgres.NewTokenStore(pool)
	tickers := postgres.NewTickerSnapshotStore(pool)
	metadata := postgres.NewMetadataSnapshotStore(pool)
	candles := postgres.NewCandleStore(pool)
	transactions := postgres.NewTransactionStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	analysisCache := redis.NewAnalysisCache(redisClient, cfg.Analysis.CacheTTL())
	statusBus := redis.NewStatusBus(redisClient)

	// --- External source clients ---
	dexClient := dexscreener.NewClient(dexscreener.ClientConfig{
		BaseURL:        cfg.Sources.DexScreenerHost,
		ConnectTimeout: cfg.Sources.ConnectTimeout(),
		RequestTimeout: cfg.Sources.RequestTimeout(),
		RetryCount:     cfg.Sources.RetryCount,
	})
	geckoClient := geckoterminal.NewClient(geckoterminal.ClientConfig{
		BaseURL:        cfg.Sources.GeckoTerminalHost,
		ConnectTimeout: cfg.Sources.ConnectTimeout(),
		RequestTimeout: cfg.Sources.RequestTimeout(),
		RetryCount:     cfg.Sources.RetryCount,
	})
	analyzer := openai.NewClient(openai.ClientConfig{
		BaseURL:     cfg.Analysis.Host,
		APIKey:      cfg.Analysis.APIKey,
		Model:       cfg.Analysis.Model,
		MaxInsights: cfg.Analysis.MaxInsights,
		Timeout:     cfg.Analysis.Timeout(),
	})

	// --- Pipeline stages ---
	evaluator := readiness.NewEvaluator(tickers, metadata, candles)

	sources := []ingest.Source{
		ingest.NewTickerSource(dexClient, tickers, cfg.Sources.Staleness(), logger),
		ingest.NewMetadataSource(geckoClient, metadata, cfg.Sources.Staleness(), logger),
		ingest.NewCandleSource(geckoClient, candles, cfg.Sources.CandlePageLimit, logger),
	}

	trigger := analysis.NewTrigger(tickers, metadata, candles, evaluator, analyzer, analysisCache, statusBus, logger)

	// The orchestrator's analysis hand-off points at the pipeline, which is
	// constructed right after; wire through a late-bound forwarder.
	forwarder := &enqueueForwarder{}
	orchestrator := ingest.NewOrchestrator(sources, metadata, candles, forwarder, logger)

	pipe := pipeline.New(tokens, orchestrator, trigger, pipeline.Config{
		IngestWorkers:   cfg.Pipeline.IngestWorkers,
		AnalysisWorkers: cfg.Pipeline.AnalysisWorkers,
		QueueSize:       cfg.Pipeline.QueueSize,
	}, logger)
	forwarder.pipeline = pipe

	// --- Services and API surface ---
	ledgerSvc := ledger.NewService(transactions, logger)
	tokenSvc := service.NewTokenService(tokens, tickers, evaluator, ledgerSvc, pipe, logger)

	wsHub := ws.NewHub(statusBus, logger)

	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(logger),
		Tokens:    handler.NewTokenHandler(tokenSvc, cfg.Server.DefaultUserID, logger),
		Positions: handler.NewPositionHandler(tokenSvc, cfg.Server.DefaultUserID, logger),
	}, wsHub, logger)

	return &Dependencies{
		Pipeline: pipe,
		Server:   srv,
		WSHub:    wsHub,
		Bus:      statusBus,
	}, cleanup, nil
}

// enqueueForwarder breaks the construction cycle between the ingest
// orchestrator and the pipeline that consumes its analysis jobs.
type enqueueForwarder struct {
	pipeline *pipeline.Pipeline
}

func (f *enqueueForwarder) EnqueueAnalysis(token domain.Token) bool {
	if f.pipeline == nil {
		return false
	}
	return f.pipeline.EnqueueAnalysis(token)
}
