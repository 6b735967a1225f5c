package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/markdave123-py/filingscope/internal/config"
	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/core/bondfinder"
	"github.com/markdave123-py/filingscope/internal/core/cache"
	db "github.com/markdave123-py/filingscope/internal/core/database"
	"github.com/markdave123-py/filingscope/internal/core/edgar"
	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
	"github.com/markdave123-py/filingscope/internal/core/llm"
	objectclient "github.com/markdave123-py/filingscope/internal/core/object-client"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
	"github.com/markdave123-py/filingscope/internal/services"
)

const (
	ingestQueueSize  = 64
	ingestJobTimeout = 30 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

type App struct {
	cfg *config.Config
	log *logger.Logger

	DBClient  core.DbClient
	Cache     *cache.RedisCache
	Embedder  *llm.LazyEmbedder
	LLM       *llm.GeminiLLM
	Queue     *ingestion_engine.IngestQueue
	Companies *services.CompanyService
	Filings   *services.FilingService
	Bonds     *services.BondService
	Server    *Server
}

// NewApp connects the stores and wires every service. Redis, S3 and the
// answer model are optional and skipped with a warning when unconfigured.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{cfg: cfg, log: log}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	log.Info("database initialized and ready")

	edgarOpts := []edgar.ClientOption{
		edgar.WithDataBaseURL(cfg.EdgarDataBaseURL),
		edgar.WithArchivesBaseURL(cfg.EdgarArchivesURL),
		edgar.WithTickersURL(cfg.EdgarTickersURL),
		edgar.WithRateLimit(cfg.EdgarRateLimit),
		edgar.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		edgar.WithLogger(log),
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(appCtx, cfg.RedisURL, "filingscope:")
		if err != nil {
			log.Warn("filing index cache disabled", "error", err)
		} else {
			a.Cache = rc
			edgarOpts = append(edgarOpts, edgar.WithIndexCache(rc, cfg.IndexCacheTTL))
			log.Info("filing index cache ready", "ttl", cfg.IndexCacheTTL)
		}
	}
	edgarClient := edgar.NewClient(cfg.SECUserAgent, edgarOpts...)

	ingCfg := &ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.EmbedBatchSize,
		EmbedDim:     cfg.EmbedDim,
		EmbedTimeout: cfg.EmbedTimeout,
		Concurrency:  cfg.IngestConcurrency,
	}

	a.Embedder = llm.NewGeminiLazyEmbedder(cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedBatchSize)
	sink := ingestion_engine.NewEmbeddingSink(dbClient, a.Embedder, ingCfg)

	orchOpts := []ingestion_engine.OrchestratorOption{ingestion_engine.WithLogger(log)}
	if cfg.ArchiveEnabled() {
		objClient, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			log.Warn("raw filing archive disabled", "error", err)
		} else {
			orchOpts = append(orchOpts, ingestion_engine.WithArchive(objClient, objClient.Bucket(), objectclient.FilingKey))
			log.Info("raw filing archive ready", "bucket", objClient.Bucket())
		}
	}

	useReadability := false
	orchestrator := ingestion_engine.NewOrchestrator(
		edgarClient, edgarClient, dbClient,
		ingestion_engine.NewDocconvExtractor(useReadability),
		sink, ingCfg, orchOpts...,
	)
	a.Queue = ingestion_engine.NewIngestQueue(orchestrator, ingestQueueSize, ingestJobTimeout, log)

	var answerer core.LLMProvider
	gen, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		log.Warn("answer generation disabled", "error", err)
	} else {
		a.LLM = gen
		answerer = gen
	}

	a.Companies = services.NewCompanyService(dbClient, edgarClient, log)
	a.Filings = services.NewFilingService(edgarClient, orchestrator, orchestrator, dbClient, a.Companies, answerer, a.Queue, log)

	bondClient := bondfinder.NewClient(
		bondfinder.WithFinderURL(cfg.BondFinderURL),
		bondfinder.WithMaxPages(cfg.BondMaxPages),
		bondfinder.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		bondfinder.WithLogger(log),
	)
	a.Bonds = services.NewBondService(bondClient, a.Companies, log)

	a.Server = NewServer(cfg.Port, log, a.Companies, a.Filings, a.Bonds)
	return a, nil
}

// Run serves HTTP, the background ingest workers, and the optional refresh
// schedule until ctx is cancelled, then shuts them down in reverse order.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	a.Queue.Start(workerCtx, a.cfg.IngestConcurrency)

	var sched *Scheduler
	if a.cfg.CompanyRefreshCron != "" {
		sched = NewScheduler(a.Companies, a.log)
		if err := sched.Start(a.cfg.CompanyRefreshCron); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("http server: %w", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	stopWorkers()
	a.Queue.Wait()
	return serveErr
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
}
