package ingestion_engine

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

// IngestJob is a queued company ingestion.
type IngestJob struct {
	CompanyKey string
	Forms      []models.FormType
	Overwrite  bool
}

// IngestQueue runs company ingestions in the background on a fixed set of
// workers reading from a bounded channel.
type IngestQueue struct {
	ingestor   Ingestor
	jobs       chan IngestJob
	jobTimeout time.Duration
	log        *logger.Logger
	wg         sync.WaitGroup
}

// NewIngestQueue constructs a queue holding at most size pending jobs.
func NewIngestQueue(ingestor Ingestor, size int, jobTimeout time.Duration, log *logger.Logger) *IngestQueue {
	if size <= 0 {
		size = 64
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &IngestQueue{
		ingestor:   ingestor,
		jobs:       make(chan IngestJob, size),
		jobTimeout: jobTimeout,
		log:        log.With("component", "ingest_queue"),
	}
}

// Start launches numWorkers goroutines that stop when ctx is done.
func (q *IngestQueue) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		q.wg.Add(1)
		go func(w int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					q.log.Debug("worker shutting down", "worker", w)
					return
				case job := <-q.jobs:
					q.run(ctx, w, job)
				}
			}
		}(w)
	}
}

func (q *IngestQueue) run(ctx context.Context, worker int, job IngestJob) {
	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	q.log.Info("ingesting company", "worker", worker, "company_key", job.CompanyKey, "overwrite", job.Overwrite)
	rep, err := q.ingestor.Ingest(jobCtx, job.CompanyKey, job.Forms, job.Overwrite)
	if err != nil {
		q.log.Error("queued ingestion failed", "company_key", job.CompanyKey, "error", err)
		return
	}
	q.log.Info("queued ingestion done", "company_key", rep.CompanyKey, "ingested", rep.Ingested)
}

// Enqueue schedules a job without blocking. A full queue is a precondition error.
func (q *IngestQueue) Enqueue(job IngestJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return core.NewError("ingest_queue.enqueue", core.KindPrecondition, "ingest queue is full", nil)
	}
}

// Wait blocks until every worker has returned.
func (q *IngestQueue) Wait() {
	q.wg.Wait()
}
