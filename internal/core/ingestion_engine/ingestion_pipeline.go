package ingestion_engine

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

// Orchestrator drives a company ingestion: locate, dedup, fetch, extract,
// record metadata, chunk, embed.
type Orchestrator struct {
	locator   FilingLocator
	fetcher   DocumentFetcher
	dedup     *DedupGate
	recorder  *MetadataRecorder
	extractor core.DocumentExtractor
	sink      *EmbeddingSink
	cfg       *IngestConfig
	log       *logger.Logger
	now       func() time.Time

	archive       core.ObjectClient
	archiveBucket string
	archiveKey    func(models.FilingLocation) string
}

type OrchestratorOption func(*Orchestrator)

// WithArchive uploads each fetched body to bucket under keyFn(loc).
func WithArchive(obj core.ObjectClient, bucket string, keyFn func(models.FilingLocation) string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.archive = obj
		o.archiveBucket = bucket
		o.archiveKey = keyFn
	}
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithLogger(log *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

func NewOrchestrator(
	locator FilingLocator,
	fetcher DocumentFetcher,
	store core.MetadataStore,
	extractor core.DocumentExtractor,
	sink *EmbeddingSink,
	cfg *IngestConfig,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		locator:   locator,
		fetcher:   fetcher,
		dedup:     NewDedupGate(store),
		recorder:  NewMetadataRecorder(store),
		extractor: extractor,
		sink:      sink,
		cfg:       cfg.withDefaults(),
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var _ Ingestor = (*Orchestrator)(nil)

// IngestCompany returns the number of documents newly ingested.
func (o *Orchestrator) IngestCompany(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (int, error) {
	rep, err := o.Ingest(ctx, companyKey, forms, overwrite)
	if err != nil {
		return 0, err
	}
	return rep.Ingested, nil
}

// Ingest processes the latest filing of each form. Fetch, extraction and
// embedding failures only fail their document. A not_found company or a
// persistence failure fails the call; the partial report is still returned
// for the latter.
func (o *Orchestrator) Ingest(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (*IngestReport, error) {
	if len(forms) == 0 {
		forms = models.DefaultTrackedForms
	}
	rep := &IngestReport{CompanyKey: companyKey, Overwrite: overwrite, StartedAt: o.now().UTC()}

	locs, err := o.locator.LocateLatest(ctx, companyKey, forms)
	if err != nil {
		o.log.Error("locate failed", "company_key", companyKey, "error", err)
		return nil, err
	}
	if len(locs) > 0 {
		rep.CompanyKey = locs[0].CompanyKey
	}

	rep.Documents = make([]DocumentOutcome, len(locs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i, loc := range locs {
		i, loc := i, loc
		g.Go(func() error {
			out, err := o.processOne(gctx, loc, overwrite)
			rep.Documents[i] = out
			return err
		})
	}
	err = g.Wait()

	rep.tally()
	rep.FinishedAt = o.now().UTC()
	o.log.Info("company ingestion finished",
		"company_key", rep.CompanyKey,
		"overwrite", overwrite,
		"located", len(locs),
		"ingested", rep.Ingested,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	if err != nil {
		return rep, err
	}
	return rep, nil
}

// processOne moves a single document through its states. The returned error
// is non-nil only for failures that must abort the whole ingestion.
func (o *Orchestrator) processOne(ctx context.Context, loc models.FilingLocation, overwrite bool) (DocumentOutcome, error) {
	log := o.log.With("company_key", loc.CompanyKey, "form_type", loc.FormType, "accession_id", loc.AccessionID)
	out := DocumentOutcome{Location: loc, State: StateLocated}

	fail := func(err error) DocumentOutcome {
		out.State = StateFailed
		out.Error = err.Error()
		return out
	}

	if !overwrite {
		done, err := o.dedup.AlreadyIngested(ctx, loc)
		if err != nil {
			log.Error("dedup check failed", "error", err)
			return fail(err), err
		}
		if done {
			log.Debug("already ingested, skipping")
			out.State = StateSkipped
			return out, nil
		}
	}

	body, err := o.fetcher.Fetch(ctx, loc)
	if err != nil {
		log.Warn("fetch failed", "status", core.StatusCodeOf(err), "error", err)
		return fail(err), nil
	}
	out.State = StateFetched

	o.archiveBody(ctx, log, loc, body)

	text, err := o.extractor.ExtractText(ctx, []byte(body), "text/html")
	if err != nil {
		log.Warn("text extraction failed", "error", err)
		return fail(err), nil
	}

	recordID, err := o.recorder.Record(ctx, loc, o.now().UTC())
	if err != nil {
		if core.IsKind(err, core.KindDuplicate) {
			log.Info("document recorded concurrently, skipping")
			out.State = StateSkipped
			return out, nil
		}
		log.Error("metadata record failed", "error", err)
		return fail(err), err
	}
	out.State = StateMetadataRecorded
	out.RecordID = recordID

	chunks := SplitText(text, o.cfg.ChunkSize, o.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		log.Warn("document has no text, recorded without chunks", "record_id", recordID)
		out.State = StateEmbedded
		return out, nil
	}

	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		metadatas[i] = map[string]any{
			"document_metadata_id": recordID,
			"company_key":          loc.CompanyKey,
			"form_type":            string(loc.FormType),
			"accession_id":         loc.AccessionID,
		}
	}
	if err := o.sink.EmbedAndStore(ctx, chunks, metadatas); err != nil {
		log.Error("embedding failed, metadata kept without chunks", "record_id", recordID, "chunks", len(chunks), "error", err)
		return fail(err), nil
	}

	out.State = StateEmbedded
	out.ChunkCount = len(chunks)
	log.Info("document ingested", "record_id", recordID, "chunks", len(chunks))
	return out, nil
}

// archiveBody stores the raw document when an archive is configured. Failures
// are logged only.
func (o *Orchestrator) archiveBody(ctx context.Context, log *logger.Logger, loc models.FilingLocation, body string) {
	if o.archive == nil || o.archiveBucket == "" || o.archiveKey == nil {
		return
	}
	key := o.archiveKey(loc)
	if _, err := o.archive.UploadFile(ctx, o.archiveBucket, key, bytes.NewReader([]byte(body)), "text/html"); err != nil {
		log.Warn("archive upload failed", "key", key, "error", err)
	}
}

// Search delegates to the embedding sink.
func (o *Orchestrator) Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	return o.sink.Search(ctx, query, filter, k)
}
