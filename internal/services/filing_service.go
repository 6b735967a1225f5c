package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/core/edgar"
	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

const (
	DefaultSearchK = 5
	MaxSearchK     = 50

	askSystemPrompt = "You are a financial research assistant. Answer only from the SEC filing excerpts provided. " +
		"If the excerpts do not contain the answer, say 'I cannot find this in the filings.'"
)

// Searcher answers metadata-filtered similarity queries.
type Searcher interface {
	Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error)
}

// Answer is a generated reply with the excerpts it was grounded on.
type Answer struct {
	Answer  string               `json:"answer"`
	Sources []models.ScoredChunk `json:"sources"`
}

type FilingService struct {
	locator   ingestion_engine.FilingLocator
	ingestor  ingestion_engine.Ingestor
	searcher  Searcher
	documents core.MetadataStore
	companies *CompanyService
	llm       core.LLMProvider
	queue     *ingestion_engine.IngestQueue
	log       *logger.Logger
}

func NewFilingService(
	locator ingestion_engine.FilingLocator,
	ingestor ingestion_engine.Ingestor,
	searcher Searcher,
	documents core.MetadataStore,
	companies *CompanyService,
	llm core.LLMProvider,
	queue *ingestion_engine.IngestQueue,
	log *logger.Logger,
) *FilingService {
	if log == nil {
		log = logger.Nop()
	}
	return &FilingService{
		locator:   locator,
		ingestor:  ingestor,
		searcher:  searcher,
		documents: documents,
		companies: companies,
		llm:       llm,
		queue:     queue,
		log:       log.With("service", "filings"),
	}
}

func (s *FilingService) Locate(ctx context.Context, cik string, forms []models.FormType) ([]models.FilingLocation, error) {
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}
	if len(forms) == 0 {
		forms = models.DefaultTrackedForms
	}
	return s.locator.LocateLatest(ctx, key, forms)
}

// Ingest runs a full company ingestion and returns its report.
func (s *FilingService) Ingest(ctx context.Context, cik string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error) {
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}
	return s.ingestor.Ingest(ctx, key, forms, overwrite)
}

// IngestCompany returns the number of documents newly ingested.
func (s *FilingService) IngestCompany(ctx context.Context, cik string, forms []models.FormType, overwrite bool) (int, error) {
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return 0, err
	}
	return s.ingestor.IngestCompany(ctx, key, forms, overwrite)
}

// IngestByName resolves a company name and ingests its default forms.
func (s *FilingService) IngestByName(ctx context.Context, name string, overwrite bool) (*ingestion_engine.IngestReport, error) {
	co, err := s.companies.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	s.log.Info("resolved company", "name", name, "company_key", co.CompanyKey, "ticker", co.Ticker)
	return s.ingestor.Ingest(ctx, co.CompanyKey, models.DefaultTrackedForms, overwrite)
}

// EnqueueIngest schedules a background ingestion.
func (s *FilingService) EnqueueIngest(cik string, forms []models.FormType, overwrite bool) (string, error) {
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return "", err
	}
	if s.queue == nil {
		return "", core.NewError("filings.enqueue_ingest", core.KindPrecondition, "background ingestion is disabled", nil)
	}
	if err := s.queue.Enqueue(ingestion_engine.IngestJob{CompanyKey: key, Forms: forms, Overwrite: overwrite}); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FilingService) ListDocuments(ctx context.Context, cik string) ([]models.DocumentMetadataRecord, error) {
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}
	return s.documents.ListDocuments(ctx, key)
}

// Search clamps k to [1, MaxSearchK], defaulting to DefaultSearchK.
func (s *FilingService) Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	return s.searcher.Search(ctx, query, filter, clampK(k))
}

// Ask answers a question about one company from its most similar chunks.
func (s *FilingService) Ask(ctx context.Context, cik, question string, k int) (*Answer, error) {
	const op = "filings.ask"
	if s.llm == nil {
		return nil, core.NewError(op, core.KindPrecondition, "no language model configured", nil)
	}
	key, err := edgar.NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}

	hits, err := s.Search(ctx, question, map[string]any{"company_key": key}, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, core.NewError(op, core.KindNotFound, fmt.Sprintf("no ingested filings for company %s", key), nil)
	}

	var sb strings.Builder
	for _, h := range hits {
		if form, ok := h.Metadata["form_type"].(string); ok {
			fmt.Fprintf(&sb, "[%s] ", form)
		}
		sb.WriteString(h.Text)
		sb.WriteString("\n---\n")
	}
	userPrompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), question)

	answer, err := s.llm.Generate(ctx, askSystemPrompt, userPrompt)
	if err != nil {
		return nil, core.NewError(op, core.KindEmbeddingFailed, "generate answer", err)
	}
	return &Answer{Answer: strings.TrimSpace(answer), Sources: hits}, nil
}

func clampK(k int) int {
	switch {
	case k <= 0:
		return DefaultSearchK
	case k > MaxSearchK:
		return MaxSearchK
	}
	return k
}
