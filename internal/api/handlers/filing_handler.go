package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/services"
)

type FilingAPI interface {
	Locate(ctx context.Context, cik string, forms []models.FormType) ([]models.FilingLocation, error)
	Ingest(ctx context.Context, cik string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error)
	IngestByName(ctx context.Context, name string, overwrite bool) (*ingestion_engine.IngestReport, error)
	EnqueueIngest(cik string, forms []models.FormType, overwrite bool) (string, error)
	ListDocuments(ctx context.Context, cik string) ([]models.DocumentMetadataRecord, error)
	Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error)
	Ask(ctx context.Context, cik, question string, k int) (*services.Answer, error)
}

type FilingHandler struct {
	filings FilingAPI
}

func NewFilingHandler(filings FilingAPI) *FilingHandler {
	return &FilingHandler{filings: filings}
}

// LatestFilings handles GET /api/companies/{cik}/filings/latest?form=10-K,10-Q.
func (h *FilingHandler) LatestFilings(w http.ResponseWriter, r *http.Request) {
	locs, err := h.filings.Locate(r.Context(), chi.URLParam(r, "cik"), parseForms(r.URL.Query()["form"]))
	if err != nil {
		writeError(w, err)
		return
	}
	if locs == nil {
		locs = []models.FilingLocation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"filings": locs})
}

// ListDocuments handles GET /api/companies/{cik}/documents.
func (h *FilingHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.filings.ListDocuments(r.Context(), chi.URLParam(r, "cik"))
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []models.DocumentMetadataRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// IngestCompany handles POST /api/companies/{cik}/ingest?overwrite=&async=&form=.
// With async=true the job is queued and 202 is returned.
func (h *FilingHandler) IngestCompany(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	overwrite, err := parseBool(q.Get("overwrite"))
	if err != nil {
		badRequest(w, "overwrite must be a boolean")
		return
	}
	async, err := parseBool(q.Get("async"))
	if err != nil {
		badRequest(w, "async must be a boolean")
		return
	}
	forms := parseForms(q["form"])
	cik := chi.URLParam(r, "cik")

	if async {
		key, err := h.filings.EnqueueIngest(cik, forms, overwrite)
		if core.IsKind(err, core.KindPrecondition) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: string(core.KindPrecondition)})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"message": "ingestion queued", "company_key": key})
		return
	}

	rep, err := h.filings.Ingest(r.Context(), cik, forms, overwrite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type ingestByNameRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Overwrite bool   `json:"overwrite"`
}

// IngestByName handles POST /api/companies/ingest.
func (h *FilingHandler) IngestByName(w http.ResponseWriter, r *http.Request) {
	var req ingestByNameRequest
	if err := decodeAndValidate(r, &req); err != nil {
		badRequest(w, "invalid request: "+err.Error())
		return
	}
	rep, err := h.filings.IngestByName(r.Context(), req.Name, req.Overwrite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type searchRequest struct {
	Query      string         `json:"query" validate:"required,max=2000"`
	CompanyKey string         `json:"company_key" validate:"omitempty,numeric,max=10"`
	FormType   string         `json:"form_type" validate:"omitempty,max=10"`
	Filter     map[string]any `json:"filter"`
	K          int            `json:"k" validate:"gte=0,lte=50"`
}

// Search handles POST /api/search.
func (h *FilingHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		badRequest(w, "invalid request: "+err.Error())
		return
	}

	filter := map[string]any{}
	for k, v := range req.Filter {
		filter[k] = v
	}
	if req.CompanyKey != "" {
		filter["company_key"] = strings.Repeat("0", 10-len(req.CompanyKey)) + req.CompanyKey
	}
	if req.FormType != "" {
		filter["form_type"] = strings.ToUpper(req.FormType)
	}

	hits, err := h.filings.Search(r.Context(), req.Query, filter, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []models.ScoredChunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
	K        int    `json:"k" validate:"gte=0,lte=50"`
}

// Ask handles POST /api/companies/{cik}/ask.
func (h *FilingHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeAndValidate(r, &req); err != nil {
		badRequest(w, "invalid request: "+err.Error())
		return
	}
	ans, err := h.filings.Ask(r.Context(), chi.URLParam(r, "cik"), req.Question, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
