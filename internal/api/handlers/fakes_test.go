package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/services"
)

type fakeCompanies struct {
	ImportFn  func(ctx context.Context) (int, error)
	ResolveFn func(ctx context.Context, name string) (*models.CompanyRecord, error)
}

func (f *fakeCompanies) ImportDirectory(ctx context.Context) (int, error) {
	return f.ImportFn(ctx)
}

func (f *fakeCompanies) Resolve(ctx context.Context, name string) (*models.CompanyRecord, error) {
	return f.ResolveFn(ctx, name)
}

type fakeFilings struct {
	LocateFn       func(ctx context.Context, cik string, forms []models.FormType) ([]models.FilingLocation, error)
	IngestFn       func(ctx context.Context, cik string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error)
	IngestByNameFn func(ctx context.Context, name string, overwrite bool) (*ingestion_engine.IngestReport, error)
	EnqueueFn      func(cik string, forms []models.FormType, overwrite bool) (string, error)
	ListFn         func(ctx context.Context, cik string) ([]models.DocumentMetadataRecord, error)
	SearchFn       func(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error)
	AskFn          func(ctx context.Context, cik, question string, k int) (*services.Answer, error)
}

func (f *fakeFilings) Locate(ctx context.Context, cik string, forms []models.FormType) ([]models.FilingLocation, error) {
	return f.LocateFn(ctx, cik, forms)
}

func (f *fakeFilings) Ingest(ctx context.Context, cik string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error) {
	return f.IngestFn(ctx, cik, forms, overwrite)
}

func (f *fakeFilings) IngestByName(ctx context.Context, name string, overwrite bool) (*ingestion_engine.IngestReport, error) {
	return f.IngestByNameFn(ctx, name, overwrite)
}

func (f *fakeFilings) EnqueueIngest(cik string, forms []models.FormType, overwrite bool) (string, error) {
	return f.EnqueueFn(cik, forms, overwrite)
}

func (f *fakeFilings) ListDocuments(ctx context.Context, cik string) ([]models.DocumentMetadataRecord, error) {
	return f.ListFn(ctx, cik)
}

func (f *fakeFilings) Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	return f.SearchFn(ctx, query, filter, k)
}

func (f *fakeFilings) Ask(ctx context.Context, cik, question string, k int) (*services.Answer, error) {
	return f.AskFn(ctx, cik, question, k)
}

type fakeBonds struct {
	FindFn func(ctx context.Context, criteria services.BondCriteria) ([]models.BondListing, error)
}

func (f *fakeBonds) FindBonds(ctx context.Context, criteria services.BondCriteria) ([]models.BondListing, error) {
	return f.FindFn(ctx, criteria)
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
