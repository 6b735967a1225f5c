package services

import (
	"context"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/core/bondfinder"
	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
	"github.com/markdave123-py/filingscope/internal/models"
)

type fakeCompanyStore struct {
	companies   []models.CompanyRecord
	upserted    []models.CompanyRecord
	searches    int
	searchLimit int
}

func (f *fakeCompanyStore) UpsertCompanies(_ context.Context, companies []models.CompanyRecord) (int, error) {
	f.upserted = append(f.upserted, companies...)
	return len(companies), nil
}

func (f *fakeCompanyStore) GetCompanyExact(_ context.Context, name string) (*models.CompanyRecord, error) {
	for _, c := range f.companies {
		if strings.EqualFold(c.Ticker, name) || strings.EqualFold(c.DisplayName, name) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCompanyStore) SearchCompanies(_ context.Context, fragment string, limit int) ([]models.CompanyRecord, error) {
	f.searches++
	f.searchLimit = limit
	var out []models.CompanyRecord
	seen := map[string]bool{}
	for _, c := range f.companies {
		if seen[c.CompanyKey] || !strings.Contains(strings.ToLower(c.DisplayName), strings.ToLower(fragment)) {
			continue
		}
		seen[c.CompanyKey] = true
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCompanyStore) GetCompanyByNormalizedName(_ context.Context, normalized string) (*models.CompanyRecord, error) {
	for _, c := range f.companies {
		if normalizedTitle(c) == normalized {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

type fakeFeed struct {
	FetchFn func(ctx context.Context) ([]models.CompanyRecord, error)
}

func (f *fakeFeed) FetchCompanyDirectory(ctx context.Context) ([]models.CompanyRecord, error) {
	return f.FetchFn(ctx)
}

type fakeIngestor struct {
	IngestFn func(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error)
}

func (f *fakeIngestor) Ingest(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (*ingestion_engine.IngestReport, error) {
	return f.IngestFn(ctx, companyKey, forms, overwrite)
}

func (f *fakeIngestor) IngestCompany(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (int, error) {
	rep, err := f.IngestFn(ctx, companyKey, forms, overwrite)
	if err != nil {
		return 0, err
	}
	return rep.Ingested, nil
}

type fakeLocator struct {
	LocateFn func(ctx context.Context, companyKey string, forms []models.FormType) ([]models.FilingLocation, error)
}

func (f *fakeLocator) LocateLatest(ctx context.Context, companyKey string, forms []models.FormType) ([]models.FilingLocation, error) {
	return f.LocateFn(ctx, companyKey, forms)
}

type fakeSearcher struct {
	SearchFn func(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error)
}

func (f *fakeSearcher) Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	return f.SearchFn(ctx, query, filter, k)
}

type fakeLLM struct {
	GenerateFn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.GenerateFn(ctx, systemPrompt, userPrompt)
}

type fakeMetadataStore struct {
	records []models.DocumentMetadataRecord
}

func (f *fakeMetadataStore) RecordDocument(context.Context, *models.DocumentMetadataRecord) (int64, error) {
	return 0, nil
}

func (f *fakeMetadataStore) DocumentExists(context.Context, string, string, models.FormType) (bool, error) {
	return false, nil
}

func (f *fakeMetadataStore) ListDocuments(_ context.Context, companyKey string) ([]models.DocumentMetadataRecord, error) {
	var out []models.DocumentMetadataRecord
	for _, r := range f.records {
		if r.CompanyKey == companyKey {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeBondSource struct {
	FindFn func(ctx context.Context, ratings []bondfinder.MoodyRating, maturities []bondfinder.Maturity, yields []bondfinder.YieldBand) ([]models.Bond, error)
}

func (f *fakeBondSource) FindWithinCriteria(ctx context.Context, ratings []bondfinder.MoodyRating, maturities []bondfinder.Maturity, yields []bondfinder.YieldBand) ([]models.Bond, error) {
	return f.FindFn(ctx, ratings, maturities, yields)
}

var directory = []models.CompanyRecord{
	{CompanyKey: "0000320193", Ticker: "AAPL", DisplayName: "Apple Inc."},
	{CompanyKey: "0001652044", Ticker: "GOOGL", DisplayName: "Alphabet Inc."},
	{CompanyKey: "0001652044", Ticker: "GOOG", DisplayName: "Alphabet Inc."},
	{CompanyKey: "0000037996", Ticker: "F", DisplayName: "FORD MOTOR CO"},
	{CompanyKey: "0000886982", Ticker: "GS", DisplayName: "GOLDMAN SACHS GROUP INC"},
	{CompanyKey: "0000019617", Ticker: "JPM", DisplayName: "JPMORGAN CHASE & CO"},
	{CompanyKey: "0001467858", Ticker: "GM", DisplayName: "General Motors Co"},
}

func normalizedTitle(c models.CompanyRecord) string {
	return core.NormalizeCompanyName(c.DisplayName)
}
