package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
)

type fakeLocator struct {
	LocateFn func(ctx context.Context, companyKey string, forms []models.FormType) ([]models.FilingLocation, error)
}

func (f *fakeLocator) LocateLatest(ctx context.Context, companyKey string, forms []models.FormType) ([]models.FilingLocation, error) {
	return f.LocateFn(ctx, companyKey, forms)
}

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, loc models.FilingLocation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[loc.AccessionID]; ok {
		return "", err
	}
	body, ok := f.bodies[loc.AccessionID]
	if !ok {
		return "", core.FetchFailed("fake.fetch", 404, loc.AccessionID)
	}
	return body, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory core.MetadataStore.
type memStore struct {
	mu       sync.Mutex
	records  []models.DocumentMetadataRecord
	RecordFn func(rec *models.DocumentMetadataRecord) error
}

func (m *memStore) RecordDocument(_ context.Context, rec *models.DocumentMetadataRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordFn != nil {
		if err := m.RecordFn(rec); err != nil {
			return 0, err
		}
	}
	rev := 1
	for _, r := range m.records {
		if r.CompanyKey == rec.CompanyKey && r.AccessionID == rec.AccessionID && r.FormType == rec.FormType && r.Revision >= rev {
			rev = r.Revision + 1
		}
	}
	rec.ID = int64(len(m.records) + 1)
	rec.Revision = rev
	m.records = append(m.records, *rec)
	return rec.ID, nil
}

func (m *memStore) DocumentExists(_ context.Context, companyKey, accessionID string, form models.FormType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.CompanyKey == companyKey && r.AccessionID == accessionID && r.FormType == form {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListDocuments(_ context.Context, companyKey string) ([]models.DocumentMetadataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentMetadataRecord
	for _, r := range m.records {
		if r.CompanyKey == companyKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) hasRecord(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fakeIndex struct {
	mu       sync.Mutex
	chunks   []models.EmbeddedChunk
	AddFn    func(chunks []models.EmbeddedChunk) error
	SearchFn func(vec []float32, filter map[string]any, k int) ([]models.ScoredChunk, error)
	adds     int
}

func (f *fakeIndex) AddChunks(_ context.Context, chunks []models.EmbeddedChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.AddFn != nil {
		if err := f.AddFn(chunks); err != nil {
			return err
		}
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) SimilaritySearch(_ context.Context, vec []float32, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	return f.SearchFn(vec, filter, k)
}

func (f *fakeIndex) stored() []models.EmbeddedChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EmbeddedChunk(nil), f.chunks...)
}

// fakeEmbedder returns dim-sized vectors seeded from the text length.
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	batches [][]string
	EmbedFn func(texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.EmbedFn != nil {
		return f.EmbedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// passthroughExtractor returns the body unchanged.
type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(_ context.Context, raw []byte, _ string) (string, error) {
	return string(raw), nil
}

type fakeObjectClient struct {
	mu       sync.Mutex
	uploaded map[string]string
	err      error
}

func (f *fakeObjectClient) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[bucket+"/"+key] = string(b)
	return "s3://" + bucket + "/" + key, nil
}

func (f *fakeObjectClient) DeleteFile(context.Context, string, string) error { return nil }

func (f *fakeObjectClient) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func appleLocations() []models.FilingLocation {
	return []models.FilingLocation{
		{CompanyKey: "0000320193", FormType: models.Form10K, AccessionID: "0000320193-23-000106", DocumentName: "aapl-20230930.htm"},
		{CompanyKey: "0000320193", FormType: models.Form10Q, AccessionID: "0000320193-24-000079", DocumentName: "aapl-20240629.htm"},
		{CompanyKey: "0000320193", FormType: models.Form8K, AccessionID: "0000320193-24-000081", DocumentName: "aapl-20240801.htm"},
	}
}

func appleBodies() map[string]string {
	out := map[string]string{}
	for i, loc := range appleLocations() {
		out[loc.AccessionID] = strings.Repeat(fmt.Sprintf("Section %d of %s. ", i, loc.FormType), 12)
	}
	return out
}
