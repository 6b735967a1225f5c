package ingestion_engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
)

type pipelineFixture struct {
	locator  *fakeLocator
	fetcher  *fakeFetcher
	store    *memStore
	index    *fakeIndex
	embedder *fakeEmbedder
	orch     *Orchestrator
}

var fixedNow = time.Date(2024, 8, 5, 12, 0, 0, 0, time.UTC)

func testConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:    50,
		ChunkOverlap: 5,
		BatchSize:    4,
		EmbedDim:     3,
		EmbedTimeout: time.Second,
		Concurrency:  2,
	}
}

func newPipelineFixture(t *testing.T, opts ...OrchestratorOption) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		locator: &fakeLocator{LocateFn: func(context.Context, string, []models.FormType) ([]models.FilingLocation, error) {
			return appleLocations(), nil
		}},
		fetcher:  &fakeFetcher{bodies: appleBodies(), errs: map[string]error{}},
		store:    &memStore{},
		index:    &fakeIndex{},
		embedder: &fakeEmbedder{dim: 3},
	}
	cfg := testConfig()
	sink := NewEmbeddingSink(f.index, f.embedder, cfg)
	opts = append([]OrchestratorOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.orch = NewOrchestrator(f.locator, f.fetcher, f.store, passthroughExtractor{}, sink, cfg, opts...)
	return f
}

func TestIngestCompanyIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	n, err := f.orch.IngestCompany(ctx, "320193", models.DefaultTrackedForms, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.store.count())
	chunksAfterFirst := len(f.index.stored())
	assert.NotZero(t, chunksAfterFirst)

	fetchesAfterFirst := f.fetcher.Calls()
	n, err = f.orch.IngestCompany(ctx, "320193", models.DefaultTrackedForms, false)
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Equal(t, fetchesAfterFirst, f.fetcher.Calls(), "skipped documents are not fetched")
	assert.Equal(t, 3, f.store.count())
	assert.Len(t, f.index.stored(), chunksAfterFirst)
}

func TestIngestOverwriteReingests(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.orch.IngestCompany(ctx, "320193", nil, false)
	require.NoError(t, err)
	first := len(f.index.stored())

	rep, err := f.orch.Ingest(ctx, "320193", nil, true)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Ingested)
	assert.True(t, rep.Overwrite)
	assert.Equal(t, 6, f.store.count(), "overwrite adds a second metadata record")
	assert.Len(t, f.index.stored(), 2*first, "the vector index is not deduplicated")

	docs, err := f.store.ListDocuments(ctx, "0000320193")
	require.NoError(t, err)
	revisions := map[int]int{}
	for _, d := range docs {
		revisions[d.Revision]++
	}
	assert.Equal(t, map[int]int{1: 3, 2: 3}, revisions)
}

func TestIngestReportStates(t *testing.T) {
	f := newPipelineFixture(t)

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, "0000320193", rep.CompanyKey)
	assert.Equal(t, fixedNow, rep.StartedAt)
	assert.Equal(t, fixedNow, rep.FinishedAt)
	require.Len(t, rep.Documents, 3)
	for i, d := range rep.Documents {
		assert.Equal(t, appleLocations()[i], d.Location, "outcomes keep locator order")
		assert.Equal(t, StateEmbedded, d.State)
		assert.NotZero(t, d.RecordID)
		assert.NotZero(t, d.ChunkCount)
	}
}

func TestIngestChunkMetadataLinksToRecord(t *testing.T) {
	f := newPipelineFixture(t)
	f.index.AddFn = func(chunks []models.EmbeddedChunk) error {
		for _, c := range chunks {
			id, ok := c.Metadata["document_metadata_id"].(int64)
			assert.True(t, ok)
			assert.True(t, f.store.hasRecord(id), "metadata is written before chunks")
		}
		return nil
	}

	_, err := f.orch.IngestCompany(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	for _, c := range f.index.stored() {
		assert.Equal(t, "0000320193", c.Metadata["company_key"])
		assert.LessOrEqual(t, len([]rune(c.Text)), 50)
		assert.Len(t, c.Vector, 3)
		assert.NotEmpty(t, c.ID)
	}
}

func TestIngestFetchFailureIsPerDocument(t *testing.T) {
	f := newPipelineFixture(t)
	f.fetcher.errs["0000320193-24-000079"] = core.FetchFailed("fake.fetch", 403, "forbidden")

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Ingested)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, StateFailed, rep.Documents[1].State)
	assert.Contains(t, rep.Documents[1].Error, "403")
	assert.Equal(t, 2, f.store.count(), "no metadata for a document that was not fetched")
}

func TestIngestEmbeddingFailureKeepsMetadata(t *testing.T) {
	f := newPipelineFixture(t)
	f.embedder.EmbedFn = func([]string) ([][]float32, error) {
		return nil, errors.New("provider unavailable")
	}

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Ingested)
	assert.Equal(t, 3, rep.Failed)
	assert.Equal(t, 3, f.store.count())
	assert.Empty(t, f.index.stored())

	// the dedup gate now hides these documents unless overwrite is set
	n, err := f.orch.IngestCompany(context.Background(), "320193", nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngestPersistenceFailureFailsCall(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.RecordFn = func(*models.DocumentMetadataRecord) error {
		return errors.New("connection reset")
	}

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindPersistenceFailed))
	require.NotNil(t, rep)
	assert.Equal(t, 0, rep.Ingested)

	_, err = f.orch.IngestCompany(context.Background(), "320193", nil, false)
	assert.Error(t, err)
}

func TestIngestDuplicateRecordIsSkipped(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.RecordFn = func(rec *models.DocumentMetadataRecord) error {
		if rec.FormType == models.Form10K {
			return core.NewError("fake.record", core.KindDuplicate, "document_metadata_revision_uq", nil)
		}
		return nil
	}

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, StateSkipped, rep.Documents[0].State)
	assert.Equal(t, 2, rep.Ingested)
	assert.Equal(t, 1, rep.Skipped)
}

func TestIngestCompanyNotFound(t *testing.T) {
	f := newPipelineFixture(t)
	f.locator.LocateFn = func(context.Context, string, []models.FormType) ([]models.FilingLocation, error) {
		return nil, core.NewError("fake.locate", core.KindNotFound, "no filing index", nil)
	}

	rep, err := f.orch.Ingest(context.Background(), "0000000001", nil, false)

	assert.Nil(t, rep)
	assert.True(t, core.IsKind(err, core.KindNotFound))
}

func TestIngestEmptyTextCountsWithoutChunks(t *testing.T) {
	f := newPipelineFixture(t)
	f.fetcher.bodies["0000320193-24-000081"] = "   \n\n  "

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Ingested)
	assert.Equal(t, StateEmbedded, rep.Documents[2].State)
	assert.Zero(t, rep.Documents[2].ChunkCount)
	assert.Equal(t, 3, f.store.count())
}

func TestIngestDefaultsToTrackedForms(t *testing.T) {
	f := newPipelineFixture(t)
	var got []models.FormType
	f.locator.LocateFn = func(_ context.Context, _ string, forms []models.FormType) ([]models.FilingLocation, error) {
		got = forms
		return nil, nil
	}

	rep, err := f.orch.Ingest(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultTrackedForms, got)
	assert.Empty(t, rep.Documents)
	assert.Equal(t, 0, rep.Ingested)
}

func TestIngestArchivesRawBodies(t *testing.T) {
	obj := &fakeObjectClient{}
	keyFn := func(loc models.FilingLocation) string { return loc.CompanyKey + "/" + loc.DocumentName }
	f := newPipelineFixture(t, WithArchive(obj, "filings", keyFn))

	_, err := f.orch.IngestCompany(context.Background(), "320193", nil, false)
	require.NoError(t, err)

	assert.Len(t, obj.uploaded, 3)
	assert.Equal(t, appleBodies()["0000320193-23-000106"], obj.uploaded["filings/0000320193/aapl-20230930.htm"])
}

func TestIngestArchiveFailureIsIgnored(t *testing.T) {
	obj := &fakeObjectClient{err: errors.New("access denied")}
	f := newPipelineFixture(t, WithArchive(obj, "filings", func(loc models.FilingLocation) string { return loc.DocumentName }))

	n, err := f.orch.IngestCompany(context.Background(), "320193", nil, false)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
