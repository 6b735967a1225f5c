package ingestion_engine

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
)

// EmbeddingSink embeds chunk texts and stores them with their metadata in the
// vector index, and answers metadata-filtered similarity queries.
type EmbeddingSink struct {
	index    core.VectorIndex
	embedder core.EmbeddingProvider
	cfg      *IngestConfig
	now      func() time.Time
}

func NewEmbeddingSink(index core.VectorIndex, embedder core.EmbeddingProvider, cfg *IngestConfig) *EmbeddingSink {
	return &EmbeddingSink{
		index:    index,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// EmbedAndStore embeds every chunk and writes them all in one index call.
// chunks and metadatas are parallel; a length mismatch is a precondition
// failure and nothing is embedded or written.
func (s *EmbeddingSink) EmbedAndStore(ctx context.Context, chunks []string, metadatas []map[string]any) error {
	const op = "sink.embed_and_store"
	if len(chunks) != len(metadatas) {
		return core.NewError(op, core.KindPrecondition,
			fmt.Sprintf("%d chunks but %d metadata entries", len(chunks), len(metadatas)), nil)
	}
	if len(chunks) == 0 {
		return nil
	}

	vecs, err := s.embed(ctx, op, chunks)
	if err != nil {
		return err
	}

	createdAt := s.now().UTC()
	rows := make([]models.EmbeddedChunk, len(chunks))
	for i := range chunks {
		rows[i] = models.EmbeddedChunk{
			ID:        uuid.NewString(),
			Text:      chunks[i],
			Vector:    vecs[i],
			Position:  i,
			Metadata:  maps.Clone(metadatas[i]),
			CreatedAt: createdAt,
		}
	}
	if err := s.index.AddChunks(ctx, rows); err != nil {
		if core.KindOf(err) == "" {
			err = core.NewError(op, core.KindPersistenceFailed, "add chunks", err)
		}
		return err
	}
	return nil
}

// embed calls the provider batch by batch, each under its own deadline, and
// checks that one vector of the configured dimension came back per text.
func (s *EmbeddingSink) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(texts))

		batchCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		vecs, err := s.embedder.EmbedTexts(batchCtx, texts[start:end])
		cancel()
		if err != nil {
			return nil, core.NewError(op, core.KindEmbeddingFailed,
				fmt.Sprintf("batch %d-%d", start, end), err)
		}
		if len(vecs) != end-start {
			return nil, core.NewError(op, core.KindEmbeddingFailed,
				fmt.Sprintf("got %d vectors for %d texts", len(vecs), end-start), nil)
		}
		for _, v := range vecs {
			if len(v) == 0 || (s.cfg.EmbedDim > 0 && len(v) != s.cfg.EmbedDim) {
				return nil, core.NewError(op, core.KindEmbeddingFailed,
					fmt.Sprintf("vector dimension %d, want %d", len(v), s.cfg.EmbedDim), nil)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Search embeds query and returns the k most similar chunks whose metadata
// contains every key/value of filter, most similar first.
func (s *EmbeddingSink) Search(ctx context.Context, query string, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	const op = "sink.search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewError(op, core.KindInvalidInput, "empty query", nil)
	}
	if k <= 0 {
		return nil, core.NewError(op, core.KindInvalidInput, fmt.Sprintf("k must be positive, got %d", k), nil)
	}

	vecs, err := s.embed(ctx, op, []string{query})
	if err != nil {
		return nil, err
	}
	hits, err := s.index.SimilaritySearch(ctx, vecs[0], filter, k)
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.NewError(op, core.KindPersistenceFailed, "similarity search", err)
		}
		return nil, err
	}
	return hits, nil
}
