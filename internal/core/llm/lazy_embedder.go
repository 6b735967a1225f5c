package llm

import (
	"context"
	"sync"

	"github.com/markdave123-py/filingscope/internal/core"
)

// EmbedderFactory builds the underlying provider. It runs at most once.
type EmbedderFactory func(ctx context.Context) (core.EmbeddingProvider, error)

// LazyEmbedder is the process-wide embedding handle. The provider is built on
// first use and shared by every caller afterwards; a failed build is remembered
// and returned to every later call.
type LazyEmbedder struct {
	factory EmbedderFactory

	once     sync.Once
	provider core.EmbeddingProvider
	err      error
}

func NewLazyEmbedder(factory EmbedderFactory) *LazyEmbedder {
	return &LazyEmbedder{factory: factory}
}

// NewGeminiLazyEmbedder defers Gemini client creation until the first embed call.
func NewGeminiLazyEmbedder(apiKey, modelName string, batchSize int) *LazyEmbedder {
	return NewLazyEmbedder(func(ctx context.Context) (core.EmbeddingProvider, error) {
		return NewGeminiEmbedder(ctx, apiKey, modelName, batchSize)
	})
}

func (l *LazyEmbedder) get(ctx context.Context) (core.EmbeddingProvider, error) {
	l.once.Do(func() {
		// the provider outlives the first request's context
		l.provider, l.err = l.factory(context.WithoutCancel(ctx))
		if l.err == nil && l.provider == nil {
			l.err = core.NewError("llm.lazy_embedder", core.KindEmbeddingFailed, "factory returned no provider", nil)
		}
	})
	return l.provider, l.err
}

func (l *LazyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, core.NewError("llm.lazy_embedder", core.KindEmbeddingFailed, "embedding provider unavailable", err)
	}
	return p.EmbedTexts(ctx, texts)
}

// Close releases the provider if it was ever built. It waits for an
// in-flight build, and a handle closed before first use never builds.
func (l *LazyEmbedder) Close() error {
	l.once.Do(func() {
		l.err = core.NewError("llm.lazy_embedder", core.KindPrecondition, "embedder closed before first use", nil)
	})
	if c, ok := l.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ core.EmbeddingProvider = (*LazyEmbedder)(nil)
