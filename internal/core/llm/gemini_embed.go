package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/filingscope/internal/core"
)

// Gemini caps a single batchEmbedContents call at 100 requests.
const maxEmbedBatch = 100

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	batchSize int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, batchSize int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, core.NewError("llm.new_embedder", core.KindEmbeddingFailed, "GEMINI_API_KEY not set", nil)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, core.NewError("llm.new_embedder", core.KindEmbeddingFailed, "create gemini client", err)
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	if batchSize <= 0 || batchSize > maxEmbedBatch {
		batchSize = maxEmbedBatch
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, batchSize: batchSize}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedTexts embeds texts in order, splitting them into provider-sized batches.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "llm.embed_texts"
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, core.NewError(op, core.KindEmbeddingFailed, "gemini batch embed", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, core.NewError(op, core.KindEmbeddingFailed,
				fmt.Sprintf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), end-start), nil)
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
