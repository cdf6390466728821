package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
	// MaxBatchSize is the request limit of BatchEmbedContents.
	MaxBatchSize       = 100
	DefaultConcurrency = 4
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI embeds one batch of texts, returning vectors in input order.
type EmbeddingAPI interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

type embeddingAdapter struct {
	model *genai.EmbeddingModel
}

func (a *embeddingAdapter) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	batch := a.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := a.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			return nil, errors.New("missing embedding in batch response")
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// Embedder produces document and query vectors with a Gemini embedding model.
type Embedder struct {
	api         EmbeddingAPI
	dimensions  int
	batchSize   int
	concurrency int
}

// NewEmbedder uses DefaultEmbeddingModel and DefaultEmbeddingDimensions for zero values.
func NewEmbedder(c *Client, model string, dimensions int) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return newEmbedder(&embeddingAdapter{model: c.genai.EmbeddingModel(model)}, dimensions, MaxBatchSize, DefaultConcurrency)
}

func newEmbedder(api EmbeddingAPI, dimensions, batchSize, concurrency int) *Embedder {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Embedder{api: api, dimensions: dimensions, batchSize: batchSize, concurrency: concurrency}
}

func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := e.api.BatchEmbed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("gemini batch embed: %w", err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("gemini batch embed: expected %d vectors, got %d", end-start, len(vectors))
			}
			for i, v := range vectors {
				if len(v) != e.dimensions {
					return fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, e.dimensions, len(v))
				}
				out[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
