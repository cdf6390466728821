package vectorindex

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const checkText = "embedding model availability check"

// CheckEmbedder embeds a fixed text and checks the vector size. Any failure means the
// embedding model cannot serve the index.
func CheckEmbedder(ctx context.Context, embedder Embedder) error {
	vectors, err := embedder.Embed(ctx, []string{checkText})
	if err != nil {
		return domain.ErrModelUnavailable.Wrap(err)
	}
	if len(vectors) != 1 || len(vectors[0]) != embedder.Dimensions() {
		got := 0
		if len(vectors) > 0 {
			got = len(vectors[0])
		}
		return domain.ErrModelUnavailable.Wrap(fmt.Errorf("expected %d dimensions, got %d", embedder.Dimensions(), got))
	}
	return nil
}
