package retrieve

import (
	"context"
	"fmt"

	"docchat/internal/domain"
)

const (
	// DefaultTopK is how many candidates the similarity pass keeps before
	// reranking narrows them further.
	DefaultTopK = 5

	// DefaultMinSimilarity filters out candidates that are only nominally
	// the nearest neighbors of a query with no real match in the corpus.
	DefaultMinSimilarity = 0.1
)

// Retriever embeds a query and ranks every stored chunk against it by cosine
// similarity. Retrieval is exact brute force: ranking is correct up to
// floating-point comparison, not probabilistic.
type Retriever struct {
	embedder      domain.Embedder
	store         domain.ChunkStore
	topK          int
	minSimilarity float64
}

func New(embedder domain.Embedder, store domain.ChunkStore, topK int, minSimilarity float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, minSimilarity: minSimilarity}
}

// Retrieve returns at most topK chunks sorted descending by similarity, each
// strictly above the relevance floor. An empty store yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievedDoc, error) {
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := r.store.Search(ctx, vecs[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}
	out := docs[:0]
	for _, d := range docs {
		if d.Similarity > r.minSimilarity {
			out = append(out, d)
		}
	}
	return out, nil
}
