package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/store/memory"
)

// fakeEmbedder returns a fixed vector per known text.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = []float64{0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func seededStore(t *testing.T) domain.ChunkStore {
	t.Helper()
	s := memory.NewStore("", zap.NewNop())
	err := s.AddChunks(context.Background(),
		[]domain.Chunk{
			{Text: "relevant text", Source: "a.txt", File: "a.txt"},
			{Text: "nearby text", Source: "b.txt", File: "b.txt"},
			{Text: "unrelated text", Source: "c.txt", File: "c.txt"},
		},
		[][]float64{{1, 0}, {0.7, 0.7}, {-1, 0}},
	)
	require.NoError(t, err)
	return s
}

func TestRetrieve_RanksAndFilters(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	r := New(emb, seededStore(t), 5, 0.1)

	docs, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	// the anti-parallel vector scores -1 and falls below the floor
	require.Len(t, docs, 2)
	assert.Equal(t, "relevant text", docs[0].Text)
	assert.Equal(t, "nearby text", docs[1].Text)
	for _, d := range docs {
		assert.Greater(t, d.Similarity, 0.1)
	}
}

func TestRetrieve_NeverExceedsTopK(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	r := New(emb, seededStore(t), 1, 0.1)

	docs, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "relevant text", docs[0].Text)
}

func TestRetrieve_FloorIsStrict(t *testing.T) {
	s := memory.NewStore("", zap.NewNop())
	require.NoError(t, s.AddChunks(context.Background(),
		[]domain.Chunk{{Text: "border", Source: "a.txt", File: "a.txt"}},
		[][]float64{{1, 0}},
	))
	emb := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}

	// the only candidate scores exactly 1.0; with floor 1.0 it is excluded
	r := New(emb, s, 5, 1.0)
	docs, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieve_EmptyStore(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{"query": {1, 0}}}
	r := New(emb, memory.NewStore("", zap.NewNop()), 5, 0.1)

	docs, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieve_EmbedderErrorPropagates(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model offline")}
	r := New(emb, seededStore(t), 5, 0.1)

	_, err := r.Retrieve(context.Background(), "query")
	assert.Error(t, err)
}
