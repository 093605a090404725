package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/prompt"
	"docchat/internal/rerank"
	"docchat/internal/retrieve"
	"docchat/internal/store/memory"
)

// fakeEmbedder maps every text to the same unit vector, so anything stored is
// a perfect match for any query.
type fakeEmbedder struct{}

func (fakeEmbedder) Name() string   { return "fake" }
func (fakeEmbedder) Dimension() int { return 2 }
func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

// scriptedStream replays fragments and then reports done, or fails after
// failAfter fragments when failErr is set.
type scriptedStream struct {
	fragments []string
	failErr   error
	failAfter int
	pos       int
	closed    bool
}

func (s *scriptedStream) Recv() (string, bool, error) {
	if s.failErr != nil && s.pos >= s.failAfter {
		return "", true, s.failErr
	}
	if s.pos >= len(s.fragments) {
		return "", true, nil
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, s.pos == len(s.fragments) && s.failErr == nil, nil
}

func (s *scriptedStream) Close() error { s.closed = true; return nil }

type fakeGenerator struct {
	stream     *scriptedStream
	called     bool
	lastPrompt string
}

func (g *fakeGenerator) Generate(ctx context.Context, p string, stream bool) (domain.AnswerStream, error) {
	g.called = true
	g.lastPrompt = p
	return g.stream, nil
}

func newService(t *testing.T, gen *fakeGenerator, chunks ...domain.Chunk) *ChatService {
	t.Helper()
	store := memory.NewStore("", zap.NewNop())
	if len(chunks) > 0 {
		vectors := make([][]float64, len(chunks))
		for i := range vectors {
			vectors[i] = []float64{1, 0}
		}
		require.NoError(t, store.AddChunks(context.Background(), chunks, vectors))
	}
	retriever := retrieve.New(fakeEmbedder{}, store, 5, 0.1)
	return NewChatService(retriever, rerank.New(3), prompt.NewBuilder(4), gen, store, zap.NewNop())
}

func parisChunk() domain.Chunk {
	return domain.Chunk{Text: "Paris is the capital of France", Source: "a.txt", File: "a.txt"}
}

func TestAskSync_AnswersFromContext(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{fragments: []string{"Paris", " is the capital."}}}
	svc := newService(t, gen, parisChunk())

	answer, err := svc.AskSync(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", answer)
	assert.True(t, gen.called)
	assert.Contains(t, gen.lastPrompt, "[a.txt]\nParis is the capital of France")
	assert.Contains(t, gen.lastPrompt, "Question: What is the capital of France?")
}

func TestAsk_NoContextSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{}}
	svc := newService(t, gen) // empty store

	answer, err := svc.AskSync(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, NoContextMessage, answer)
	assert.False(t, gen.called, "generator must not be invoked without context")
	assert.Empty(t, svc.History(), "no turn is recorded for the canned answer")
}

func TestAsk_RecordsTurnAfterFullStream(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{fragments: []string{"an", "swer"}}}
	svc := newService(t, gen, parisChunk())

	_, err := svc.AskSync(context.Background(), "question?")
	require.NoError(t, err)

	history := svc.History()
	require.Len(t, history, 1)
	assert.Equal(t, "question?", history[0].Question)
	assert.Equal(t, "answer", history[0].Answer)
}

func TestAsk_MidStreamFailureRecordsNoTurn(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{
		fragments: []string{"partial "},
		failErr:   errors.New("connection reset"),
		failAfter: 1,
	}}
	svc := newService(t, gen, parisChunk())

	partial, err := svc.AskSync(context.Background(), "question?")
	require.Error(t, err)
	assert.Equal(t, "partial ", partial, "text already streamed is not retracted")
	assert.Empty(t, svc.History(), "history only holds fully produced answers")
}

func TestAsk_HistoryFlowsIntoLaterPrompts(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{fragments: []string{"first answer"}}}
	svc := newService(t, gen, parisChunk())

	_, err := svc.AskSync(context.Background(), "first question?")
	require.NoError(t, err)

	gen.stream = &scriptedStream{fragments: []string{"second answer"}}
	_, err = svc.AskSync(context.Background(), "second question?")
	require.NoError(t, err)

	assert.Contains(t, gen.lastPrompt, "Previous conversation:")
	assert.Contains(t, gen.lastPrompt, "User: first question?\nAssistant: first answer")
}

func TestClearHistory(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{fragments: []string{"answer"}}}
	svc := newService(t, gen, parisChunk())

	_, err := svc.AskSync(context.Background(), "question?")
	require.NoError(t, err)
	require.Len(t, svc.History(), 1)

	svc.ClearHistory()
	assert.Empty(t, svc.History())

	gen.stream = &scriptedStream{fragments: []string{"fresh"}}
	_, err = svc.AskSync(context.Background(), "another?")
	require.NoError(t, err)
	assert.NotContains(t, gen.lastPrompt, "Previous conversation:")
}

func TestSources_MapsFilesToLabels(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{}}
	svc := newService(t, gen, parisChunk())

	sources, err := svc.Sources(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceMap{"a.txt": {"a.txt"}}, sources)
}

func TestSources_KeepsRepeatedLabels(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{}}
	svc := newService(t, gen,
		domain.Chunk{Text: "chapter one capital", Source: "b.pdf:page_1", File: "b.pdf"},
		domain.Chunk{Text: "chapter two capital", Source: "b.pdf:page_1", File: "b.pdf"},
	)

	sources, err := svc.Sources(context.Background(), "capital")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceMap{"b.pdf": {"b.pdf:page_1", "b.pdf:page_1"}}, sources)
}

func TestDocumentCount(t *testing.T) {
	gen := &fakeGenerator{stream: &scriptedStream{}}
	svc := newService(t, gen, parisChunk())

	n, err := svc.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
