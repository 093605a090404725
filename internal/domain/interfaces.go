package domain

import "context"

// Embedder maps text to fixed-dimension dense vectors. Batch and single-text
// calls must produce identical vectors for the same input.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ChunkStore holds chunks and their index-aligned embedding vectors.
// AddChunks appends both collections atomically; a store must never expose a
// state where their lengths differ.
type ChunkStore interface {
	AddChunks(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]RetrievedDoc, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// AnswerStream is a pull-based sequence of answer fragments. Recv returns the
// next fragment in arrival order; done reports end of stream. Abandoning a
// stream early only requires Close.
type AnswerStream interface {
	Recv() (fragment string, done bool, err error)
	Close() error
}

// Generator produces an answer for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, stream bool) (AnswerStream, error)
}

// Chunker splits a continuous text section into indexable chunks.
type Chunker interface {
	Chunk(section Section) []Chunk
}

// Section is a continuous run of text extracted from a document by a loader,
// not yet split into chunks. Source identifies the sub-location (for PDFs the
// page), File the originating document.
type Section struct {
	Content string
	Source  string
	File    string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
