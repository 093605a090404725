package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"docchat/internal/domain"
)

// Pipeline turns documents into embedded chunks in the store: load sections,
// split into overlapping windows, embed chunk texts in batches, append to
// the chunk store. The store is only ever written through this path.
type Pipeline struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.ChunkStore
	batchSize int
	log       *zap.Logger
}

func NewPipeline(chunker domain.Chunker, embedder domain.Embedder, store domain.ChunkStore, batchSize int, log *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 32
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{chunker: chunker, embedder: embedder, store: store, batchSize: batchSize, log: log}
}

// Stats summarizes one ingestion run.
type Stats struct {
	Files    []string
	Sections int
	Chunks   int
}

// Run ingests the given paths. Directories are walked non-recursively for
// supported document types; explicit file paths must be loadable. All chunks
// from one run are appended to the store in document order.
func (p *Pipeline) Run(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	files, err := expandPaths(paths)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, errors.New("no documents found")
	}

	var sections []domain.Section
	for _, f := range files {
		loaded, err := LoadFile(f)
		if err != nil {
			return stats, fmt.Errorf("load %s: %w", f, err)
		}
		p.log.Info("loaded document", zap.String("file", filepath.Base(f)), zap.Int("sections", len(loaded)))
		sections = append(sections, loaded...)
		stats.Files = append(stats.Files, filepath.Base(f))
	}
	stats.Sections = len(sections)

	var chunks []domain.Chunk
	for _, sec := range sections {
		chunks = append(chunks, p.chunker.Chunk(sec)...)
	}
	stats.Chunks = len(chunks)
	if len(chunks) == 0 {
		return stats, errors.New("documents produced no usable chunks")
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch: %w", err)
		}
		if err := p.store.AddChunks(ctx, batch, vectors); err != nil {
			return stats, fmt.Errorf("store chunks: %w", err)
		}
	}
	p.log.Info("ingestion complete", zap.Int("chunks", stats.Chunks), zap.Strings("files", stats.Files))
	return stats, nil
}

// expandPaths resolves directories into their supported document files and
// passes explicit file paths through unchanged.
func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".pdf", ".docx", ".txt", ".md":
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
