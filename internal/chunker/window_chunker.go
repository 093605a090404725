package chunker

import (
	"strings"

	"docchat/internal/domain"
)

const (
	// DefaultSize and DefaultOverlap keep neighboring chunks from the same
	// document sharing a margin of text so meaning is not cut at boundaries.
	DefaultSize    = 500
	DefaultOverlap = 100

	// MinChunkLen discards fragments too short to carry useful context.
	MinChunkLen = 50
)

// WindowChunker splits sections into fixed-size character windows with overlap.
type WindowChunker struct {
	size    int
	overlap int
	minLen  int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	return &WindowChunker{size: size, overlap: overlap, minLen: MinChunkLen}
}

// Chunk cuts the section content into windows of size runes, each window
// starting size-overlap runes after the previous one. Windows at or below the
// minimum length are dropped as noise.
func (c *WindowChunker) Chunk(section domain.Section) []domain.Chunk {
	content := strings.TrimRight(section.Content, "\n")
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	stride := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[start:end])
		if len([]rune(text)) > c.minLen {
			chunks = append(chunks, domain.Chunk{
				Text:   text,
				Source: section.Source,
				File:   section.File,
			})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
