package domain

// Chunk is a bounded fragment of source-document text with attached provenance.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	File   string `json:"file"`
}

// RetrievedDoc is a Chunk enriched with its cosine similarity to the query.
type RetrievedDoc struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// Turn is one completed question/answer exchange within a session.
type Turn struct {
	Question string
	Answer   string
}

// SourceMap maps a file name to the ordered source labels that contributed to
// an answer. Repeated labels are kept: they mean several chunks from the same
// page or section were used.
type SourceMap map[string][]string
