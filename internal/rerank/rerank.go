package rerank

import (
	"sort"
	"strings"

	"docchat/internal/domain"
)

// DefaultTopN is how many context documents survive reranking.
const DefaultTopN = 3

// Reranker re-scores retrieved candidates by lexical word overlap with the
// query. It is a cheap filter on top of semantic retrieval that penalizes
// chunks that are similar in embedding space but share no keywords with the
// question. Term frequency and stemming are intentionally ignored.
type Reranker struct {
	topN int
}

func New(topN int) *Reranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Reranker{topN: topN}
}

// Rerank stable-sorts docs descending by overlap score and keeps the first
// topN. Candidates with equal scores keep their incoming retrieval order.
func (r *Reranker) Rerank(query string, docs []domain.RetrievedDoc) []domain.RetrievedDoc {
	queryWords := wordSet(query)
	scores := make([]float64, len(docs))
	for i, doc := range docs {
		scores[i] = overlapScore(queryWords, doc.Text)
	}
	idxs := make([]int, len(docs))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	topN := r.topN
	if topN > len(idxs) {
		topN = len(idxs)
	}
	out := make([]domain.RetrievedDoc, 0, topN)
	for _, j := range idxs[:topN] {
		out = append(out, docs[j])
	}
	return out
}

// overlapScore is |query ∩ text| / (|query| + 1). The +1 keeps an empty query
// from dividing by zero and dampens very short queries.
func overlapScore(queryWords map[string]struct{}, text string) float64 {
	overlap := 0
	for word := range wordSet(text) {
		if _, ok := queryWords[word]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryWords)+1)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
