package summarize

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docchat/internal/domain"
)

// FrequencySummarizer ranks sentences by normalized word frequency with
// stopwords filtered. The ingest CLI uses it to print a short overview of
// what was just indexed; it plays no part in answering queries.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	sentenceRe   *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentenceRe:   regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:    defaultStopwords(),
	}
}

// SummarizeSections summarizes the combined text of the given sections.
func (s *FrequencySummarizer) SummarizeSections(sections []domain.Section, maxSentences int) (string, error) {
	var sb strings.Builder
	for _, sec := range sections {
		sb.WriteString(sec.Content)
		sb.WriteString("\n")
	}
	return s.Summarize(sb.String(), maxSentences)
}

// Summarize keeps the maxSentences highest scoring sentences in their
// original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := s.sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, stop := s.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		if len(toks) > 0 {
			score /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of",
		"in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been",
		"being", "it", "this", "that", "these", "those", "from", "up", "down", "over",
		"under", "than", "so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same", "too", "very",
		"can", "will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
