package prompt

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
)

// DefaultHistoryWindow is how many recent turns are replayed into the prompt.
const DefaultHistoryWindow = 4

const (
	preamble    = "You are a helpful assistant. Use the provided context to answer questions accurately."
	instruction = "Answer based on the context above. If the context doesn't contain relevant information, say so."
)

// Builder assembles the generation prompt from reranked context, recent
// conversation turns, and the new question. The template is deterministic;
// no token-budget truncation is applied, context is assumed to fit the
// model's window.
type Builder struct {
	historyWindow int
}

func NewBuilder(historyWindow int) *Builder {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Builder{historyWindow: historyWindow}
}

// Build renders the prompt: recent history (omitted when empty), then the
// context documents each prefixed by their source label, then the question.
func (b *Builder) Build(query string, contextDocs []domain.RetrievedDoc, history []domain.Turn) string {
	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n")

	if len(history) > 0 {
		if len(history) > b.historyWindow {
			history = history[len(history)-b.historyWindow:]
		}
		sb.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n\n", turn.Question, turn.Answer)
		}
	}

	sb.WriteString("\nContext documents:\n")
	for i, doc := range contextDocs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s", doc.Source, doc.Text)
	}

	fmt.Fprintf(&sb, "\n\nQuestion: %s\n\n", query)
	sb.WriteString(instruction)
	return sb.String()
}
