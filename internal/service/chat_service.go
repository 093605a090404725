package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/prompt"
	"docchat/internal/rerank"
	"docchat/internal/retrieve"
)

// NoContextMessage is the fixed answer when retrieval plus reranking yields
// no usable context. It is a successful outcome, not an error, and the
// generation service is never contacted for it.
const NoContextMessage = "No relevant documents found to answer this question."

// ChatService drives a query through retrieve, rerank, prompt build and
// generation, and keeps the per-session conversation history. One query is
// processed start to finish before the next begins; the streaming generation
// call is the only suspension point and the caller drives it by pulling.
type ChatService struct {
	retriever *retrieve.Retriever
	reranker  *rerank.Reranker
	prompts   *prompt.Builder
	generator domain.Generator
	store     domain.ChunkStore
	log       *zap.Logger

	mu      sync.Mutex
	history []domain.Turn
}

func NewChatService(retriever *retrieve.Retriever, reranker *rerank.Reranker, prompts *prompt.Builder,
	generator domain.Generator, store domain.ChunkStore, log *zap.Logger) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		retriever: retriever,
		reranker:  reranker,
		prompts:   prompts,
		generator: generator,
		store:     store,
		log:       log,
	}
}

// Ask answers the query as a pull-based fragment stream. When the pipeline
// yields zero context documents the returned Answer carries the canned
// message and no conversation turn is recorded. A successfully drained
// stream appends exactly one turn; a stream that fails mid-way appends none,
// so history only ever holds fully produced answers (partial text already
// shown to the caller is not retracted).
func (s *ChatService) Ask(ctx context.Context, query string) (*Answer, error) {
	docs, err := s.contextDocs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		s.log.Info("no context above relevance floor", zap.String("query", query))
		return &Answer{canned: NoContextMessage}, nil
	}

	s.mu.Lock()
	p := s.prompts.Build(query, docs, s.history)
	s.mu.Unlock()

	stream, err := s.generator.Generate(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return &Answer{
		stream: stream,
		onDone: func(full string) { s.appendTurn(query, full) },
	}, nil
}

// AskSync drains Ask's stream into one complete answer string.
func (s *ChatService) AskSync(ctx context.Context, query string) (string, error) {
	ans, err := s.Ask(ctx, query)
	if err != nil {
		return "", err
	}
	defer ans.Close()
	var sb strings.Builder
	for {
		fragment, done, err := ans.Recv()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
		if done {
			return sb.String(), nil
		}
	}
}

// Sources reruns the identical retrieve+rerank pass for the query and maps
// each file to the ordered source labels that would ground the answer.
// Repeated labels are kept: they mean multiple chunks from the same page or
// section contributed.
func (s *ChatService) Sources(ctx context.Context, query string) (domain.SourceMap, error) {
	docs, err := s.contextDocs(ctx, query)
	if err != nil {
		return nil, err
	}
	sources := make(domain.SourceMap)
	for _, doc := range docs {
		sources[doc.File] = append(sources[doc.File], doc.Source)
	}
	return sources, nil
}

// DocumentCount reports how many chunks the store currently holds.
func (s *ChatService) DocumentCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// ClearHistory resets the conversation; subsequent prompts carry no previous
// turns.
func (s *ChatService) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// History returns a copy of the recorded turns, oldest first.
func (s *ChatService) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *ChatService) contextDocs(ctx context.Context, query string) ([]domain.RetrievedDoc, error) {
	retrieved, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.reranker.Rerank(query, retrieved), nil
}

func (s *ChatService) appendTurn(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, domain.Turn{Question: question, Answer: answer})
}

// Answer is the pull-based result of Ask. It accumulates fragments so the
// completed text can be recorded as a conversation turn once the underlying
// stream finishes cleanly.
type Answer struct {
	stream domain.AnswerStream
	canned string
	onDone func(full string)

	buf      strings.Builder
	finished bool
}

// Recv yields the next fragment. done reports end of answer.
func (a *Answer) Recv() (string, bool, error) {
	if a.stream == nil {
		if a.finished {
			return "", true, nil
		}
		a.finished = true
		return a.canned, true, nil
	}
	if a.finished {
		return "", true, nil
	}
	fragment, done, err := a.stream.Recv()
	if err != nil {
		a.finished = true
		return fragment, true, err
	}
	a.buf.WriteString(fragment)
	if done {
		a.finished = true
		if a.onDone != nil {
			a.onDone(a.buf.String())
		}
	}
	return fragment, done, nil
}

// Close releases the underlying connection. Safe to call at any point; a
// stream abandoned before completion records no conversation turn.
func (a *Answer) Close() error {
	if a.stream == nil {
		return nil
	}
	return a.stream.Close()
}
