package rank

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/embeddings"
)

// Searcher debounces queries and discards stale results.
//
// Every submitted query gets a monotonically increasing sequence number. A
// newer query supersedes a pending (not yet fired) evaluation, and a result
// arriving for a superseded query is dropped by a freshness check. In-flight
// embedding calls are never cancelled, their results just stop mattering.
type Searcher struct {
	engine   *Engine
	embedder embeddings.Embedder // nil = keyword-only search
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewSearcher creates a debounced searcher. embedder may be nil.
func NewSearcher(engine *Engine, embedder embeddings.Embedder, debounce time.Duration, logger *zap.SugaredLogger) *Searcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Searcher{
		engine:   engine,
		embedder: embedder,
		debounce: debounce,
		logger:   logger,
	}
}

// Submit schedules evaluation of query after the debounce delay and calls
// apply with the results, unless a newer query supersedes this one first.
func (s *Searcher) Submit(ctx context.Context, query string, apply func([]Ranked)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(ctx, seq, query, apply)
	})
}

// Search evaluates a query immediately, bypassing the debounce. Used by
// one-shot callers like the CLI.
func (s *Searcher) Search(ctx context.Context, query string) ([]Ranked, error) {
	return s.engine.Search(query, s.queryEmbedding(ctx, query))
}

func (s *Searcher) run(ctx context.Context, seq uint64, query string, apply func([]Ranked)) {
	embedding := s.queryEmbedding(ctx, query)

	results, err := s.engine.Search(query, embedding)
	if err != nil {
		s.logger.Warnw("Search failed", "query", query, "error", err)
		return
	}

	// Freshness check: only the latest issued query may apply
	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()

	if stale {
		s.logger.Debugw("Discarding stale search result", "query", query, "seq", seq)
		return
	}

	apply(results)
}

// queryEmbedding fetches an embedding for the query. Failure degrades to
// keyword-only scoring, it never fails the search.
func (s *Searcher) queryEmbedding(ctx context.Context, query string) []float32 {
	if s.embedder == nil || query == "" {
		return nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Debugw("Embedding unavailable, falling back to keyword ranking",
			"query", query,
			"error", err,
		)
		return nil
	}
	return embedding
}
