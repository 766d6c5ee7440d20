package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// RetrievalStrategy is one rung of the cascading retrieval ladder. Strategies
// are tried in configuration order until one yields a sufficient set, so
// adding or reordering strategies is a wiring change, not a code change.
// LastResort rungs only run when no earlier rung produced any candidates at
// all; a thin-but-real set from an earlier rung outranks them.
type RetrievalStrategy interface {
	Name() string
	Retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, error)
	Sufficient(count int) bool
	LastResort() bool
}

// DenseStrategy embeds the query and runs vector similarity search over the
// chunk collection and, when wired, the figure collection.
type DenseStrategy struct {
	embedder ports.Embedder
	chunks   ports.VectorStore
	figures  ports.FigureVectorStore
	minHits  int
	minScore float64
}

func NewDenseStrategy(
	embedder ports.Embedder,
	chunks ports.VectorStore,
	figures ports.FigureVectorStore,
	minHits int,
	minScore float64,
) *DenseStrategy {
	return &DenseStrategy{
		embedder: embedder,
		chunks:   chunks,
		figures:  figures,
		minHits:  minHits,
		minScore: minScore,
	}
}

func (s *DenseStrategy) Name() string { return domain.StrategyVector }

func (s *DenseStrategy) Sufficient(count int) bool { return count >= s.minHits }

func (s *DenseStrategy) LastResort() bool { return false }

func (s *DenseStrategy) Retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, error) {
	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	out, err := s.chunks.SearchChunks(ctx, vector, req.TopK, s.minScore, req)
	if err != nil {
		return nil, fmt.Errorf("vector chunk search: %w", err)
	}

	if s.figures != nil {
		figures, err := s.figures.SearchFigures(ctx, vector, req.TopK, s.minScore, req)
		if err != nil {
			// Figures are additive; a failed figure lookup does not void the
			// text hits.
			slog.Warn("figure_vector_search_failed", "error", err)
		} else {
			out = append(out, figures...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if req.TopK > 0 && len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out, nil
}

// LexicalStrategy runs full-text keyword search over chunk content. Its
// results override a thin dense set entirely; the two are never merged.
type LexicalStrategy struct {
	chunks ports.ChunkStore
}

func NewLexicalStrategy(chunks ports.ChunkStore) *LexicalStrategy {
	return &LexicalStrategy{chunks: chunks}
}

func (s *LexicalStrategy) Name() string { return domain.StrategyText }

func (s *LexicalStrategy) Sufficient(count int) bool { return count > 0 }

func (s *LexicalStrategy) LastResort() bool { return false }

func (s *LexicalStrategy) Retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, error) {
	out, err := s.chunks.SearchLexical(ctx, req.Query, req.TopK, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return out, nil
}

// substringFlatScore is assigned to every substring hit: the loosest
// strategy has no meaningful relevance signal of its own.
const substringFlatScore = 0.5

// SubstringStrategy is the last-resort rung: it only runs when dense and
// lexical both came up completely empty, and it can only produce text
// candidates.
type SubstringStrategy struct {
	chunks ports.ChunkStore
}

func NewSubstringStrategy(chunks ports.ChunkStore) *SubstringStrategy {
	return &SubstringStrategy{chunks: chunks}
}

func (s *SubstringStrategy) Name() string { return domain.StrategySubstring }

func (s *SubstringStrategy) Sufficient(count int) bool { return count > 0 }

func (s *SubstringStrategy) LastResort() bool { return true }

func (s *SubstringStrategy) Retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, error) {
	hits, err := s.chunks.SearchSubstring(ctx, req.Query, req.TopK, req)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	out := make([]domain.Candidate, len(hits))
	copy(out, hits)
	for i := range out {
		out[i].Score = substringFlatScore
		out[i].ContentType = domain.ContentText
	}
	return out, nil
}
