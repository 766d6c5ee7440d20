package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// SearchUseCase runs the retrieval pipeline: cascading strategies, rerank,
// score adjustment, diversity selection, isolation filtering and assembly.
// Stages run strictly in sequence per request; there is no shared state
// across concurrent requests.
type SearchUseCase struct {
	strategies []RetrievalStrategy
	reranker   ports.Reranker
	manuals    ports.ManualRepository
	tuning     SearchTuning
}

func NewSearchUseCase(
	strategies []RetrievalStrategy,
	reranker ports.Reranker,
	manuals ports.ManualRepository,
	tuning SearchTuning,
) *SearchUseCase {
	return &SearchUseCase{
		strategies: strategies,
		reranker:   reranker,
		manuals:    manuals,
		tuning:     tuning.normalize(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query text is required"))
	}
	if req.TopK <= 0 {
		req.TopK = uc.tuning.DefaultTopK
	}

	pool, strategy := uc.retrieve(ctx, req)
	if len(pool) == 0 {
		return emptyResult(req), nil
	}

	ranked, reranked := uc.rerank(ctx, req.Query, pool)
	adjusted := adjustContentTypeScores(ranked, uc.tuning)
	visual := hasVisualIntent(req.Query)
	boosted := applyVisualBoosts(adjusted, visual, uc.tuning)

	// Hard isolation boundary: applied to the full scored pool so the forced
	// figure lookup can never reintroduce a cross-manual candidate.
	safePool, dropped := filterIsolation(boosted, req)
	if dropped > 0 {
		slog.Warn("isolation_filter_dropped",
			"manual_id", req.ManualID,
			"tenant_id", req.TenantID,
			"dropped", dropped,
		)
	}
	if len(safePool) == 0 {
		res := emptyResult(req)
		res.IsolationDropped = dropped
		return res, nil
	}

	selected := selectDiverse(safePool, uc.tuning.MMRTargetCount, uc.tuning.MMRLambda)

	result := assembleResults(selected, safePool, visual, strategy, reranked, len(pool), uc.tuning)
	result.IsolationDropped = dropped
	if err := uc.attachTitles(ctx, result); err != nil {
		slog.Warn("manual_title_lookup_failed", "error", err)
	}
	return result, nil
}

// retrieve tries each configured strategy in order and returns the first
// sufficient candidate set. A non-empty but insufficient set (a dense search
// with too few hits) is kept as fallback in case every later strategy comes
// up empty; last-resort rungs never run against a kept fallback, so thin
// dense hits with real similarity scores are not displaced by flat-score
// substring matches. Strategy errors are soft: log and move on.
func (uc *SearchUseCase) retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, string) {
	var fallback []domain.Candidate
	fallbackStrategy := domain.StrategyNone

	for _, strategy := range uc.strategies {
		if strategy.LastResort() && len(fallback) > 0 {
			continue
		}
		candidates, err := strategy.Retrieve(ctx, req)
		if err != nil {
			slog.Warn("retrieval_strategy_failed", "strategy", strategy.Name(), "error", err)
			continue
		}
		if strategy.Sufficient(len(candidates)) {
			return candidates, strategy.Name()
		}
		if len(candidates) > 0 && len(fallback) == 0 {
			fallback = candidates
			fallbackStrategy = strategy.Name()
		}
	}
	return fallback, fallbackStrategy
}

// rerank submits the query and truncated candidate texts to the
// cross-encoder. Failure is a soft degradation: the pipeline continues on
// retrieval scores.
func (uc *SearchUseCase) rerank(ctx context.Context, query string, pool []domain.Candidate) ([]domain.Candidate, bool) {
	if uc.reranker == nil || len(pool) == 0 {
		return passthroughScores(pool), false
	}

	documents := make([]string, len(pool))
	for i, c := range pool {
		documents[i] = truncateRunes(c.Content, uc.tuning.RerankMaxChars)
	}

	hits, err := uc.reranker.Rerank(ctx, query, documents, uc.tuning.RerankTopN)
	if err != nil {
		slog.Warn("rerank_unavailable", "error", err)
		return passthroughScores(pool), false
	}
	if len(hits) == 0 {
		return passthroughScores(pool), false
	}

	out := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(pool) {
			continue
		}
		c := pool[hit.Index]
		c.RerankScore = hit.Score
		out = append(out, c)
	}
	if len(out) == 0 {
		return passthroughScores(pool), false
	}
	sortByRerankScore(out)
	return out, true
}

func (uc *SearchUseCase) attachTitles(ctx context.Context, result *domain.SearchResult) error {
	ids := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	collect := func(candidates []domain.Candidate) {
		for _, c := range candidates {
			if c.ManualID == "" {
				continue
			}
			if _, ok := seen[c.ManualID]; ok {
				continue
			}
			seen[c.ManualID] = struct{}{}
			ids = append(ids, c.ManualID)
		}
	}
	collect(result.TextResults)
	collect(result.FigureResults)
	collect(result.AllResults)
	if len(ids) == 0 {
		return nil
	}

	titles, err := uc.manuals.TitlesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("batch title lookup: %w", err)
	}
	apply := func(candidates []domain.Candidate) {
		for i := range candidates {
			candidates[i].ManualTitle = titles[candidates[i].ManualID]
		}
	}
	apply(result.TextResults)
	apply(result.FigureResults)
	apply(result.AllResults)
	return nil
}

func emptyResult(req domain.SearchRequest) *domain.SearchResult {
	message := fmt.Sprintf("no matching content found for %q", req.Query)
	if req.ManualID != "" {
		message = fmt.Sprintf("no matching content found for %q in manual %s", req.Query, req.ManualID)
	}
	return &domain.SearchResult{
		TextResults:   []domain.Candidate{},
		FigureResults: []domain.Candidate{},
		AllResults:    []domain.Candidate{},
		Strategy:      domain.StrategyNone,
		Message:       message,
	}
}

func passthroughScores(pool []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(pool))
	copy(out, pool)
	for i := range out {
		out[i].RerankScore = out[i].Score
	}
	sortByRerankScore(out)
	return out
}

func sortByRerankScore(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RerankScore != candidates[j].RerankScore {
			return candidates[i].RerankScore > candidates[j].RerankScore
		}
		if candidates[i].ManualID != candidates[j].ManualID {
			return candidates[i].ManualID < candidates[j].ManualID
		}
		return candidates[i].ID < candidates[j].ID
	})
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
