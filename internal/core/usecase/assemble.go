package usecase

import (
	"github.com/arcadeops/manual-search/internal/core/domain"
)

// filterIsolation drops every candidate whose manual or tenant differs from
// the requested scope. This is a correctness boundary, not a ranking
// decision: anything removed here leaked past the store-level filters.
func filterIsolation(in []domain.Candidate, req domain.SearchRequest) ([]domain.Candidate, int) {
	if req.ManualID == "" && req.TenantID == "" {
		return in, 0
	}
	out := make([]domain.Candidate, 0, len(in))
	dropped := 0
	for _, c := range in {
		if req.ManualID != "" && c.ManualID != req.ManualID {
			dropped++
			continue
		}
		if req.TenantID != "" && c.TenantID != req.TenantID {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

// assembleResults partitions the diversified selection into capped text and
// figure lists. Under visual intent an empty figure list is repaired from
// the full scored pool, trading one text slot for the best available figure.
func assembleResults(
	selected []domain.Candidate,
	pool []domain.Candidate,
	visualIntent bool,
	strategy string,
	reranked bool,
	totalCandidates int,
	tuning SearchTuning,
) *domain.SearchResult {
	texts := make([]domain.Candidate, 0, tuning.TextResultCap)
	figures := make([]domain.Candidate, 0, tuning.FigureResultCap)
	for _, c := range selected {
		if c.ContentType == domain.ContentFigure {
			figures = append(figures, c)
		} else {
			texts = append(texts, c)
		}
	}

	textCap := tuning.TextResultCap
	if visualIntent && len(figures) == 0 {
		if best, ok := bestFigure(pool); ok {
			figures = append(figures, best)
			textCap--
		}
	}

	if len(texts) > textCap {
		texts = texts[:textCap]
	}
	if len(figures) > tuning.FigureResultCap {
		figures = figures[:tuning.FigureResultCap]
	}

	all := make([]domain.Candidate, 0, len(texts)+len(figures))
	all = append(all, texts...)
	all = append(all, figures...)
	sortByRerankScore(all)
	if len(all) > tuning.TextResultCap {
		all = all[:tuning.TextResultCap]
	}

	return &domain.SearchResult{
		TextResults:     texts,
		FigureResults:   figures,
		AllResults:      all,
		Count:           len(all),
		TotalCandidates: totalCandidates,
		Strategy:        strategy,
		Reranked:        reranked,
	}
}

func bestFigure(pool []domain.Candidate) (domain.Candidate, bool) {
	best := domain.Candidate{}
	found := false
	for _, c := range pool {
		if c.ContentType != domain.ContentFigure {
			continue
		}
		if !found || c.RerankScore > best.RerankScore {
			best = c
			found = true
		}
	}
	return best, found
}
