package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// RundownTuning caps the shape of a sectioned summary.
type RundownTuning struct {
	MaxSections  int
	GistChars    int
	MaxCitations int
	SummaryChars int
}

func DefaultRundownTuning() RundownTuning {
	return RundownTuning{
		MaxSections:  8,
		GistChars:    900,
		MaxCitations: 3,
		SummaryChars: 280,
	}
}

// RundownUseCase delegates to the search pipeline and clusters results by
// top-level section path into a compact, citation-bearing summary.
type RundownUseCase struct {
	search ports.SearchService
	tuning RundownTuning
}

func NewRundownUseCase(search ports.SearchService, tuning RundownTuning) *RundownUseCase {
	def := DefaultRundownTuning()
	if tuning.MaxSections <= 0 {
		tuning.MaxSections = def.MaxSections
	}
	if tuning.GistChars <= 0 {
		tuning.GistChars = def.GistChars
	}
	if tuning.MaxCitations <= 0 {
		tuning.MaxCitations = def.MaxCitations
	}
	if tuning.SummaryChars <= 0 {
		tuning.SummaryChars = def.SummaryChars
	}
	return &RundownUseCase{search: search, tuning: tuning}
}

func (uc *RundownUseCase) Rundown(ctx context.Context, req domain.RundownRequest) (*domain.Rundown, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rundown", errors.New("query text is required"))
	}

	searchReq := domain.SearchRequest{
		Query:    joinQueryHints(query, req.System, req.Vendor),
		ManualID: req.ManualID,
		TenantID: req.TenantID,
		TopK:     req.Limit,
	}
	result, err := uc.search.Search(ctx, searchReq)
	if err != nil {
		return nil, err
	}
	if len(result.AllResults) == 0 {
		return &domain.Rundown{
			OK:       true,
			Summary:  result.Message,
			Sections: []domain.RundownSection{},
		}, nil
	}

	sections := uc.clusterBySection(result.AllResults)
	summary := ""
	if len(sections) > 0 {
		summary = truncateRunes(sections[0].Gist, uc.tuning.SummaryChars)
	}
	return &domain.Rundown{
		OK:       true,
		Summary:  summary,
		Sections: sections,
	}, nil
}

// clusterBySection groups candidates by the first segment of their section
// path, preserving relevance order (first-seen section order follows score
// order of the underlying results).
func (uc *RundownUseCase) clusterBySection(candidates []domain.Candidate) []domain.RundownSection {
	order := make([]string, 0, uc.tuning.MaxSections)
	grouped := make(map[string][]domain.Candidate, uc.tuning.MaxSections)

	for _, c := range candidates {
		title := topLevelSection(c.SectionPath)
		if _, ok := grouped[title]; !ok {
			if len(order) >= uc.tuning.MaxSections {
				continue
			}
			order = append(order, title)
		}
		grouped[title] = append(grouped[title], c)
	}

	sections := make([]domain.RundownSection, 0, len(order))
	for _, title := range order {
		members := grouped[title]

		var gist strings.Builder
		for _, m := range members {
			if gist.Len() > 0 {
				gist.WriteString(" ")
			}
			gist.WriteString(strings.TrimSpace(m.Content))
			if gist.Len() >= uc.tuning.GistChars {
				break
			}
		}

		citations := make([]domain.Citation, 0, uc.tuning.MaxCitations)
		seen := make(map[domain.Citation]struct{}, uc.tuning.MaxCitations)
		for _, m := range members {
			if len(citations) >= uc.tuning.MaxCitations {
				break
			}
			citation := domain.Citation{ManualID: m.ManualID}
			if m.PageStart != nil {
				citation.Page = *m.PageStart
			}
			if _, ok := seen[citation]; ok {
				continue
			}
			seen[citation] = struct{}{}
			citations = append(citations, citation)
		}

		sections = append(sections, domain.RundownSection{
			Title:     title,
			Gist:      truncateRunes(gist.String(), uc.tuning.GistChars),
			Citations: citations,
		})
	}
	return sections
}

func topLevelSection(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "General"
	}
	for _, sep := range []string{">", "/", "|"} {
		if idx := strings.Index(path, sep); idx >= 0 {
			path = path[:idx]
			break
		}
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "General"
	}
	return path
}

func joinQueryHints(query string, hints ...string) string {
	parts := []string{query}
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, " ")
}
