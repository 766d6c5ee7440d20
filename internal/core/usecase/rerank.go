package usecase

import (
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// visualIntentTerms is the fixed lexical set signalling that the user wants
// a diagram or image. Deliberately a word match, not a classifier.
var visualIntentTerms = map[string]struct{}{
	"diagram":      {},
	"show":         {},
	"illustration": {},
	"schematic":    {},
	"drawing":      {},
	"image":        {},
	"picture":      {},
	"figure":       {},
}

func hasVisualIntent(query string) bool {
	for _, token := range splitAlphaNumLower(query) {
		if _, ok := visualIntentTerms[token]; ok {
			return true
		}
	}
	return false
}

// adjustContentTypeScores penalizes figures that are really text in disguise
// (section headers, plain snippets) and boosts genuine visual figures. Pure
// function of fixed fields: applying it twice stabilizes ordering after one
// pass.
func adjustContentTypeScores(in []domain.Candidate, tuning SearchTuning) []domain.Candidate {
	out := make([]domain.Candidate, len(in))
	copy(out, in)
	for i := range out {
		if out[i].ContentType != domain.ContentFigure {
			continue
		}
		if isTextLikeFigure(out[i].FigureType) {
			out[i].RerankScore *= tuning.FigureTextPenalty
		} else {
			out[i].RerankScore *= tuning.FigureBoost
		}
	}
	sortByRerankScore(out)
	return out
}

func isTextLikeFigure(figureType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(figureType))
	if normalized == "" {
		return false
	}
	for _, marker := range []string{"text", "header", "heading", "toc"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// applyVisualBoosts raises figures co-located with the highest-ranked text
// candidates (anchor pages) and, when the query lexically asks for visuals,
// all figures. Boosts compose multiplicatively.
func applyVisualBoosts(in []domain.Candidate, visualIntent bool, tuning SearchTuning) []domain.Candidate {
	out := make([]domain.Candidate, len(in))
	copy(out, in)

	anchors := anchorPages(out, tuning.AnchorTextTopN)
	for i := range out {
		if out[i].ContentType != domain.ContentFigure {
			continue
		}
		if out[i].PageStart != nil {
			if _, ok := anchors[*out[i].PageStart]; ok {
				out[i].RerankScore *= tuning.AnchorPageBoost
			}
		}
		if visualIntent {
			out[i].RerankScore *= tuning.VisualIntentBoost
		}
	}
	sortByRerankScore(out)
	return out
}

// anchorPages collects the page_start values of the top N text candidates by
// current ordering.
func anchorPages(candidates []domain.Candidate, topN int) map[int]struct{} {
	out := make(map[int]struct{}, topN)
	seen := 0
	for _, c := range candidates {
		if c.ContentType != domain.ContentText {
			continue
		}
		if c.PageStart != nil {
			out[*c.PageStart] = struct{}{}
		}
		seen++
		if seen >= topN {
			break
		}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		default:
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
