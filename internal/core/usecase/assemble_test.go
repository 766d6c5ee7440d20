package usecase

import (
	"fmt"
	"testing"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

func TestFilterIsolation(t *testing.T) {
	in := []domain.Candidate{
		{ID: "ok", ManualID: "m1", TenantID: "t1"},
		{ID: "wrong-manual", ManualID: "m2", TenantID: "t1"},
		{ID: "wrong-tenant", ManualID: "m1", TenantID: "t2"},
	}

	out, dropped := filterIsolation(in, domain.SearchRequest{ManualID: "m1", TenantID: "t1"})
	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("expected only the scoped candidate, got %+v", out)
	}
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}

	out, dropped = filterIsolation(in, domain.SearchRequest{})
	if len(out) != 3 || dropped != 0 {
		t.Fatalf("unscoped request must pass everything through, got %d/%d", len(out), dropped)
	}
}

func TestAssembleResultsAppliesCaps(t *testing.T) {
	tuning := DefaultSearchTuning()
	selected := make([]domain.Candidate, 0, 20)
	for i := 0; i < 14; i++ {
		selected = append(selected, domain.Candidate{
			ID:          fmt.Sprintf("t%02d", i),
			ContentType: domain.ContentText,
			RerankScore: 1.0 - float64(i)*0.01,
		})
	}
	for i := 0; i < 6; i++ {
		selected = append(selected, domain.Candidate{
			ID:          fmt.Sprintf("f%02d", i),
			ContentType: domain.ContentFigure,
			RerankScore: 0.5 - float64(i)*0.01,
		})
	}

	result := assembleResults(selected, selected, false, domain.StrategyVector, true, 40, tuning)
	if len(result.TextResults) != tuning.TextResultCap {
		t.Fatalf("expected %d text results, got %d", tuning.TextResultCap, len(result.TextResults))
	}
	if len(result.FigureResults) != tuning.FigureResultCap {
		t.Fatalf("expected %d figure results, got %d", tuning.FigureResultCap, len(result.FigureResults))
	}
	if len(result.AllResults) != tuning.TextResultCap {
		t.Fatalf("expected combined list capped at %d, got %d", tuning.TextResultCap, len(result.AllResults))
	}
	if result.Count != len(result.AllResults) {
		t.Fatalf("count must match combined list, got %d vs %d", result.Count, len(result.AllResults))
	}
	if result.TotalCandidates != 40 {
		t.Fatalf("expected total candidates preserved, got %d", result.TotalCandidates)
	}
	for i := 1; i < len(result.AllResults); i++ {
		if result.AllResults[i].RerankScore > result.AllResults[i-1].RerankScore {
			t.Fatalf("combined list not sorted at position %d", i)
		}
	}
}

func TestAssembleResultsForcesFigureUnderVisualIntent(t *testing.T) {
	tuning := DefaultSearchTuning()
	selected := make([]domain.Candidate, 0, tuning.TextResultCap+2)
	for i := 0; i < tuning.TextResultCap+2; i++ {
		selected = append(selected, domain.Candidate{
			ID:          fmt.Sprintf("t%02d", i),
			ContentType: domain.ContentText,
			RerankScore: 1.0 - float64(i)*0.01,
		})
	}
	pool := append([]domain.Candidate{}, selected...)
	pool = append(pool,
		domain.Candidate{ID: "fig-weak", ContentType: domain.ContentFigure, RerankScore: 0.1},
		domain.Candidate{ID: "fig-best", ContentType: domain.ContentFigure, RerankScore: 0.3},
	)

	result := assembleResults(selected, pool, true, domain.StrategyVector, true, len(pool), tuning)
	if len(result.FigureResults) != 1 || result.FigureResults[0].ID != "fig-best" {
		t.Fatalf("expected the best pool figure forced in, got %+v", result.FigureResults)
	}
	if len(result.TextResults) != tuning.TextResultCap-1 {
		t.Fatalf("forced figure must cost a text slot, got %d texts", len(result.TextResults))
	}
}

func TestAssembleResultsNoForcedFigureWithoutVisualIntent(t *testing.T) {
	tuning := DefaultSearchTuning()
	selected := []domain.Candidate{
		{ID: "t1", ContentType: domain.ContentText, RerankScore: 0.9},
	}
	pool := append([]domain.Candidate{}, selected...)
	pool = append(pool, domain.Candidate{ID: "f1", ContentType: domain.ContentFigure, RerankScore: 0.8})

	result := assembleResults(selected, pool, false, domain.StrategyText, false, len(pool), tuning)
	if len(result.FigureResults) != 0 {
		t.Fatalf("expected no forced figure without visual intent, got %+v", result.FigureResults)
	}
	if len(result.TextResults) != 1 {
		t.Fatalf("expected the single text result, got %d", len(result.TextResults))
	}
}
