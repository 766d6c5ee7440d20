package usecase

import (
	"context"
	"testing"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type searchServiceFake struct {
	result  *domain.SearchResult
	err     error
	gotReq  domain.SearchRequest
	wasUsed bool
}

func (f *searchServiceFake) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	f.wasUsed = true
	f.gotReq = req
	return f.result, f.err
}

func TestRundownRejectsEmptyQuery(t *testing.T) {
	uc := NewRundownUseCase(&searchServiceFake{}, RundownTuning{})
	_, err := uc.Rundown(context.Background(), domain.RundownRequest{Query: " "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRundownPassesScopeAndHints(t *testing.T) {
	search := &searchServiceFake{result: &domain.SearchResult{AllResults: []domain.Candidate{}}}
	uc := NewRundownUseCase(search, RundownTuning{})

	_, err := uc.Rundown(context.Background(), domain.RundownRequest{
		Query:    "volume stuck at max",
		ManualID: "m1",
		TenantID: "t1",
		System:   "audio board",
		Vendor:   "Konami",
		Limit:    30,
	})
	if err != nil {
		t.Fatalf("Rundown() error = %v", err)
	}
	if search.gotReq.Query != "volume stuck at max audio board Konami" {
		t.Fatalf("expected hints appended to the query, got %q", search.gotReq.Query)
	}
	if search.gotReq.ManualID != "m1" || search.gotReq.TenantID != "t1" || search.gotReq.TopK != 30 {
		t.Fatalf("expected scope forwarded, got %+v", search.gotReq)
	}
}

func TestRundownEmptyResultsStillOK(t *testing.T) {
	search := &searchServiceFake{result: &domain.SearchResult{
		AllResults: []domain.Candidate{},
		Message:    "no matching content found",
	}}
	uc := NewRundownUseCase(search, RundownTuning{})

	rundown, err := uc.Rundown(context.Background(), domain.RundownRequest{Query: "ghost"})
	if err != nil {
		t.Fatalf("Rundown() error = %v", err)
	}
	if !rundown.OK {
		t.Fatalf("empty result must still be OK")
	}
	if rundown.Summary != "no matching content found" {
		t.Fatalf("expected the search message as summary, got %q", rundown.Summary)
	}
	if rundown.Sections == nil || len(rundown.Sections) != 0 {
		t.Fatalf("expected empty non-nil sections, got %v", rundown.Sections)
	}
}

func TestRundownClustersByTopLevelSection(t *testing.T) {
	page4, page9 := 4, 9
	search := &searchServiceFake{result: &domain.SearchResult{AllResults: []domain.Candidate{
		{ManualID: "m1", SectionPath: "4. Maintenance > Coin Mech", Content: "Clean the coin mech monthly.", PageStart: &page4},
		{ManualID: "m1", SectionPath: "4. Maintenance / Hopper", Content: "Inspect the hopper belt.", PageStart: &page4},
		{ManualID: "m1", SectionPath: "7. Wiring", Content: "Harness pinout overview.", PageStart: &page9},
		{ManualID: "m1", Content: "Unfiled troubleshooting note."},
	}}}
	uc := NewRundownUseCase(search, RundownTuning{})

	rundown, err := uc.Rundown(context.Background(), domain.RundownRequest{Query: "maintenance"})
	if err != nil {
		t.Fatalf("Rundown() error = %v", err)
	}
	if len(rundown.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(rundown.Sections))
	}
	if rundown.Sections[0].Title != "4. Maintenance" {
		t.Fatalf("expected relevance-ordered sections, got %q first", rundown.Sections[0].Title)
	}
	if rundown.Sections[2].Title != "General" {
		t.Fatalf("expected pathless results under General, got %q", rundown.Sections[2].Title)
	}

	maintenance := rundown.Sections[0]
	if len(maintenance.Citations) != 1 {
		t.Fatalf("same manual+page must collapse to one citation, got %v", maintenance.Citations)
	}
	if maintenance.Citations[0].Page != 4 {
		t.Fatalf("expected citation page 4, got %d", maintenance.Citations[0].Page)
	}
	if maintenance.Gist == "" || rundown.Summary == "" {
		t.Fatalf("expected a gist and summary")
	}
}

func TestRundownCapsSections(t *testing.T) {
	results := []domain.Candidate{
		{ManualID: "m1", SectionPath: "1. Setup", Content: "a"},
		{ManualID: "m1", SectionPath: "2. Play", Content: "b"},
		{ManualID: "m1", SectionPath: "3. Service", Content: "c"},
	}
	search := &searchServiceFake{result: &domain.SearchResult{AllResults: results}}
	uc := NewRundownUseCase(search, RundownTuning{MaxSections: 2})

	rundown, err := uc.Rundown(context.Background(), domain.RundownRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Rundown() error = %v", err)
	}
	if len(rundown.Sections) != 2 {
		t.Fatalf("expected sections capped at 2, got %d", len(rundown.Sections))
	}
}

func TestTopLevelSection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4. Maintenance > Coin Mech", "4. Maintenance"},
		{"Wiring/Harness", "Wiring"},
		{"Audio | Amp", "Audio"},
		{"  ", "General"},
		{">", "General"},
		{"Plain Section", "Plain Section"},
	}
	for _, tc := range cases {
		if got := topLevelSection(tc.in); got != tc.want {
			t.Fatalf("topLevelSection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
