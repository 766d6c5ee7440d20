package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type stubStrategy struct {
	name       string
	candidates []domain.Candidate
	err        error
	minHits    int
	lastResort bool
	calls      int
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Retrieve(context.Context, domain.SearchRequest) ([]domain.Candidate, error) {
	s.calls++
	return s.candidates, s.err
}
func (s *stubStrategy) Sufficient(count int) bool {
	min := s.minHits
	if min <= 0 {
		min = 1
	}
	return count >= min
}
func (s *stubStrategy) LastResort() bool { return s.lastResort }

type stubReranker struct {
	hits      []domain.RerankHit
	err       error
	gotQuery  string
	gotDocs   []string
	gotTopN   int
	callCount int
}

func (r *stubReranker) Rerank(_ context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error) {
	r.callCount++
	r.gotQuery = query
	r.gotDocs = documents
	r.gotTopN = topN
	return r.hits, r.err
}

type titlesRepoFake struct {
	titles map[string]string
	err    error
}

func (f *titlesRepoFake) Create(context.Context, *domain.Manual) error { return nil }
func (f *titlesRepoFake) GetByID(context.Context, string) (*domain.Manual, error) {
	return nil, domain.ErrManualNotFound
}
func (f *titlesRepoFake) TitlesByIDs(context.Context, []string) (map[string]string, error) {
	return f.titles, f.err
}
func (f *titlesRepoFake) UpdateStatus(context.Context, string, domain.ManualStatus, string) error {
	return nil
}
func (f *titlesRepoFake) UpdateMetadata(context.Context, *domain.Manual) error { return nil }

func textCandidate(id, manualID, content string, score float64) domain.Candidate {
	return domain.Candidate{
		ID:          id,
		ManualID:    manualID,
		Content:     content,
		ContentType: domain.ContentText,
		Score:       score,
	}
}

func TestSearchFallsThroughToLexical(t *testing.T) {
	dense := &stubStrategy{
		name:    domain.StrategyVector,
		minHits: 3,
		candidates: []domain.Candidate{
			textCandidate("d1", "m1", "thin dense hit", 0.9),
		},
	}
	lexical := &stubStrategy{
		name: domain.StrategyText,
		candidates: []domain.Candidate{
			textCandidate("l1", "m1", "coin mech jam", 0.4),
			textCandidate("l2", "m1", "hopper error", 0.3),
		},
	}
	reranker := &stubReranker{hits: []domain.RerankHit{{Index: 0, Score: 0.8}, {Index: 1, Score: 0.6}}}

	uc := NewSearchUseCase([]RetrievalStrategy{dense, lexical}, reranker, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "coin jam"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Strategy != domain.StrategyText {
		t.Fatalf("expected strategy %s, got %s", domain.StrategyText, result.Strategy)
	}
	if !result.Reranked {
		t.Fatalf("expected reranked result")
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 results, got %d", result.Count)
	}
}

func TestSearchKeepsThinDenseAsFallback(t *testing.T) {
	dense := &stubStrategy{
		name:    domain.StrategyVector,
		minHits: 3,
		candidates: []domain.Candidate{
			textCandidate("d1", "m1", "partial dense hit", 0.9),
			textCandidate("d2", "m1", "second dense hit", 0.7),
		},
	}
	lexical := &stubStrategy{name: domain.StrategyText}
	substring := &stubStrategy{name: domain.StrategySubstring}

	uc := NewSearchUseCase([]RetrievalStrategy{dense, lexical, substring}, nil, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Strategy != domain.StrategyVector {
		t.Fatalf("expected thin dense fallback, got strategy %s", result.Strategy)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 results, got %d", result.Count)
	}
	if result.Reranked {
		t.Fatalf("expected degraded ordering without a reranker")
	}
}

func TestSearchThinDenseBeatsLastResort(t *testing.T) {
	dense := &stubStrategy{
		name:    domain.StrategyVector,
		minHits: 3,
		candidates: []domain.Candidate{
			textCandidate("d1", "m1", "partial dense hit", 0.9),
			textCandidate("d2", "m1", "second dense hit", 0.7),
		},
	}
	lexical := &stubStrategy{name: domain.StrategyText}
	substring := &stubStrategy{
		name:       domain.StrategySubstring,
		lastResort: true,
		candidates: []domain.Candidate{
			textCandidate("s1", "m1", "flat substring hit", 0.5),
		},
	}

	uc := NewSearchUseCase([]RetrievalStrategy{dense, lexical, substring}, nil, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "error 42"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Strategy != domain.StrategyVector {
		t.Fatalf("expected thin dense fallback over last resort, got strategy %s", result.Strategy)
	}
	if result.Count != 2 || result.AllResults[0].ID != "d1" {
		t.Fatalf("expected the dense hits, got %+v", result.AllResults)
	}
	if substring.calls != 0 {
		t.Fatalf("last-resort strategy must not run against a kept fallback")
	}
}

func TestSearchLastResortRunsOnEmptyLadder(t *testing.T) {
	dense := &stubStrategy{name: domain.StrategyVector, minHits: 3}
	lexical := &stubStrategy{name: domain.StrategyText}
	substring := &stubStrategy{
		name:       domain.StrategySubstring,
		lastResort: true,
		candidates: []domain.Candidate{
			textCandidate("s1", "m1", "flat substring hit", 0.5),
		},
	}

	uc := NewSearchUseCase([]RetrievalStrategy{dense, lexical, substring}, nil, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "E42"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Strategy != domain.StrategySubstring || result.Count != 1 {
		t.Fatalf("expected the last resort to serve an otherwise empty ladder, got %+v", result)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	uc := NewSearchUseCase(nil, nil, &titlesRepoFake{}, SearchTuning{})
	_, err := uc.Search(context.Background(), domain.SearchRequest{Query: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSearchNoResultsMessage(t *testing.T) {
	empty := &stubStrategy{name: domain.StrategyVector}
	uc := NewSearchUseCase([]RetrievalStrategy{empty}, nil, &titlesRepoFake{}, SearchTuning{})

	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "ghost", ManualID: "m-404"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Strategy != domain.StrategyNone {
		t.Fatalf("expected strategy none, got %s", result.Strategy)
	}
	if result.TextResults == nil || result.FigureResults == nil || result.AllResults == nil {
		t.Fatalf("expected empty slices, not nil")
	}
	if !strings.Contains(result.Message, "ghost") || !strings.Contains(result.Message, "m-404") {
		t.Fatalf("expected message to reference query and manual, got %q", result.Message)
	}
}

func TestSearchRerankFailureDegradesToRetrievalOrder(t *testing.T) {
	lexical := &stubStrategy{
		name: domain.StrategyText,
		candidates: []domain.Candidate{
			textCandidate("a", "m1", "low", 0.2),
			textCandidate("b", "m1", "high", 0.9),
		},
	}
	reranker := &stubReranker{err: errors.New("cross-encoder down")}

	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, reranker, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Reranked {
		t.Fatalf("expected reranked=false on rerank failure")
	}
	if result.AllResults[0].ID != "b" {
		t.Fatalf("expected retrieval-score order, got %s first", result.AllResults[0].ID)
	}
	if result.AllResults[0].RerankScore != result.AllResults[0].Score {
		t.Fatalf("expected rerank score mirroring retrieval score in degraded mode")
	}
}

func TestSearchRerankWindowLimitsResults(t *testing.T) {
	pool := make([]domain.Candidate, 0, 20)
	for i := 0; i < 20; i++ {
		pool = append(pool, textCandidate(
			string(rune('a'+i)), "m1", strings.Repeat("word ", i+1), 0.5,
		))
	}
	lexical := &stubStrategy{name: domain.StrategyText, candidates: pool}
	reranker := &stubReranker{hits: []domain.RerankHit{
		{Index: 3, Score: 0.9},
		{Index: 7, Score: 0.7},
	}}

	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, reranker, &titlesRepoFake{}, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reranker.gotTopN != 15 {
		t.Fatalf("expected rerank window of 15, got %d", reranker.gotTopN)
	}
	if len(reranker.gotDocs) != 20 {
		t.Fatalf("expected all 20 candidates submitted, got %d", len(reranker.gotDocs))
	}
	if result.Count != 2 {
		t.Fatalf("expected only window hits to survive, got %d", result.Count)
	}
	if result.TotalCandidates != 20 {
		t.Fatalf("expected total_candidates=20, got %d", result.TotalCandidates)
	}
	if result.AllResults[0].ID != "d" {
		t.Fatalf("expected top rerank hit first, got %s", result.AllResults[0].ID)
	}
}

func TestSearchTruncatesRerankDocuments(t *testing.T) {
	long := strings.Repeat("x", 2000)
	lexical := &stubStrategy{
		name:       domain.StrategyText,
		candidates: []domain.Candidate{textCandidate("a", "m1", long, 0.5)},
	}
	reranker := &stubReranker{hits: []domain.RerankHit{{Index: 0, Score: 0.9}}}

	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, reranker, &titlesRepoFake{}, SearchTuning{})
	if _, err := uc.Search(context.Background(), domain.SearchRequest{Query: "q"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := len(reranker.gotDocs[0]); got != 1500 {
		t.Fatalf("expected document truncated to 1500 chars, got %d", got)
	}
}

func TestSearchDropsForeignCandidates(t *testing.T) {
	foreign := textCandidate("x", "other-manual", "leaked content", 0.99)
	foreign.TenantID = "tenant-b"
	mine := textCandidate("a", "m1", "my content", 0.5)
	mine.TenantID = "tenant-a"

	lexical := &stubStrategy{name: domain.StrategyText, candidates: []domain.Candidate{foreign, mine}}
	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, nil, &titlesRepoFake{}, SearchTuning{})

	result, err := uc.Search(context.Background(), domain.SearchRequest{
		Query:    "content",
		ManualID: "m1",
		TenantID: "tenant-a",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Count != 1 || result.AllResults[0].ID != "a" {
		t.Fatalf("expected only the scoped candidate, got %+v", result.AllResults)
	}
	if result.IsolationDropped != 1 {
		t.Fatalf("expected 1 dropped candidate, got %d", result.IsolationDropped)
	}
}

func TestSearchAttachesManualTitles(t *testing.T) {
	lexical := &stubStrategy{
		name:       domain.StrategyText,
		candidates: []domain.Candidate{textCandidate("a", "m1", "content", 0.5)},
	}
	repo := &titlesRepoFake{titles: map[string]string{"m1": "Street Racer Deluxe"}}

	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, nil, repo, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.AllResults[0].ManualTitle != "Street Racer Deluxe" {
		t.Fatalf("expected manual title attached, got %q", result.AllResults[0].ManualTitle)
	}
}

func TestSearchSurvivesTitleLookupFailure(t *testing.T) {
	lexical := &stubStrategy{
		name:       domain.StrategyText,
		candidates: []domain.Candidate{textCandidate("a", "m1", "content", 0.5)},
	}
	repo := &titlesRepoFake{err: errors.New("db down")}

	uc := NewSearchUseCase([]RetrievalStrategy{lexical}, nil, repo, SearchTuning{})
	result, err := uc.Search(context.Background(), domain.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected results despite title failure, got %d", result.Count)
	}
}
