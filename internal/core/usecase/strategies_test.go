package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type queryEmbedderFake struct {
	vector []float32
	err    error
	query  string
}

func (f *queryEmbedderFake) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not used")
}
func (f *queryEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	return f.vector, f.err
}

type chunkVectorsFake struct {
	candidates []domain.Candidate
	err        error
	gotLimit   int
	gotMin     float64
	gotScope   domain.SearchRequest
}

func (f *chunkVectorsFake) IndexChunks(context.Context, *domain.Manual, []domain.Chunk, [][]float32) error {
	return nil
}
func (f *chunkVectorsFake) SearchChunks(_ context.Context, _ []float32, limit int, minScore float64, scope domain.SearchRequest) ([]domain.Candidate, error) {
	f.gotLimit = limit
	f.gotMin = minScore
	f.gotScope = scope
	return f.candidates, f.err
}

type figureVectorsFake struct {
	candidates []domain.Candidate
	err        error
	indexed    []domain.Figure
}

func (f *figureVectorsFake) IndexFigure(_ context.Context, figure domain.Figure, _ []float32) error {
	f.indexed = append(f.indexed, figure)
	return nil
}
func (f *figureVectorsFake) SearchFigures(context.Context, []float32, int, float64, domain.SearchRequest) ([]domain.Candidate, error) {
	return f.candidates, f.err
}

func TestDenseStrategyInterleavesChunksAndFigures(t *testing.T) {
	embedder := &queryEmbedderFake{vector: []float32{0.1, 0.2}}
	chunks := &chunkVectorsFake{candidates: []domain.Candidate{
		{ID: "c1", ContentType: domain.ContentText, Score: 0.9},
		{ID: "c2", ContentType: domain.ContentText, Score: 0.4},
	}}
	figures := &figureVectorsFake{candidates: []domain.Candidate{
		{ID: "f1", ContentType: domain.ContentFigure, Score: 0.7},
	}}

	s := NewDenseStrategy(embedder, chunks, figures, 3, 0.18)
	out, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "coin jam", TopK: 10, TenantID: "t1"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 merged candidates, got %d", len(out))
	}
	if out[0].ID != "c1" || out[1].ID != "f1" || out[2].ID != "c2" {
		t.Fatalf("expected score-ordered interleave, got %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
	if embedder.query != "coin jam" {
		t.Fatalf("expected query embedded, got %q", embedder.query)
	}
	if chunks.gotLimit != 10 || chunks.gotMin != 0.18 || chunks.gotScope.TenantID != "t1" {
		t.Fatalf("expected limit/min/scope forwarded, got %d/%v/%+v", chunks.gotLimit, chunks.gotMin, chunks.gotScope)
	}
}

func TestDenseStrategyTrimsToTopK(t *testing.T) {
	embedder := &queryEmbedderFake{vector: []float32{0.1}}
	chunks := &chunkVectorsFake{candidates: []domain.Candidate{
		{ID: "c1", Score: 0.9}, {ID: "c2", Score: 0.8}, {ID: "c3", Score: 0.7},
	}}

	s := NewDenseStrategy(embedder, chunks, nil, 3, 0)
	out, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(out) != 2 || out[0].ID != "c1" {
		t.Fatalf("expected top 2 by score, got %+v", out)
	}
}

func TestDenseStrategySurvivesFigureFailure(t *testing.T) {
	embedder := &queryEmbedderFake{vector: []float32{0.1}}
	chunks := &chunkVectorsFake{candidates: []domain.Candidate{{ID: "c1", Score: 0.9}}}
	figures := &figureVectorsFake{err: errors.New("collection missing")}

	s := NewDenseStrategy(embedder, chunks, figures, 1, 0)
	out, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("figure failure must be soft, got %v", err)
	}
	if len(out) != 1 || out[0].ID != "c1" {
		t.Fatalf("expected the chunk hit kept, got %+v", out)
	}
}

func TestDenseStrategyEmbedFailureIsFatal(t *testing.T) {
	embedder := &queryEmbedderFake{err: errors.New("ollama down")}
	s := NewDenseStrategy(embedder, &chunkVectorsFake{}, nil, 1, 0)
	if _, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "q"}); err == nil {
		t.Fatalf("expected error when embedding fails")
	}
}

func TestDenseStrategySufficiency(t *testing.T) {
	s := NewDenseStrategy(nil, nil, nil, 3, 0)
	if s.Sufficient(2) {
		t.Fatalf("2 hits must be insufficient with min 3")
	}
	if !s.Sufficient(3) {
		t.Fatalf("3 hits must be sufficient with min 3")
	}
}

func TestSubstringStrategyFlatScores(t *testing.T) {
	chunks := &chunkStoreFake{}
	chunks.substringHits = []domain.Candidate{
		{ID: "c1", Score: 0.9, ContentType: domain.ContentFigure},
		{ID: "c2"},
	}

	s := NewSubstringStrategy(chunks)
	out, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "E42"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, c := range out {
		if c.Score != substringFlatScore {
			t.Fatalf("expected flat score %v, got %v", substringFlatScore, c.Score)
		}
		if c.ContentType != domain.ContentText {
			t.Fatalf("substring hits must be text, got %s", c.ContentType)
		}
	}
	if !s.Sufficient(1) || s.Sufficient(0) {
		t.Fatalf("substring is sufficient on any hit")
	}
}

func TestLexicalStrategyForwardsQuery(t *testing.T) {
	chunks := &chunkStoreFake{}
	chunks.lexicalHits = []domain.Candidate{{ID: "c1", Score: 0.3}}

	s := NewLexicalStrategy(chunks)
	out, err := s.Retrieve(context.Background(), domain.SearchRequest{Query: "ticket dispenser", TopK: 5})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "c1" {
		t.Fatalf("expected the lexical hit, got %+v", out)
	}
	if chunks.lexicalQuery != "ticket dispenser" || chunks.lexicalLimit != 5 {
		t.Fatalf("expected query/limit forwarded, got %q/%d", chunks.lexicalQuery, chunks.lexicalLimit)
	}
}
