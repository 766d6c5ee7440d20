package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type statusTrackingManuals struct {
	manualStoreFake
	statuses  []domain.ManualStatus
	lastError string
}

func (f *statusTrackingManuals) UpdateStatus(_ context.Context, _ string, status domain.ManualStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastError = errMessage
	return nil
}

type extractorFake struct {
	pages []domain.PageText
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.Manual) ([]domain.PageText, error) {
	return f.pages, f.err
}

type chunkerFake struct {
	chunks []domain.Chunk
}

func (f *chunkerFake) Split([]domain.PageText) []domain.Chunk {
	out := make([]domain.Chunk, len(f.chunks))
	copy(out, f.chunks)
	return out
}

type batchEmbedderFake struct {
	err error
}

func (f *batchEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}
func (f *batchEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

type vectorIndexFake struct {
	indexedChunks int
	err           error
}

func (f *vectorIndexFake) IndexChunks(_ context.Context, _ *domain.Manual, chunks []domain.Chunk, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexedChunks = len(chunks)
	return nil
}
func (f *vectorIndexFake) SearchChunks(context.Context, []float32, int, float64, domain.SearchRequest) ([]domain.Candidate, error) {
	return nil, nil
}

type processFixtureParts struct {
	manuals       *statusTrackingManuals
	chunkStore    *chunkStoreFake
	vectors       *vectorIndexFake
	figureStore   *figureStoreFake
	figureVectors *figureVectorsFake
}

func processFixture() (processFixtureParts, *ProcessManualUseCase) {
	parts := processFixtureParts{
		manuals:       &statusTrackingManuals{},
		chunkStore:    &chunkStoreFake{byManual: map[string][]domain.Chunk{}},
		vectors:       &vectorIndexFake{},
		figureStore:   &figureStoreFake{byManual: map[string][]domain.Figure{}},
		figureVectors: &figureVectorsFake{},
	}
	parts.manuals.manuals = map[string]*domain.Manual{
		"m1": {ID: "m1", TenantID: "t1", Title: "Claw Machine"},
	}
	uc := NewProcessManualUseCase(
		parts.manuals,
		&extractorFake{pages: []domain.PageText{{Number: 1, Text: "page one"}, {Number: 2, Text: "page two"}}},
		&chunkerFake{chunks: []domain.Chunk{{Content: "page one"}, {Content: "page two"}}},
		&batchEmbedderFake{},
		parts.vectors,
		parts.chunkStore,
		parts.figureStore,
		parts.figureVectors,
	)
	return parts, uc
}

func TestProcessByIDHappyPath(t *testing.T) {
	parts, uc := processFixture()
	manuals, chunkStore, vectors := parts.manuals, parts.chunkStore, parts.vectors

	if err := uc.ProcessByID(context.Background(), "m1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(manuals.statuses) != 2 || manuals.statuses[0] != domain.ManualProcessing || manuals.statuses[1] != domain.ManualReady {
		t.Fatalf("expected processing then ready, got %v", manuals.statuses)
	}
	if vectors.indexedChunks != 2 {
		t.Fatalf("expected 2 chunks indexed, got %d", vectors.indexedChunks)
	}
	if len(chunkStore.inserted) != 2 {
		t.Fatalf("expected 2 chunk rows, got %d", len(chunkStore.inserted))
	}
	for _, c := range chunkStore.inserted {
		if c.ID == "" || c.ManualID != "m1" || c.TenantID != "t1" {
			t.Fatalf("chunk row missing identity fields: %+v", c)
		}
	}
	if manuals.updated == nil || manuals.updated.PageCount != 2 {
		t.Fatalf("expected page count recorded, got %+v", manuals.updated)
	}
}

func TestProcessByIDIndexesFigureVectors(t *testing.T) {
	parts, uc := processFixture()
	parts.figureStore.byManual["m1"] = []domain.Figure{
		{ID: "f1", ManualID: "m1", TenantID: "t1", Caption: "Coin door wiring", PageNumber: 5},
		{ID: "f2", ManualID: "m1", TenantID: "t1"},
	}

	if err := uc.ProcessByID(context.Background(), "m1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(parts.figureVectors.indexed) != 1 {
		t.Fatalf("expected only the figure with text indexed, got %d", len(parts.figureVectors.indexed))
	}
	if parts.figureVectors.indexed[0].ID != "f1" {
		t.Fatalf("expected figure f1 indexed, got %+v", parts.figureVectors.indexed[0])
	}
}

func TestProcessByIDMarksFailedOnEmbedError(t *testing.T) {
	parts, _ := processFixture()
	manuals := parts.manuals
	uc := NewProcessManualUseCase(
		manuals,
		&extractorFake{pages: []domain.PageText{{Number: 1, Text: "page one"}}},
		&chunkerFake{chunks: []domain.Chunk{{Content: "page one"}}},
		&batchEmbedderFake{err: errors.New("ollama down")},
		&vectorIndexFake{},
		&chunkStoreFake{},
		nil,
		nil,
	)

	if err := uc.ProcessByID(context.Background(), "m1"); err == nil {
		t.Fatalf("expected pipeline failure")
	}
	last := manuals.statuses[len(manuals.statuses)-1]
	if last != domain.ManualFailed {
		t.Fatalf("expected failed status recorded, got %v", manuals.statuses)
	}
	if manuals.lastError == "" {
		t.Fatalf("expected failure reason persisted")
	}
}

func TestProcessByIDRejectsEmptyExtraction(t *testing.T) {
	parts, _ := processFixture()
	uc := NewProcessManualUseCase(
		parts.manuals,
		&extractorFake{pages: nil},
		&chunkerFake{},
		&batchEmbedderFake{},
		&vectorIndexFake{},
		&chunkStoreFake{},
		nil,
		nil,
	)

	err := uc.ProcessByID(context.Background(), "m1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty extraction, got %v", err)
	}
}
