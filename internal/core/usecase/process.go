package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// ProcessManualUseCase turns a stored manual into searchable content:
// extract pages, split, embed, index vectors and rows. Figures already on
// record for the manual get their text embedded into the figure collection
// in the same pass.
type ProcessManualUseCase struct {
	manuals       ports.ManualRepository
	extractor     ports.TextExtractor
	chunker       ports.Chunker
	embedder      ports.Embedder
	vectors       ports.VectorStore
	chunks        ports.ChunkStore
	figures       ports.FigureStore
	figureVectors ports.FigureVectorStore
}

func NewProcessManualUseCase(
	manuals ports.ManualRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	chunks ports.ChunkStore,
	figures ports.FigureStore,
	figureVectors ports.FigureVectorStore,
) *ProcessManualUseCase {
	return &ProcessManualUseCase{
		manuals:       manuals,
		extractor:     extractor,
		chunker:       chunker,
		embedder:      embedder,
		vectors:       vectors,
		chunks:        chunks,
		figures:       figures,
		figureVectors: figureVectors,
	}
}

func (uc *ProcessManualUseCase) ProcessByID(ctx context.Context, manualID string) error {
	if err := uc.manuals.UpdateStatus(ctx, manualID, domain.ManualProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, manualID); err != nil {
		if failErr := uc.manuals.UpdateStatus(ctx, manualID, domain.ManualFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.manuals.UpdateStatus(ctx, manualID, domain.ManualReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessManualUseCase) processPipeline(ctx context.Context, manualID string) error {
	manual, err := uc.manuals.GetByID(ctx, manualID)
	if err != nil {
		return fmt.Errorf("fetch manual by id: %w", err)
	}

	pages, err := uc.extractor.Extract(ctx, manual)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if len(pages) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no extractable text"))
	}

	chunks := uc.chunker.Split(pages)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk manual", errors.New("chunking produced zero chunks"))
	}
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].ManualID = manual.ID
		chunks[i].TenantID = manual.TenantID
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectors.IndexChunks(ctx, manual, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	for i := range chunks {
		if err := uc.chunks.Insert(ctx, &chunks[i]); err != nil {
			return fmt.Errorf("insert chunk row %d: %w", i, err)
		}
	}

	if err := uc.indexFigures(ctx, manual); err != nil {
		return fmt.Errorf("index figures in vector db: %w", err)
	}

	manual.PageCount = lastPageNumber(pages)
	if err := uc.manuals.UpdateMetadata(ctx, manual); err != nil {
		return fmt.Errorf("update manual page count: %w", err)
	}
	return nil
}

// indexFigures embeds the searchable text of every figure on record for the
// manual into the figure collection. Figures with no text are skipped, they
// have nothing to match a query against.
func (uc *ProcessManualUseCase) indexFigures(ctx context.Context, manual *domain.Manual) error {
	if uc.figures == nil || uc.figureVectors == nil {
		return nil
	}
	figures, err := uc.figures.ListByManual(ctx, manual.ID)
	if err != nil {
		return fmt.Errorf("list figures: %w", err)
	}

	indexable := make([]domain.Figure, 0, len(figures))
	texts := make([]string, 0, len(figures))
	for _, fig := range figures {
		text := fig.SearchText()
		if text == "" {
			continue
		}
		indexable = append(indexable, fig)
		texts = append(texts, text)
	}
	if len(indexable) == 0 {
		return nil
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed figures: %w", err)
	}
	if len(vectors) != len(indexable) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed figures",
			fmt.Errorf("vectors/figures mismatch: %d/%d", len(vectors), len(indexable)),
		)
	}
	for i, fig := range indexable {
		if err := uc.figureVectors.IndexFigure(ctx, fig, vectors[i]); err != nil {
			return fmt.Errorf("index figure %s: %w", fig.ID, err)
		}
	}
	return nil
}

func lastPageNumber(pages []domain.PageText) int {
	last := 0
	for _, p := range pages {
		if p.Number > last {
			last = p.Number
		}
	}
	return last
}
