package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// MergeUseCase consolidates a source manual into a target manual:
// validate -> merge_chunks -> merge_figures -> merge_qa -> merge_metadata.
// Validation failures are fatal; a failure on an individual record is logged
// and skipped so one bad row never aborts the run. Source data is never
// deleted.
type MergeUseCase struct {
	manuals       ports.ManualRepository
	chunks        ports.ChunkStore
	figures       ports.FigureStore
	embedder      ports.Embedder
	figureVectors ports.FigureVectorStore
	qaStores      []ports.QuestionAnswerStore
}

func NewMergeUseCase(
	manuals ports.ManualRepository,
	chunks ports.ChunkStore,
	figures ports.FigureStore,
	embedder ports.Embedder,
	figureVectors ports.FigureVectorStore,
	qaStores []ports.QuestionAnswerStore,
) *MergeUseCase {
	return &MergeUseCase{
		manuals:       manuals,
		chunks:        chunks,
		figures:       figures,
		embedder:      embedder,
		figureVectors: figureVectors,
		qaStores:      qaStores,
	}
}

func (uc *MergeUseCase) Merge(ctx context.Context, tenantID, sourceManualID, targetManualID string) (*domain.MergeReport, error) {
	source, target, err := uc.validate(ctx, tenantID, sourceManualID, targetManualID)
	if err != nil {
		return nil, err
	}

	report := &domain.MergeReport{}
	stages := []struct {
		name string
		run  func(context.Context, *domain.Manual, *domain.Manual, *domain.MergeReport) error
	}{
		{"merge_chunks", uc.mergeChunks},
		{"merge_figures", uc.mergeFigures},
		{"merge_qa", uc.mergeQA},
		{"merge_metadata", uc.mergeMetadata},
	}
	for _, stage := range stages {
		if err := stage.run(ctx, source, target, report); err != nil {
			return nil, fmt.Errorf("%s: %w", stage.name, err)
		}
		slog.Info("merge_stage_done",
			"stage", stage.name,
			"source_manual_id", source.ID,
			"target_manual_id", target.ID,
		)
	}

	report.TotalItemsMerged = report.MergedChunks + report.MergedFigures + report.UpdatedFigures + report.AddedQA
	return report, nil
}

func (uc *MergeUseCase) validate(ctx context.Context, tenantID, sourceManualID, targetManualID string) (*domain.Manual, *domain.Manual, error) {
	sourceManualID = strings.TrimSpace(sourceManualID)
	targetManualID = strings.TrimSpace(targetManualID)
	if sourceManualID == "" || targetManualID == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "merge validate", errors.New("source and target manual ids are required"))
	}
	if sourceManualID == targetManualID {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "merge validate", errors.New("source and target manual ids must differ"))
	}

	source, err := uc.manuals.GetByID(ctx, sourceManualID)
	if err != nil {
		return nil, nil, fmt.Errorf("load source manual: %w", err)
	}
	target, err := uc.manuals.GetByID(ctx, targetManualID)
	if err != nil {
		return nil, nil, fmt.Errorf("load target manual: %w", err)
	}

	if tenantID != "" && (source.TenantID != tenantID || target.TenantID != tenantID) {
		return nil, nil, domain.WrapError(domain.ErrUnauthorized, "merge validate", errors.New("manuals belong to a different tenant"))
	}
	return source, target, nil
}

func (uc *MergeUseCase) mergeChunks(ctx context.Context, source, target *domain.Manual, report *domain.MergeReport) error {
	sourceChunks, err := uc.chunks.ListByManual(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("list source chunks: %w", err)
	}
	targetChunks, err := uc.chunks.ListByManual(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("list target chunks: %w", err)
	}

	nextIndex := len(targetChunks)
	for _, src := range sourceChunks {
		duplicate := findDuplicateChunk(src, targetChunks)
		if duplicate != nil {
			if enrichment, ok := chunkEnrichment(src, *duplicate); ok {
				if err := uc.chunks.Enrich(ctx, duplicate.ID, enrichment.SectionPath, enrichment.PageStart, enrichment.PageEnd); err != nil {
					slog.Warn("merge_chunk_enrich_failed", "chunk_id", duplicate.ID, "error", err)
				}
			}
			report.SkippedChunkDuplicates++
			continue
		}

		merged := domain.Chunk{
			ID:          uuid.NewString(),
			ManualID:    target.ID,
			TenantID:    target.TenantID,
			ChunkIndex:  nextIndex,
			Content:     src.Content,
			SectionPath: src.SectionPath,
			PageStart:   src.PageStart,
			PageEnd:     src.PageEnd,
			MergedFrom:  source.ID,
		}
		if err := uc.chunks.Insert(ctx, &merged); err != nil {
			slog.Warn("merge_chunk_insert_failed", "source_chunk_id", src.ID, "error", err)
			continue
		}
		nextIndex++
		report.MergedChunks++
		// Inserted chunks join the dedup pool so repeated source chunks do
		// not land twice.
		targetChunks = append(targetChunks, merged)
	}
	return nil
}

func (uc *MergeUseCase) mergeFigures(ctx context.Context, source, target *domain.Manual, report *domain.MergeReport) error {
	sourceFigures, err := uc.figures.ListByManual(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("list source figures: %w", err)
	}
	targetFigures, err := uc.figures.ListByManual(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("list target figures: %w", err)
	}

	for _, src := range sourceFigures {
		match := findMatchingFigure(src, targetFigures)
		if match != nil {
			if enrichFigure(match, src) {
				if err := uc.figures.Update(ctx, match); err != nil {
					slog.Warn("merge_figure_update_failed", "figure_id", match.ID, "error", err)
					continue
				}
				report.UpdatedFigures++
				uc.indexFigureVector(ctx, *match)
			} else {
				report.SkippedFigureDuplicates++
			}
			continue
		}

		// A figure with no stored image is not worth carrying over.
		if src.StoragePath == "" {
			continue
		}
		merged := src
		merged.ID = uuid.NewString()
		merged.ManualID = target.ID
		merged.TenantID = target.TenantID
		merged.MergedFrom = source.ID
		if err := uc.figures.Insert(ctx, &merged); err != nil {
			slog.Warn("merge_figure_insert_failed", "source_figure_id", src.ID, "error", err)
			continue
		}
		report.MergedFigures++
		uc.indexFigureVector(ctx, merged)
		targetFigures = append(targetFigures, merged)
	}
	return nil
}

// indexFigureVector keeps the figure collection in step with figures the
// merge wrote under the target manual. Indexing failures are per-item soft
// failures like the row writes around them.
func (uc *MergeUseCase) indexFigureVector(ctx context.Context, figure domain.Figure) {
	if uc.embedder == nil || uc.figureVectors == nil {
		return
	}
	text := figure.SearchText()
	if text == "" {
		return
	}
	vectors, err := uc.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) != 1 {
		slog.Warn("merge_figure_embed_failed", "figure_id", figure.ID, "error", err)
		return
	}
	if err := uc.figureVectors.IndexFigure(ctx, figure, vectors[0]); err != nil {
		slog.Warn("merge_figure_index_failed", "figure_id", figure.ID, "error", err)
	}
}

func (uc *MergeUseCase) mergeQA(ctx context.Context, source, target *domain.Manual, report *domain.MergeReport) error {
	store, targetPairs, err := uc.selectQAStore(ctx, target.ID)
	if err != nil {
		return err
	}
	sourcePairs, err := store.ListByManual(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("list source qa pairs: %w", err)
	}

	existing := make(map[string]struct{}, len(targetPairs))
	for _, qa := range targetPairs {
		existing[normalizeQuestion(qa.Question)] = struct{}{}
	}

	for _, src := range sourcePairs {
		key := normalizeQuestion(src.Question)
		if key == "" {
			continue
		}
		if _, ok := existing[key]; ok {
			report.SkippedQADuplicates++
			continue
		}

		merged := domain.QAPair{
			ID:       uuid.NewString(),
			ManualID: target.ID,
			TenantID: target.TenantID,
			Question: src.Question,
			Answer:   src.Answer,
		}
		if err := store.Insert(ctx, &merged); err != nil {
			slog.Warn("merge_qa_insert_failed", "source_qa_id", src.ID, "error", err)
			continue
		}
		existing[key] = struct{}{}
		report.AddedQA++
	}
	return nil
}

// selectQAStore probes the configured stores in order and commits to the
// first one that can read the target manual. Accommodates the legacy QA
// schema during migration.
func (uc *MergeUseCase) selectQAStore(ctx context.Context, targetManualID string) (ports.QuestionAnswerStore, []domain.QAPair, error) {
	var lastErr error
	for _, store := range uc.qaStores {
		pairs, err := store.ListByManual(ctx, targetManualID)
		if err != nil {
			lastErr = err
			continue
		}
		return store, pairs, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no question answer store configured")
	}
	return nil, nil, fmt.Errorf("select qa store: %w", lastErr)
}

func (uc *MergeUseCase) mergeMetadata(ctx context.Context, source, target *domain.Manual, _ *domain.MergeReport) error {
	merged := mergeManualMetadata(*target, *source)
	if err := uc.manuals.UpdateMetadata(ctx, &merged); err != nil {
		return fmt.Errorf("update target metadata: %w", err)
	}
	return nil
}
