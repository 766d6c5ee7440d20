package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// QAImportUseCase attaches imported QA pairs to a manual, reusing the merge
// engine's question normalizer for dedup.
type QAImportUseCase struct {
	manuals ports.ManualRepository
	qa      ports.QuestionAnswerStore
}

func NewQAImportUseCase(manuals ports.ManualRepository, qa ports.QuestionAnswerStore) *QAImportUseCase {
	return &QAImportUseCase{manuals: manuals, qa: qa}
}

func (uc *QAImportUseCase) Import(ctx context.Context, tenantID, manualID string, pairs []domain.QAPair) (*domain.QAImportReport, error) {
	manual, err := uc.manuals.GetByID(ctx, manualID)
	if err != nil {
		return nil, fmt.Errorf("load manual: %w", err)
	}
	if tenantID != "" && manual.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "qa import", errors.New("manual belongs to a different tenant"))
	}

	existingPairs, err := uc.qa.ListByManual(ctx, manualID)
	if err != nil {
		return nil, fmt.Errorf("list existing qa pairs: %w", err)
	}
	existing := make(map[string]struct{}, len(existingPairs))
	for _, qa := range existingPairs {
		existing[normalizeQuestion(qa.Question)] = struct{}{}
	}

	report := &domain.QAImportReport{}
	for _, pair := range pairs {
		key := normalizeQuestion(pair.Question)
		if key == "" || pair.Answer == "" {
			continue
		}
		if _, ok := existing[key]; ok {
			report.SkippedDuplicates++
			continue
		}

		record := domain.QAPair{
			ID:       uuid.NewString(),
			ManualID: manual.ID,
			TenantID: manual.TenantID,
			Question: pair.Question,
			Answer:   pair.Answer,
		}
		if err := uc.qa.Insert(ctx, &record); err != nil {
			slog.Warn("qa_import_insert_failed", "manual_id", manualID, "error", err)
			continue
		}
		existing[key] = struct{}{}
		report.Added++
	}
	return report, nil
}
