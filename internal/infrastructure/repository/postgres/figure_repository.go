package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type FigureRepository struct {
	db *sql.DB
}

func NewFigureRepository(db *sql.DB) *FigureRepository {
	return &FigureRepository{db: db}
}

func (r *FigureRepository) Insert(ctx context.Context, figure *domain.Figure) error {
	keywordsJSON, metadataJSON, err := marshalFigureJSON(figure)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO manual_figures (
	id, manual_id, tenant_id, page_number, figure_label, figure_type,
	caption, ocr_text, storage_path, keywords, metadata, merged_from
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		figure.ID, figure.ManualID, figure.TenantID, figure.PageNumber, figure.FigureLabel, figure.FigureType,
		figure.Caption, figure.OCRText, figure.StoragePath, keywordsJSON, metadataJSON, figure.MergedFrom,
	)
	if err != nil {
		return fmt.Errorf("insert figure: %w", err)
	}
	return nil
}

func (r *FigureRepository) ListByManual(ctx context.Context, manualID string) ([]domain.Figure, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, manual_id, tenant_id, page_number, figure_label, figure_type,
	caption, ocr_text, storage_path, keywords, metadata, merged_from
FROM manual_figures
WHERE manual_id = $1
ORDER BY page_number, id
`, manualID)
	if err != nil {
		return nil, fmt.Errorf("query figures: %w", err)
	}
	defer rows.Close()

	var figures []domain.Figure
	for rows.Next() {
		var fig domain.Figure
		var keywordsRaw, metadataRaw []byte
		err := rows.Scan(
			&fig.ID, &fig.ManualID, &fig.TenantID, &fig.PageNumber, &fig.FigureLabel, &fig.FigureType,
			&fig.Caption, &fig.OCRText, &fig.StoragePath, &keywordsRaw, &metadataRaw, &fig.MergedFrom,
		)
		if err != nil {
			return nil, fmt.Errorf("scan figure: %w", err)
		}
		if err := json.Unmarshal(keywordsRaw, &fig.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal figure keywords: %w", err)
		}
		if err := json.Unmarshal(metadataRaw, &fig.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal figure metadata: %w", err)
		}
		figures = append(figures, fig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate figures: %w", err)
	}
	return figures, nil
}

func (r *FigureRepository) Update(ctx context.Context, figure *domain.Figure) error {
	keywordsJSON, metadataJSON, err := marshalFigureJSON(figure)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
UPDATE manual_figures
SET figure_label = $2, figure_type = $3, caption = $4, ocr_text = $5,
	storage_path = $6, keywords = $7, metadata = $8, merged_from = $9
WHERE id = $1
`,
		figure.ID, figure.FigureLabel, figure.FigureType, figure.Caption, figure.OCRText,
		figure.StoragePath, keywordsJSON, metadataJSON, figure.MergedFrom,
	)
	if err != nil {
		return fmt.Errorf("update figure: %w", err)
	}
	return nil
}

func marshalFigureJSON(figure *domain.Figure) ([]byte, []byte, error) {
	keywords := figure.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal figure keywords: %w", err)
	}

	metadata := figure.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal figure metadata: %w", err)
	}
	return keywordsJSON, metadataJSON, nil
}
