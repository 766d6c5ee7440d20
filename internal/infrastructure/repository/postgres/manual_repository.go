package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type ManualRepository struct {
	db *sql.DB
}

func NewManualRepository(db *sql.DB) *ManualRepository {
	return &ManualRepository{db: db}
}

func (r *ManualRepository) Create(ctx context.Context, manual *domain.Manual) error {
	tagsJSON, err := json.Marshal(emptyIfNil(manual.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	aliasesJSON, err := json.Marshal(emptyIfNil(manual.Aliases))
	if err != nil {
		return fmt.Errorf("marshal aliases: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO manuals (
	id, tenant_id, title, manufacturer, version, platform, tags, aliases,
	page_count, quality_score, notes, filename, mime_type, storage_path,
	status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`,
		manual.ID, manual.TenantID, manual.Title, manual.Manufacturer, manual.Version, manual.Platform,
		tagsJSON, aliasesJSON, manual.PageCount, manual.QualityScore, manual.Notes,
		manual.Filename, manual.MimeType, manual.StoragePath,
		string(manual.Status), manual.Error, manual.CreatedAt, manual.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert manual: %w", err)
	}
	return nil
}

func (r *ManualRepository) GetByID(ctx context.Context, id string) (*domain.Manual, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, title, manufacturer, version, platform, tags, aliases,
	page_count, quality_score, notes, filename, mime_type, storage_path,
	status, error_message, created_at, updated_at
FROM manuals
WHERE id = $1
`, id)

	var manual domain.Manual
	var tagsRaw, aliasesRaw []byte
	var status string

	err := row.Scan(
		&manual.ID, &manual.TenantID, &manual.Title, &manual.Manufacturer, &manual.Version, &manual.Platform,
		&tagsRaw, &aliasesRaw, &manual.PageCount, &manual.QualityScore, &manual.Notes,
		&manual.Filename, &manual.MimeType, &manual.StoragePath,
		&status, &manual.Error, &manual.CreatedAt, &manual.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrManualNotFound, "get manual", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan manual: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &manual.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(aliasesRaw, &manual.Aliases); err != nil {
		return nil, fmt.Errorf("unmarshal aliases: %w", err)
	}
	manual.Status = domain.ManualStatus(status)
	return &manual, nil
}

func (r *ManualRepository) TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title FROM manuals WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query manual titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan manual title: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manual titles: %w", err)
	}
	return titles, nil
}

func (r *ManualRepository) UpdateStatus(ctx context.Context, id string, status domain.ManualStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE manuals
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update manual status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrManualNotFound, "update manual status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *ManualRepository) UpdateMetadata(ctx context.Context, manual *domain.Manual) error {
	tagsJSON, err := json.Marshal(emptyIfNil(manual.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	aliasesJSON, err := json.Marshal(emptyIfNil(manual.Aliases))
	if err != nil {
		return fmt.Errorf("marshal aliases: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE manuals
SET title = $2, manufacturer = $3, version = $4, platform = $5, tags = $6,
	aliases = $7, page_count = $8, quality_score = $9, notes = $10, updated_at = $11
WHERE id = $1
`,
		manual.ID, manual.Title, manual.Manufacturer, manual.Version, manual.Platform,
		tagsJSON, aliasesJSON, manual.PageCount, manual.QualityScore, manual.Notes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update manual metadata: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrManualNotFound, "update manual metadata", fmt.Errorf("id %s", manual.ID))
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
