package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) Insert(ctx context.Context, chunk *domain.Chunk) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO manual_chunks (
	id, manual_id, tenant_id, chunk_index, content, section_path, page_start, page_end, merged_from
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		chunk.ID, chunk.ManualID, chunk.TenantID, chunk.ChunkIndex, chunk.Content,
		chunk.SectionPath, chunk.PageStart, chunk.PageEnd, chunk.MergedFrom,
	)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByManual(ctx context.Context, manualID string) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, manual_id, tenant_id, chunk_index, content, section_path, page_start, page_end, merged_from
FROM manual_chunks
WHERE manual_id = $1
ORDER BY chunk_index
`, manualID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var pageStart, pageEnd sql.NullInt64
		err := rows.Scan(
			&chunk.ID, &chunk.ManualID, &chunk.TenantID, &chunk.ChunkIndex, &chunk.Content,
			&chunk.SectionPath, &pageStart, &pageEnd, &chunk.MergedFrom,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.PageStart = intPtr(pageStart)
		chunk.PageEnd = intPtr(pageEnd)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// Enrich fills section/page gaps on an existing chunk without overwriting
// values already present.
func (r *ChunkRepository) Enrich(ctx context.Context, id string, sectionPath string, pageStart, pageEnd *int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE manual_chunks
SET section_path = CASE WHEN section_path = '' THEN $2 ELSE section_path END,
	page_start = COALESCE(page_start, $3),
	page_end = COALESCE(page_end, $4)
WHERE id = $1
`, id, sectionPath, pageStart, pageEnd)
	if err != nil {
		return fmt.Errorf("enrich chunk: %w", err)
	}
	return nil
}

func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, limit int, scope domain.SearchRequest) ([]domain.Candidate, error) {
	sqlQuery := `
SELECT id, manual_id, tenant_id, content, section_path, page_start, page_end,
	ts_rank(to_tsvector('english', content), websearch_to_tsquery('english', $1)) AS rank
FROM manual_chunks
WHERE to_tsvector('english', content) @@ websearch_to_tsquery('english', $1)`
	args := []any{query}
	sqlQuery, args = appendScope(sqlQuery, args, scope)
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args))

	return r.queryCandidates(ctx, sqlQuery, args)
}

func (r *ChunkRepository) SearchSubstring(ctx context.Context, query string, limit int, scope domain.SearchRequest) ([]domain.Candidate, error) {
	sqlQuery := `
SELECT id, manual_id, tenant_id, content, section_path, page_start, page_end,
	0::double precision AS rank
FROM manual_chunks
WHERE content ILIKE '%' || $1 || '%'`
	args := []any{query}
	sqlQuery, args = appendScope(sqlQuery, args, scope)
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))

	return r.queryCandidates(ctx, sqlQuery, args)
}

func (r *ChunkRepository) queryCandidates(ctx context.Context, sqlQuery string, args []any) ([]domain.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunk candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var cand domain.Candidate
		var pageStart, pageEnd sql.NullInt64
		err := rows.Scan(
			&cand.ID, &cand.ManualID, &cand.TenantID, &cand.Content, &cand.SectionPath,
			&pageStart, &pageEnd, &cand.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk candidate: %w", err)
		}
		cand.ContentType = domain.ContentText
		cand.PageStart = intPtr(pageStart)
		cand.PageEnd = intPtr(pageEnd)
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk candidates: %w", err)
	}
	return candidates, nil
}

func appendScope(sqlQuery string, args []any, scope domain.SearchRequest) (string, []any) {
	if scope.ManualID != "" {
		args = append(args, scope.ManualID)
		sqlQuery += fmt.Sprintf(" AND manual_id = $%d", len(args))
	}
	if scope.TenantID != "" {
		args = append(args, scope.TenantID)
		sqlQuery += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	return sqlQuery, args
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
