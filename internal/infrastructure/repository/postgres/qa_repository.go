package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// QARepository stores QA pairs in the current qa_pairs schema.
type QARepository struct {
	db *sql.DB
}

func NewQARepository(db *sql.DB) *QARepository {
	return &QARepository{db: db}
}

func (r *QARepository) ListByManual(ctx context.Context, manualID string) ([]domain.QAPair, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, manual_id, tenant_id, question, answer
FROM qa_pairs
WHERE manual_id = $1
ORDER BY id
`, manualID)
	if err != nil {
		return nil, fmt.Errorf("query qa pairs: %w", err)
	}
	defer rows.Close()

	return scanQAPairs(rows)
}

func (r *QARepository) Insert(ctx context.Context, qa *domain.QAPair) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO qa_pairs (id, manual_id, tenant_id, question, answer)
VALUES ($1,$2,$3,$4,$5)
`, qa.ID, qa.ManualID, qa.TenantID, qa.Question, qa.Answer)
	if err != nil {
		return fmt.Errorf("insert qa pair: %w", err)
	}
	return nil
}

// LegacyQARepository reads the pre-migration manual_qa table, which has no
// tenant column. Deployments that migrated in place still carry rows there,
// so the merge engine probes it after qa_pairs.
type LegacyQARepository struct {
	db *sql.DB
}

func NewLegacyQARepository(db *sql.DB) *LegacyQARepository {
	return &LegacyQARepository{db: db}
}

func (r *LegacyQARepository) ListByManual(ctx context.Context, manualID string) ([]domain.QAPair, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, manual_id, '' AS tenant_id, question_text, answer_text
FROM manual_qa
WHERE manual_id = $1
ORDER BY id
`, manualID)
	if err != nil {
		return nil, fmt.Errorf("query legacy qa rows: %w", err)
	}
	defer rows.Close()

	return scanQAPairs(rows)
}

func (r *LegacyQARepository) Insert(ctx context.Context, qa *domain.QAPair) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO manual_qa (id, manual_id, question_text, answer_text)
VALUES ($1,$2,$3,$4)
`, qa.ID, qa.ManualID, qa.Question, qa.Answer)
	if err != nil {
		return fmt.Errorf("insert legacy qa row: %w", err)
	}
	return nil
}

func scanQAPairs(rows *sql.Rows) ([]domain.QAPair, error) {
	var pairs []domain.QAPair
	for rows.Next() {
		var qa domain.QAPair
		if err := rows.Scan(&qa.ID, &qa.ManualID, &qa.TenantID, &qa.Question, &qa.Answer); err != nil {
			return nil, fmt.Errorf("scan qa pair: %w", err)
		}
		pairs = append(pairs, qa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qa pairs: %w", err)
	}
	return pairs, nil
}
