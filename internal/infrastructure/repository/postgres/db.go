package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates all tables on startup. Both binaries call it, the
// advisory lock serializes the DDL between them.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS api_tokens (
	token TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id)
);

CREATE TABLE IF NOT EXISTS manuals (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	title TEXT NOT NULL,
	manufacturer TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	aliases JSONB NOT NULL DEFAULT '[]'::jsonb,
	page_count INTEGER NOT NULL DEFAULT 0,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_manuals_tenant ON manuals(tenant_id);
CREATE INDEX IF NOT EXISTS idx_manuals_status ON manuals(status);

CREATE TABLE IF NOT EXISTS manual_chunks (
	id TEXT PRIMARY KEY,
	manual_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL,
	section_path TEXT NOT NULL DEFAULT '',
	page_start INTEGER,
	page_end INTEGER,
	merged_from TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_manual_chunks_manual ON manual_chunks(manual_id);
CREATE INDEX IF NOT EXISTS idx_manual_chunks_fts
	ON manual_chunks USING GIN (to_tsvector('english', content));

CREATE TABLE IF NOT EXISTS manual_figures (
	id TEXT PRIMARY KEY,
	manual_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	page_number INTEGER NOT NULL DEFAULT 0,
	figure_label TEXT NOT NULL DEFAULT '',
	figure_type TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	ocr_text TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	merged_from TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_manual_figures_manual ON manual_figures(manual_id);

CREATE TABLE IF NOT EXISTS qa_pairs (
	id TEXT PRIMARY KEY,
	manual_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_qa_pairs_manual ON qa_pairs(manual_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
