package ports

import (
	"context"
	"io"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// SearchService is the inbound contract for the retrieval pipeline.
type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}

// RundownService clusters search results into a sectioned summary.
type RundownService interface {
	Rundown(ctx context.Context, req domain.RundownRequest) (*domain.Rundown, error)
}

// ManualMerger consolidates one manual into another on behalf of a tenant.
type ManualMerger interface {
	Merge(ctx context.Context, tenantID, sourceManualID, targetManualID string) (*domain.MergeReport, error)
}

// ManualIngestor is the inbound contract for manual upload orchestration.
type ManualIngestor interface {
	Upload(ctx context.Context, tenantID, title, filename, mimeType string, body io.Reader) (*domain.Manual, error)
}

// ManualProcessor is the inbound contract for asynchronous manual processing.
type ManualProcessor interface {
	ProcessByID(ctx context.Context, manualID string) error
}

// ManualReader is the inbound read model for manual metadata/state.
type ManualReader interface {
	GetByID(ctx context.Context, id string) (*domain.Manual, error)
}

// QAImporter attaches imported QA pairs to a manual, deduplicating against
// what the manual already has.
type QAImporter interface {
	Import(ctx context.Context, tenantID, manualID string, pairs []domain.QAPair) (*domain.QAImportReport, error)
}
