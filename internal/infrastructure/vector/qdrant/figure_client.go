package qdrant

import (
	"context"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// FigureClient stores figure caption/OCR vectors in their own collection so
// dense retrieval can return figures alongside text chunks.
type FigureClient struct {
	restClient
}

func NewFigureClient(baseURL, collection string) *FigureClient {
	return &FigureClient{restClient: newRESTClient(baseURL, collection)}
}

func (c *FigureClient) IndexFigure(ctx context.Context, figure domain.Figure, vector []float32) error {
	// The figure id doubles as the point id so re-indexing an enriched
	// figure overwrites its point instead of stacking duplicates.
	pointID := figure.ID
	if pointID == "" {
		pointID = uuid.NewString()
	}
	payload := map[string]any{
		"figure_id":    figure.ID,
		"manual_id":    figure.ManualID,
		"tenant_id":    figure.TenantID,
		"page_number":  figure.PageNumber,
		"figure_type":  figure.FigureType,
		"storage_path": figure.StoragePath,
		"text":         figure.SearchText(),
	}
	return c.upsertPoints(ctx, []point{{
		ID:      pointID,
		Vector:  vector,
		Payload: payload,
	}})
}

func (c *FigureClient) SearchFigures(
	ctx context.Context,
	queryVector []float32,
	limit int,
	minScore float64,
	scope domain.SearchRequest,
) ([]domain.Candidate, error) {
	hits, err := c.search(ctx, queryVector, limit, minScore, scope)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.Candidate{
			ID:          payloadString(hit.Payload, "figure_id"),
			Content:     payloadString(hit.Payload, "text"),
			ContentType: domain.ContentFigure,
			ManualID:    payloadString(hit.Payload, "manual_id"),
			TenantID:    payloadString(hit.Payload, "tenant_id"),
			FigureType:  payloadString(hit.Payload, "figure_type"),
			StoragePath: payloadString(hit.Payload, "storage_path"),
			PageStart:   payloadIntPtr(hit.Payload, "page_number"),
			Score:       hit.Score,
		})
	}
	return out, nil
}
