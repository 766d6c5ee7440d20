package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// ChunkClient stores chunk vectors in the manual chunk collection.
type ChunkClient struct {
	restClient
}

func NewChunkClient(baseURL, collection string) *ChunkClient {
	return &ChunkClient{restClient: newRESTClient(baseURL, collection)}
}

func (c *ChunkClient) IndexChunks(ctx context.Context, manual *domain.Manual, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		payload := map[string]any{
			"chunk_id":     chunks[i].ID,
			"manual_id":    manual.ID,
			"tenant_id":    manual.TenantID,
			"chunk_index":  chunks[i].ChunkIndex,
			"section_path": chunks[i].SectionPath,
			"text":         chunks[i].Content,
		}
		if chunks[i].PageStart != nil {
			payload["page_start"] = *chunks[i].PageStart
		}
		if chunks[i].PageEnd != nil {
			payload["page_end"] = *chunks[i].PageEnd
		}
		points = append(points, point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		})
	}
	return c.upsertPoints(ctx, points)
}

func (c *ChunkClient) SearchChunks(
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
			ID:          payloadString(hit.Payload, "chunk_id"),
			Content:     payloadString(hit.Payload, "text"),
			ContentType: domain.ContentText,
			ManualID:    payloadString(hit.Payload, "manual_id"),
			TenantID:    payloadString(hit.Payload, "tenant_id"),
			SectionPath: payloadString(hit.Payload, "section_path"),
			PageStart:   payloadIntPtr(hit.Payload, "page_start"),
			PageEnd:     payloadIntPtr(hit.Payload, "page_end"),
			Score:       hit.Score,
		})
	}
	return out, nil
}
