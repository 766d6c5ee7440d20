package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/infrastructure/remote"
	"github.com/arcadeops/manual-search/internal/infrastructure/resilience"
)

// Client talks to a Cohere-compatible /v1/rerank endpoint. Failures surface
// as domain.ErrTemporary where retryable, the pipeline degrades to retrieval
// order instead of failing the search.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model, apiKey string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model":     c.model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	}

	var response struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	err := c.executor.Execute(ctx, "rerank", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/rerank", request, &response)
	}, remote.Classify)
	if err != nil {
		return nil, remote.WrapTemporary("rerank", err)
	}

	hits := make([]domain.RerankHit, 0, len(response.Results))
	for _, r := range response.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank hit index out of range: %d", r.Index)
		}
		hits = append(hits, domain.RerankHit{Index: r.Index, Score: r.RelevanceScore})
	}
	return hits, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &remote.StatusError{
			Service:    "rerank",
			Operation:  "rerank",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}
