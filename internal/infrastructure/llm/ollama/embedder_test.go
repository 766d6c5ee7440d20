package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
		BreakerEnabled:      false,
	})
}

func TestEmbedSendsBatchRequest(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "nomic-embed-text", testExecutor())
	vectors, err := embedder.Embed(context.Background(), []string{"chunk one", "chunk two"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 0.3 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	if gotBody["model"] != "nomic-embed-text" {
		t.Fatalf("expected model in request, got %v", gotBody["model"])
	}
	inputs, ok := gotBody["input"].([]any)
	if !ok || len(inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %v", gotBody["input"])
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1}},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "m", testExecutor())
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.7, 0.8}},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "m", testExecutor())
	vector, err := embedder.EmbedQuery(context.Background(), "coin jam")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.7 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedTagsServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "m", testExecutor())
	_, err := embedder.Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestEmbedEmptyInputShortCircuits(t *testing.T) {
	embedder := NewEmbedder("http://127.0.0.1:1", "m", testExecutor())
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil/nil for empty input, got %v/%v", vectors, err)
	}
}
