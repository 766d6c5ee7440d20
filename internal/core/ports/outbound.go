package ports

import (
	"context"
	"io"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// Embedder builds dense vectors for chunk text and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores query/document pairs with a cross-encoder model. The
// service may cap output to a top-N window; hits reference input documents
// by index.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error)
}

// VectorStore indexes chunk vectors and performs filtered similarity search.
type VectorStore interface {
	IndexChunks(ctx context.Context, manual *domain.Manual, chunks []domain.Chunk, vectors [][]float32) error
	SearchChunks(ctx context.Context, queryVector []float32, limit int, minScore float64, scope domain.SearchRequest) ([]domain.Candidate, error)
}

// FigureVectorStore indexes figure caption/OCR vectors in a separate
// collection so dense retrieval can surface figures next to text.
type FigureVectorStore interface {
	IndexFigure(ctx context.Context, figure domain.Figure, vector []float32) error
	SearchFigures(ctx context.Context, queryVector []float32, limit int, minScore float64, scope domain.SearchRequest) ([]domain.Candidate, error)
}

// ManualRepository persists and reads manual metadata.
type ManualRepository interface {
	Create(ctx context.Context, manual *domain.Manual) error
	GetByID(ctx context.Context, id string) (*domain.Manual, error)
	TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	UpdateStatus(ctx context.Context, id string, status domain.ManualStatus, errMessage string) error
	UpdateMetadata(ctx context.Context, manual *domain.Manual) error
}

// ChunkStore persists chunks and provides the lexical and substring search
// primitives of the document store.
type ChunkStore interface {
	Insert(ctx context.Context, chunk *domain.Chunk) error
	ListByManual(ctx context.Context, manualID string) ([]domain.Chunk, error)
	Enrich(ctx context.Context, id string, sectionPath string, pageStart, pageEnd *int) error
	SearchLexical(ctx context.Context, query string, limit int, scope domain.SearchRequest) ([]domain.Candidate, error)
	SearchSubstring(ctx context.Context, query string, limit int, scope domain.SearchRequest) ([]domain.Candidate, error)
}

// FigureStore persists figure records.
type FigureStore interface {
	Insert(ctx context.Context, figure *domain.Figure) error
	ListByManual(ctx context.Context, manualID string) ([]domain.Figure, error)
	Update(ctx context.Context, figure *domain.Figure) error
}

// QuestionAnswerStore reads and writes QA pairs. Two concrete adapters exist
// (current and legacy schema); callers try them in sequence.
type QuestionAnswerStore interface {
	ListByManual(ctx context.Context, manualID string) ([]domain.QAPair, error)
	Insert(ctx context.Context, qa *domain.QAPair) error
}

// TenantResolver maps a bearer token to a tenant profile.
type TenantResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.Tenant, error)
}

// MessageQueue publishes/consumes ingestion events and merge jobs.
type MessageQueue interface {
	PublishManualIngested(ctx context.Context, manualID string) error
	SubscribeManualIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishMergeRequested(ctx context.Context, job domain.MergeJob) error
	SubscribeMergeRequested(ctx context.Context, handler func(context.Context, domain.MergeJob) error) error
}

// ObjectStorage stores manual source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts per-page plain text from a stored manual.
type TextExtractor interface {
	Extract(ctx context.Context, manual *domain.Manual) ([]domain.PageText, error)
}

// Chunker splits extracted pages into retrieval-sized chunks with page
// bounds and section paths attached.
type Chunker interface {
	Split(pages []domain.PageText) []domain.Chunk
}
