package domain

// ContentType discriminates passage candidates from figure candidates.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentFigure ContentType = "figure"
)

// Candidate is a retrieval candidate constructed per query. Pipeline stages
// treat candidates as values: each stage returns a new annotated slice and
// nothing is mutated after assembly.
type Candidate struct {
	ID          string      `json:"id,omitempty"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	ManualID    string      `json:"manual_id"`
	ManualTitle string      `json:"manual_title,omitempty"`
	TenantID    string      `json:"tenant_id,omitempty"`
	SectionPath string      `json:"section_path,omitempty"`
	PageStart   *int        `json:"page_start,omitempty"`
	PageEnd     *int        `json:"page_end,omitempty"`
	FigureType  string      `json:"figure_type,omitempty"`
	StoragePath string      `json:"storage_path,omitempty"`
	Score       float64     `json:"score"`
	RerankScore float64     `json:"rerank_score,omitempty"`
}

// SearchRequest scopes a retrieval call. TenantID is always explicit; there
// is no ambient tenant context.
type SearchRequest struct {
	Query    string `json:"query"`
	ManualID string `json:"manual_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchResult is the assembled, tenant-safe response of the pipeline.
type SearchResult struct {
	TextResults     []Candidate `json:"textResults"`
	FigureResults   []Candidate `json:"figureResults"`
	AllResults      []Candidate `json:"allResults"`
	Count           int         `json:"count"`
	TotalCandidates int         `json:"total_candidates"`
	Strategy        string      `json:"strategy"`
	Reranked        bool        `json:"reranked"`
	Message         string      `json:"message,omitempty"`

	// Candidates removed by the isolation filter; surfaced to metrics and
	// logs only, never to callers.
	IsolationDropped int `json:"-"`
}

// RerankHit is one scored entry returned by the cross-encoder.
type RerankHit struct {
	Index int
	Score float64
}

// Retrieval strategy tags reported to callers.
const (
	StrategyVector    = "vector_search"
	StrategyText      = "text_search"
	StrategySubstring = "substring_search"
	StrategyNone      = "none"
)

// RundownRequest asks for a sectioned summary of search results.
type RundownRequest struct {
	Query    string `json:"query"`
	ManualID string `json:"manual_id,omitempty"`
	TenantID string `json:"-"`
	System   string `json:"system,omitempty"`
	Vendor   string `json:"vendor,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type Citation struct {
	ManualID string `json:"manual_id"`
	Page     int    `json:"page"`
}

type RundownSection struct {
	Title     string     `json:"title"`
	Gist      string     `json:"gist"`
	Citations []Citation `json:"citations"`
}

type Rundown struct {
	OK       bool             `json:"ok"`
	Summary  string           `json:"summary"`
	Sections []RundownSection `json:"sections"`
}
