package domain

import (
	"strings"
	"time"
)

type ManualStatus string

const (
	ManualUploaded   ManualStatus = "uploaded"
	ManualProcessing ManualStatus = "processing"
	ManualReady      ManualStatus = "ready"
	ManualFailed     ManualStatus = "failed"
)

// Manual is the persistent unit of ingested documentation. Chunks, figures
// and QA pairs hang off it, all tagged with the owning tenant.
type Manual struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Title        string       `json:"title"`
	Manufacturer string       `json:"manufacturer,omitempty"`
	Version      string       `json:"version,omitempty"`
	Platform     string       `json:"platform,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Aliases      []string     `json:"aliases,omitempty"`
	PageCount    int          `json:"page_count,omitempty"`
	QualityScore float64      `json:"quality_score,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Filename     string       `json:"filename"`
	MimeType     string       `json:"mime_type"`
	StoragePath  string       `json:"storage_path"`
	Status       ManualStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Chunk is a text passage of a manual.
type Chunk struct {
	ID          string `json:"id"`
	ManualID    string `json:"manual_id"`
	TenantID    string `json:"tenant_id"`
	ChunkIndex  int    `json:"chunk_index"`
	Content     string `json:"content"`
	SectionPath string `json:"section_path,omitempty"`
	PageStart   *int   `json:"page_start,omitempty"`
	PageEnd     *int   `json:"page_end,omitempty"`
	MergedFrom  string `json:"merged_from,omitempty"`
}

// Figure is an image reference of a manual plus its searchable text.
type Figure struct {
	ID          string         `json:"id"`
	ManualID    string         `json:"manual_id"`
	TenantID    string         `json:"tenant_id"`
	PageNumber  int            `json:"page_number"`
	FigureLabel string         `json:"figure_label,omitempty"`
	FigureType  string         `json:"figure_type,omitempty"`
	Caption     string         `json:"caption,omitempty"`
	OCRText     string         `json:"ocr_text,omitempty"`
	StoragePath string         `json:"storage_path,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	MergedFrom  string         `json:"merged_from,omitempty"`
}

// SearchText is the text a figure is embedded and matched with: label,
// caption, OCR text and keywords joined in that order. Empty when the figure
// carries no text at all.
func (f Figure) SearchText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{f.FigureLabel, f.Caption, f.OCRText, strings.Join(f.Keywords, " ")} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "\n")
}

// QAPair is a curated troubleshooting question/answer attached to a manual.
type QAPair struct {
	ID       string `json:"id"`
	ManualID string `json:"manual_id"`
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PageText is one extracted page of a manual source document.
type PageText struct {
	Number int
	Text   string
}

// MergeReport is the per-category outcome of a manual merge.
type MergeReport struct {
	MergedChunks            int `json:"merged_chunks"`
	SkippedChunkDuplicates  int `json:"skipped_chunk_duplicates"`
	MergedFigures           int `json:"merged_figures"`
	UpdatedFigures          int `json:"updated_figures"`
	SkippedFigureDuplicates int `json:"skipped_figure_duplicates"`
	AddedQA                 int `json:"added_qa"`
	SkippedQADuplicates     int `json:"skipped_qa_duplicates"`
	TotalItemsMerged        int `json:"total_items_merged"`
}

// MergeJob is an async merge request carried over the queue.
type MergeJob struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	SourceManualID string `json:"source_manual_id"`
	TargetManualID string `json:"target_manual_id"`
}

// Tenant is the resolved owner of an authenticated request.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QAImportReport summarizes a spreadsheet import.
type QAImportReport struct {
	Added             int `json:"added"`
	SkippedDuplicates int `json:"skipped_duplicates"`
}
