package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// Composite routes a manual to the extractor matching its file type.
type Composite struct {
	pdf   ports.TextExtractor
	plain ports.TextExtractor
}

func NewComposite(pdf, plain ports.TextExtractor) *Composite {
	return &Composite{pdf: pdf, plain: plain}
}

func (c *Composite) Extract(ctx context.Context, manual *domain.Manual) ([]domain.PageText, error) {
	if isPDF(manual) {
		return c.pdf.Extract(ctx, manual)
	}
	return c.plain.Extract(ctx, manual)
}

func isPDF(manual *domain.Manual) bool {
	if strings.EqualFold(strings.TrimSpace(manual.MimeType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(manual.Filename), ".pdf")
}
