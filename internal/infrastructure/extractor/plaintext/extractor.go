package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// Extractor reads UTF-8 text manuals. Form feeds are treated as page breaks,
// a file without them is one page.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, manual *domain.Manual) ([]domain.PageText, error) {
	reader, err := e.storage.Open(ctx, manual.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source manual: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source manual: %w", err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("not a text file: %s", manual.Filename)
	}

	var pages []domain.PageText
	for i, section := range strings.Split(string(raw), "\f") {
		text := strings.TrimSpace(section)
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageText{Number: i + 1, Text: text})
	}
	return pages, nil
}
