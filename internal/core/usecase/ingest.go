package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
)

// IngestManualUseCase stores an uploaded manual and hands processing off to
// the worker via the queue.
type IngestManualUseCase struct {
	manuals ports.ManualRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestManualUseCase(
	manuals ports.ManualRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestManualUseCase {
	return &IngestManualUseCase{
		manuals: manuals,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestManualUseCase) Upload(
	ctx context.Context,
	tenantID, title, filename, mimeType string,
	body io.Reader,
) (*domain.Manual, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload manual", errors.New("tenant id is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	manual := &domain.Manual{
		ID:          id,
		TenantID:    tenantID,
		Title:       title,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.ManualUploaded,
		Tags:        []string{},
		Aliases:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.manuals.Create(ctx, manual); err != nil {
		return nil, fmt.Errorf("create manual metadata: %w", err)
	}

	if err := uc.queue.PublishManualIngested(ctx, manual.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return manual, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "manual.bin"
	}
	return base
}
