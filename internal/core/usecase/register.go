package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
	"github.com/kirillkom/knowledge-base/internal/core/ports"
)

// RegisterDocumentUseCase records new sources and queues background work.
// Documents start in status=processing; the worker moves them to
// completed/failed.
type RegisterDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
}

func NewRegisterDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *RegisterDocumentUseCase {
	return &RegisterDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

func (uc *RegisterDocumentUseCase) UploadFile(
	ctx context.Context,
	filename string,
	body io.Reader,
) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := newDocument(id, filename, domain.SourceFile)
	doc.StoragePath = storageKey

	return uc.createAndQueue(ctx, doc)
}

func (uc *RegisterDocumentUseCase) AddWebPage(ctx context.Context, pageURL string) (*domain.Document, error) {
	if err := validateSourceURL(pageURL); err != nil {
		return nil, err
	}
	doc := newDocument(uuid.NewString(), "Web Page: "+pageURL, domain.SourceWebPage)
	doc.SourceURL = pageURL
	return uc.createAndQueue(ctx, doc)
}

func (uc *RegisterDocumentUseCase) AddTranscript(ctx context.Context, videoURL string) (*domain.Document, error) {
	if err := validateSourceURL(videoURL); err != nil {
		return nil, err
	}
	doc := newDocument(uuid.NewString(), "Transcript: "+videoURL, domain.SourceTranscript)
	doc.SourceURL = videoURL
	return uc.createAndQueue(ctx, doc)
}

// Delete removes the metadata record and queues index cleanup. The record
// is gone as soon as this returns; index removal is best effort in the
// background and is deliberately not awaited.
func (uc *RegisterDocumentUseCase) Delete(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if doc.StoragePath != "" {
		if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
			uc.logger.Warn("remove stored source failed", "document_id", documentID, "error", err)
		}
	}

	if err := uc.queue.PublishDocumentDeleted(ctx, documentID); err != nil {
		return fmt.Errorf("publish deletion event: %w", err)
	}
	return nil
}

func (uc *RegisterDocumentUseCase) createAndQueue(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}
	if err := uc.queue.PublishDocumentCreated(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish creation event: %w", err)
	}
	return doc, nil
}

func newDocument(id, filename string, kind domain.SourceKind) *domain.Document {
	now := time.Now().UTC()
	return &domain.Document{
		ID:         id,
		Filename:   filename,
		SourceKind: kind,
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func validateSourceURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.WrapError(domain.ErrInvalidInput, "validate source url", fmt.Errorf("not an http(s) url: %q", raw))
	}
	return nil
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
	if base == "" {
		return "document.bin"
	}
	return base
}
