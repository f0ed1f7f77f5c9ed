package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
	"github.com/kirillkom/knowledge-base/internal/core/ports"
)

// Dispatcher routes extraction by source kind: uploaded files come out
// of object storage and are parsed by extension, web pages and
// transcript URLs are fetched over HTTP and reduced to their text.
type Dispatcher struct {
	storage    ports.ObjectStorage
	httpClient *http.Client
	logger     *slog.Logger
}

func NewDispatcher(storage ports.ObjectStorage, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		storage:    storage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch doc.SourceKind {
	case domain.SourceFile:
		return d.extractFile(ctx, doc)
	case domain.SourceWebPage, domain.SourceTranscript:
		return d.extractURL(ctx, doc.SourceURL)
	default:
		return "", fmt.Errorf("unknown source kind: %s", doc.SourceKind)
	}
}

func (d *Dispatcher) extractFile(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := d.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()

	if strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") {
		return extractPDF(reader)
	}
	return extractPlainText(reader)
}
