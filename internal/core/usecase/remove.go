package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/knowledge-base/internal/core/ports"
)

// RemoveDocumentUseCase is the deletion coordinator. Both index removals
// are attempted independently: a vector-index failure never blocks the
// keyword removal and vice versa. Failures are logged, not returned — the
// metadata record is already gone and there is no caller to recover; the
// leftover entries are accepted operational debt until re-ingestion.
type RemoveDocumentUseCase struct {
	vectors  ports.VectorStore
	keywords ports.KeywordIndex
	logger   *slog.Logger
}

func NewRemoveDocumentUseCase(
	vectors ports.VectorStore,
	keywords ports.KeywordIndex,
	logger *slog.Logger,
) *RemoveDocumentUseCase {
	return &RemoveDocumentUseCase{
		vectors:  vectors,
		keywords: keywords,
		logger:   logger,
	}
}

func (uc *RemoveDocumentUseCase) RemoveByID(ctx context.Context, documentID string) error {
	if err := uc.vectors.DeleteByDocumentID(ctx, documentID); err != nil {
		uc.logger.Error("vector index delete failed", "document_id", documentID, "error", err)
	}
	if err := uc.keywords.Delete(documentID); err != nil {
		uc.logger.Error("keyword index delete failed", "document_id", documentID, "error", err)
	}
	return nil
}
