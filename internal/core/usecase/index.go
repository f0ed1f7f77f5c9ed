package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
	"github.com/kirillkom/knowledge-base/internal/core/ports"
)

// IndexDocumentUseCase is the ingestion coordinator: extract, chunk, embed,
// write the vector index, write the keyword index, then mark the document
// completed. Any step failing marks the document failed; the transition is
// terminal and a failure requires a fresh document record.
//
// The two index writes are not transactional. A crash between the vector
// upsert and the keyword append leaves them divergent until the document is
// deleted and re-ingested; RemoveByID is idempotent, so a manual replay of
// delete + re-ingest reconciles the pair.
type IndexDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectors   ports.VectorStore
	keywords  ports.KeywordIndex
	logger    *slog.Logger
}

func NewIndexDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	keywords ports.KeywordIndex,
	logger *slog.Logger,
) *IndexDocumentUseCase {
	return &IndexDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		keywords:  keywords,
		logger:    logger,
	}
}

func (uc *IndexDocumentUseCase) IndexByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			uc.logger.Info("document gone before indexing, skipping", "document_id", documentID)
			return nil
		}
		return fmt.Errorf("fetch document by id: %w", err)
	}

	chunkCount, err := uc.indexPipeline(ctx, doc)
	if err != nil {
		uc.logger.Error("document indexing failed", "document_id", documentID, "error", err)
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkCompleted(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	uc.logger.Info("document indexed", "document_id", documentID, "chunks", chunkCount)
	return nil
}

func (uc *IndexDocumentUseCase) indexPipeline(ctx context.Context, doc *domain.Document) (int, error) {
	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return 0, err
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrExtraction, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.vectors.UpsertChunks(ctx, doc, chunks, vectors); err != nil {
		return 0, domain.WrapError(domain.ErrVectorIndex, "upsert chunks", err)
	}

	metadatas := make([]map[string]string, len(chunks))
	for i := range chunks {
		metadatas[i] = map[string]string{
			"document_id":     doc.ID,
			"source_filename": doc.Filename,
		}
	}
	if err := uc.keywords.Add(chunks, metadatas); err != nil {
		return 0, domain.WrapError(domain.ErrKeywordIndex, "append keyword entries", err)
	}

	return len(chunks), nil
}

func (uc *IndexDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *IndexDocumentUseCase) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrEmbedding,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}
