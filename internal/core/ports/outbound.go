package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

// DocumentRepository persists and reads document metadata state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document lifecycle events.
type MessageQueue interface {
	PublishDocumentCreated(ctx context.Context, documentID string) error
	PublishDocumentDeleted(ctx context.Context, documentID string) error
	SubscribeDocumentCreated(ctx context.Context, handler func(context.Context, string) error) error
	SubscribeDocumentDeleted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor produces the plain text of a document from its source.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// Embedder maps chunk texts, or a query string, to fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the external similarity index.
type VectorStore interface {
	UpsertChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// KeywordIndex is the in-process lexical index. Implementations serialize
// concurrent mutation and search internally; operations are local, so no
// context is threaded through.
type KeywordIndex interface {
	Add(chunks []string, metadatas []map[string]string) error
	Delete(documentID string) error
	Search(query string, k int) []domain.RetrievedChunk
}

// AnswerGenerator turns a filled prompt into a stream of text fragments,
// emitted in order and never revised.
type AnswerGenerator interface {
	GenerateStream(ctx context.Context, prompt string) (<-chan string, error)
}
