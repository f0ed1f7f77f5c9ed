package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

// DocumentRegistrar is the inbound contract for adding sources to the
// knowledge base and for requesting their removal. Registration only
// records the document and queues the work; indexing happens in the worker.
type DocumentRegistrar interface {
	UploadFile(ctx context.Context, filename string, body io.Reader) (*domain.Document, error)
	AddWebPage(ctx context.Context, pageURL string) (*domain.Document, error)
	AddTranscript(ctx context.Context, videoURL string) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentIndexer is the inbound contract for the asynchronous ingestion job.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// DocumentRemover is the inbound contract for the asynchronous deletion job.
type DocumentRemover interface {
	RemoveByID(ctx context.Context, documentID string) error
}

// AnswerStreamer answers a question from the knowledge base as a lazy,
// order-preserving sequence of text fragments. The channel is closed when
// generation finishes or ctx is cancelled.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, question string, allowExternal bool) (<-chan string, error)
}
