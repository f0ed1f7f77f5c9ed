package domain

import "time"

type SourceKind string

const (
	SourceFile       SourceKind = "file"
	SourceTranscript SourceKind = "transcript"
	SourceWebPage    SourceKind = "web_page"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the canonical record both indexes are kept consistent with.
// The core reads id/status, writes status and chunk_count; everything else
// belongs to the metadata store.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	SourceKind  SourceKind     `json:"source_kind"`
	SourceURL   string         `json:"source_url,omitempty"`
	StoragePath string         `json:"storage_path,omitempty"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
