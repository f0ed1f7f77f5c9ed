package usecase

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/keyword"
)

// Exercises ingest, retrieve and delete against the real chunker and the
// real keyword index, with the network-facing dependencies faked out.
func TestIngestRetrieveDeleteRoundTrip(t *testing.T) {
	keywords, err := keyword.Open(filepath.Join(t.TempDir(), "index.json"), testLogger())
	if err != nil {
		t.Fatalf("open keyword index: %v", err)
	}
	splitter := chunking.NewSplitter(500, 50)
	vectors := &vectorFake{}

	docs := map[string]string{
		"doc-1": "My xylophone practice schedule for the spring recital.",
		"doc-2": "Grocery list with apples, oat milk and coffee beans.",
		"doc-3": "Meeting notes about the quarterly budget review.",
	}
	for id, text := range docs {
		repo := &repoFake{doc: &domain.Document{ID: id, Filename: id + ".txt"}}
		uc := NewIndexDocumentUseCase(
			repo,
			&extractorFake{text: text},
			splitter,
			&embedderFake{vectors: [][]float32{{1}}},
			vectors,
			keywords,
			testLogger(),
		)
		if err := uc.IndexByID(context.Background(), id); err != nil {
			t.Fatalf("IndexByID(%s) error = %v", id, err)
		}
		if repo.completedID != id {
			t.Fatalf("document %s not marked completed", id)
		}
	}

	generator := &generatorFake{fragments: []string{"answer"}}
	retriever := NewRetrieveAnswerUseCase(
		&embedderFake{queryVector: []float32{1}},
		vectors,
		keywords,
		generator,
		10, 5, 60,
	)

	stream, err := retriever.StreamAnswer(context.Background(), "when is xylophone practice?", false)
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}
	if got := strings.Join(collect(t, stream), ""); got != "answer" {
		t.Fatalf("expected generated answer, got %q", got)
	}
	if !strings.Contains(generator.prompt, docs["doc-1"]) {
		t.Fatalf("xylophone chunk missing from prompt context:\n%s", generator.prompt)
	}
	if strings.Contains(generator.prompt, docs["doc-2"]) {
		t.Fatalf("unrelated chunk leaked into prompt context:\n%s", generator.prompt)
	}

	remover := NewRemoveDocumentUseCase(vectors, keywords, testLogger())
	if err := remover.RemoveByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("RemoveByID() error = %v", err)
	}
	if len(vectors.deletedDocs) != 1 || vectors.deletedDocs[0] != "doc-1" {
		t.Fatalf("vector delete not issued: %v", vectors.deletedDocs)
	}

	generator.prompt = ""
	stream, err = retriever.StreamAnswer(context.Background(), "when is xylophone practice?", false)
	if err != nil {
		t.Fatalf("StreamAnswer() after delete error = %v", err)
	}
	fragments := collect(t, stream)
	if len(fragments) != 1 || fragments[0] != noInformationMessage {
		t.Fatalf("expected no-information message after delete, got %v", fragments)
	}
	if generator.prompt != "" {
		t.Fatalf("generation must not run after the only relevant document is gone")
	}
}
