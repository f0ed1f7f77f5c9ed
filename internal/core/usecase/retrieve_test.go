package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

type generatorFake struct {
	prompt    string
	fragments []string
	err       error
}

func (f *generatorFake) GenerateStream(_ context.Context, prompt string) (<-chan string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.prompt = prompt
	out := make(chan string, len(f.fragments))
	for _, fragment := range f.fragments {
		out <- fragment
	}
	close(out)
	return out, nil
}

func collect(t *testing.T, stream <-chan string) []string {
	t.Helper()
	var out []string
	for fragment := range stream {
		out = append(out, fragment)
	}
	return out
}

func TestStreamAnswerEmptyResultsYieldFixedMessage(t *testing.T) {
	generator := &generatorFake{fragments: []string{"should not run"}}
	uc := NewRetrieveAnswerUseCase(
		&embedderFake{queryVector: []float32{1}},
		&vectorFake{},
		&keywordFake{},
		generator,
		10, 5, 60,
	)

	stream, err := uc.StreamAnswer(context.Background(), "anything?", false)
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}
	fragments := collect(t, stream)
	if len(fragments) != 1 || fragments[0] != noInformationMessage {
		t.Fatalf("expected single no-information fragment, got %v", fragments)
	}
	if generator.prompt != "" {
		t.Fatalf("generation must not run on empty context")
	}
}

func TestStreamAnswerRelaysFragmentsInOrder(t *testing.T) {
	generator := &generatorFake{fragments: []string{"first ", "second ", "third"}}
	uc := NewRetrieveAnswerUseCase(
		&embedderFake{queryVector: []float32{1}},
		&vectorFake{searchHits: []domain.RetrievedChunk{{DocumentID: "doc-1", Text: "context chunk"}}},
		&keywordFake{},
		generator,
		10, 5, 60,
	)

	stream, err := uc.StreamAnswer(context.Background(), "question?", false)
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}
	fragments := collect(t, stream)
	if strings.Join(fragments, "") != "first second third" {
		t.Fatalf("fragments reordered or lost: %v", fragments)
	}
}

func TestStreamAnswerSelectsPromptTemplateByFlag(t *testing.T) {
	hits := []domain.RetrievedChunk{{Text: "alpha"}, {Text: "beta"}}

	generator := &generatorFake{}
	uc := NewRetrieveAnswerUseCase(
		&embedderFake{queryVector: []float32{1}},
		&vectorFake{searchHits: hits},
		&keywordFake{},
		generator,
		10, 5, 60,
	)

	if _, err := uc.StreamAnswer(context.Background(), "q?", false); err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}
	if !strings.Contains(generator.prompt, "Do not use any external knowledge") {
		t.Fatalf("expected strict template, got: %s", generator.prompt)
	}
	if !strings.Contains(generator.prompt, "alpha"+contextDelimiter+"beta") {
		t.Fatalf("expected delimited context block, got: %s", generator.prompt)
	}

	if _, err := uc.StreamAnswer(context.Background(), "q?", true); err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}
	if !strings.Contains(generator.prompt, "supplement your answer with your own general knowledge") {
		t.Fatalf("expected hybrid template, got: %s", generator.prompt)
	}
}

func TestStreamAnswerPropagatesEmbeddingError(t *testing.T) {
	uc := NewRetrieveAnswerUseCase(
		&embedderFake{queryErr: errors.New("gateway down")},
		&vectorFake{},
		&keywordFake{},
		&generatorFake{},
		10, 5, 60,
	)

	_, err := uc.StreamAnswer(context.Background(), "q?", false)
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding failure, got %v", err)
	}
}

func TestStreamAnswerPropagatesVectorSearchError(t *testing.T) {
	uc := NewRetrieveAnswerUseCase(
		&embedderFake{queryVector: []float32{1}},
		&vectorFake{searchErr: errors.New("qdrant down")},
		&keywordFake{},
		&generatorFake{},
		10, 5, 60,
	)

	_, err := uc.StreamAnswer(context.Background(), "q?", false)
	if !domain.IsKind(err, domain.ErrVectorIndex) {
		t.Fatalf("expected vector index failure, got %v", err)
	}
}
