package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
	"github.com/kirillkom/knowledge-base/internal/core/ports"
)

const (
	noInformationMessage = "I could not find any relevant information in the uploaded documents to answer your question."
	contextDelimiter     = "\n\n---\n\n"
)

const strictPromptTemplate = `Use the following context to answer the user's question.
If you cannot find the answer in the provided context, simply state that you could not find the information in the provided documents.
Do not use any external knowledge or make up information.

Context:
%s

Question:
%s
`

const hybridPromptTemplate = `You are a helpful AI assistant. Use the following context from user-provided documents as your primary source of truth to answer the user's question.
You may supplement your answer with your own general knowledge to provide a more complete and helpful response.
If the provided context directly contradicts your general knowledge, you must prioritize the information from the context.

Context:
%s

Question:
%s
`

// RetrieveAnswerUseCase runs one query end to end: embed the question,
// collect candidates from both indexes, fuse, build the prompt and stream
// the generated answer. Embedding, vector-search and generation errors
// propagate to the caller; an empty fused set is answered with a fixed
// message instead.
type RetrieveAnswerUseCase struct {
	embedder  ports.Embedder
	vectors   ports.VectorStore
	keywords  ports.KeywordIndex
	generator ports.AnswerGenerator

	candidates int
	topK       int
	rrfK       int
}

func NewRetrieveAnswerUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	keywords ports.KeywordIndex,
	generator ports.AnswerGenerator,
	candidates, topK, rrfK int,
) *RetrieveAnswerUseCase {
	if candidates <= 0 {
		candidates = 10
	}
	if topK <= 0 {
		topK = 5
	}
	return &RetrieveAnswerUseCase{
		embedder:   embedder,
		vectors:    vectors,
		keywords:   keywords,
		generator:  generator,
		candidates: candidates,
		topK:       topK,
		rrfK:       rrfK,
	}
}

func (uc *RetrieveAnswerUseCase) StreamAnswer(
	ctx context.Context,
	question string,
	allowExternal bool,
) (<-chan string, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", err)
	}

	semantic, err := uc.vectors.Search(ctx, queryVector, uc.candidates)
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorIndex, "similarity search", err)
	}
	lexical := uc.keywords.Search(question, uc.candidates)

	fused := fuseReciprocalRank(semantic, lexical, uc.rrfK, uc.topK)
	if len(fused) == 0 {
		out := make(chan string, 1)
		out <- noInformationMessage
		close(out)
		return out, nil
	}

	stream, err := uc.generator.GenerateStream(ctx, buildPrompt(question, fused, allowExternal))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}
	return stream, nil
}

func buildPrompt(question string, chunks []domain.RetrievedChunk, allowExternal bool) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	contextBlock := strings.Join(texts, contextDelimiter)

	template := strictPromptTemplate
	if allowExternal {
		template = hybridPromptTemplate
	}
	return fmt.Sprintf(template, contextBlock, question)
}
