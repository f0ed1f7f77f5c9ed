package mockllm

import (
	"context"
	"hash/fnv"
	"strings"
	"time"
)

const vectorSize = 8

// Provider is a stand-in for a real model server so the rest of the
// system can run without one. Embeddings are deterministic hashes of
// the input text and generation streams a fixed sentence word by word.
type Provider struct {
	delay time.Duration
}

func New() *Provider {
	return &Provider{delay: 20 * time.Millisecond}
}

func (p *Provider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embed(text)
	}
	return out, nil
}

func (p *Provider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embed(text), nil
}

func (p *Provider) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	words := strings.Fields("This is a canned answer from the mock model, generated for a prompt of " +
		lengthBucket(prompt) + " length.")

	out := make(chan string)
	go func() {
		defer close(out)
		for i, word := range words {
			fragment := word
			if i < len(words)-1 {
				fragment += " "
			}
			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
			if p.delay > 0 {
				timer := time.NewTimer(p.delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
		}
	}()
	return out, nil
}

func embed(text string) []float32 {
	vector := make([]float32, vectorSize)
	for i := range vector {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		vector[i] = float32(h.Sum32()%1000)/500.0 - 1.0
	}
	return vector
}

func lengthBucket(prompt string) string {
	switch {
	case len(prompt) < 200:
		return "short"
	case len(prompt) < 2000:
		return "medium"
	default:
		return "long"
	}
}
