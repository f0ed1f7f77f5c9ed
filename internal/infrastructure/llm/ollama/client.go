package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-base/internal/infrastructure/resilience"
)

// Client carries the connection details shared by the embedder and the
// generator. The executor is optional; without one calls go out
// directly with no retry or breaker.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		logger:     logger,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// EmbedDocuments embeds all texts in one request. Ollama batches on the
// server side, so chunk count is bounded only by the request size.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// GenerateStream starts a streaming generation and relays response
// fragments on the returned channel. The channel is closed when the
// model reports done, the stream ends or ctx is cancelled. Request
// setup errors are returned synchronously; mid-stream failures are
// logged and end the stream early, matching what the consumer on the
// other end of an SSE connection can do about them anyway.
func (g *Generator) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	var resp *http.Response
	start := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.client.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create generate request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := g.client.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ollama generate request: %w", err)
		}
		if r.StatusCode >= 300 {
			defer r.Body.Close()
			return newHTTPStatusError("generate", r)
		}
		resp = r
		return nil
	}

	if g.client.executor != nil {
		err = g.client.executor.Execute(ctx, "ollama.generate", start, classifyError)
	} else {
		err = start(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("generate answer", err)
	}

	out := make(chan string)
	go g.relay(ctx, resp, out)
	return out, nil
}

func (g *Generator) relay(ctx context.Context, resp *http.Response, out chan<- string) {
	defer close(out)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var fragment struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(line, &fragment); err != nil {
			g.client.logger.Error("generate stream decode failed", "error", err)
			return
		}

		if fragment.Response != "" {
			select {
			case out <- fragment.Response:
			case <-ctx.Done():
				return
			}
		}
		if fragment.Done {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		g.client.logger.Error("generate stream ended early", "error", err)
	}
}
