package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-base/internal/config"
	"github.com/kirillkom/knowledge-base/internal/core/ports"
	"github.com/kirillkom/knowledge-base/internal/core/usecase"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/extractor"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/keyword"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/llm/mockllm"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/knowledge-base/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/knowledge-base/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Registrar ports.DocumentRegistrar
	Indexer   ports.DocumentIndexer
	Remover   ports.DocumentRemover
	Retriever ports.AnswerStreamer
	Metrics   *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.New(cfg.NATSURL, cfg.NATSCreatedSubject, cfg.NATSDeletedSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	keywords, err := keyword.Open(cfg.KeywordIndexPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	embedder, generator := newLLMProvider(cfg, executor, logger)
	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, logger)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewDispatcher(storage, logger)

	registrar := usecase.NewRegisterDocumentUseCase(repo, storage, queue, logger)
	indexer := usecase.NewIndexDocumentUseCase(repo, extract, chunker, embedder, vectors, keywords, logger)
	remover := usecase.NewRemoveDocumentUseCase(vectors, keywords, logger)
	retriever := usecase.NewRetrieveAnswerUseCase(
		embedder, vectors, keywords, generator,
		cfg.RetrievalCandidates, cfg.RetrievalTopK, cfg.FusionRRFK,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		Registrar: registrar,
		Indexer:   indexer,
		Remover:   remover,
		Retriever: retriever,
		Metrics:   metrics.NewWorkerMetrics(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// newLLMProvider selects the model backend. Anything other than "mock"
// falls through to ollama so a typo degrades loudly at request time
// rather than silently serving canned answers.
func newLLMProvider(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.Embedder, ports.AnswerGenerator) {
	if cfg.LLMProvider == "mock" {
		provider := mockllm.New()
		return provider, provider
	}
	client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor, logger)
	return ollama.NewEmbedder(client), ollama.NewGenerator(client)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
