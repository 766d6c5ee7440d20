package bootstrap

import (
	"context"
	"fmt"

	"github.com/arcadeops/manual-search/internal/config"
	"github.com/arcadeops/manual-search/internal/core/ports"
	"github.com/arcadeops/manual-search/internal/core/usecase"
	"github.com/arcadeops/manual-search/internal/infrastructure/chunking"
	"github.com/arcadeops/manual-search/internal/infrastructure/extractor"
	"github.com/arcadeops/manual-search/internal/infrastructure/extractor/pdfdoc"
	"github.com/arcadeops/manual-search/internal/infrastructure/extractor/plaintext"
	"github.com/arcadeops/manual-search/internal/infrastructure/llm/ollama"
	"github.com/arcadeops/manual-search/internal/infrastructure/llm/rerank"
	"github.com/arcadeops/manual-search/internal/infrastructure/queue/nats"
	"github.com/arcadeops/manual-search/internal/infrastructure/repository/postgres"
	"github.com/arcadeops/manual-search/internal/infrastructure/resilience"
	"github.com/arcadeops/manual-search/internal/infrastructure/storage/localfs"
	"github.com/arcadeops/manual-search/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Manuals ports.ManualRepository
	Tenants ports.TenantResolver

	SearchUC   ports.SearchService
	RundownUC  ports.RundownService
	MergeUC    ports.ManualMerger
	IngestUC   ports.ManualIngestor
	ProcessUC  ports.ManualProcessor
	QAImportUC ports.QAImporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	manuals := postgres.NewManualRepository(db)
	chunks := postgres.NewChunkRepository(db)
	figures := postgres.NewFigureRepository(db)
	qaPairs := postgres.NewQARepository(db)
	legacyQA := postgres.NewLegacyQARepository(db)
	tenants := postgres.NewTenantRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIngestSubject, cfg.NATSMergeSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
	reranker := rerank.New(cfg.RerankURL, cfg.RerankModel, cfg.RerankAPIKey, executor)

	chunkVectors := qdrant.NewChunkClient(cfg.QdrantURL, cfg.QdrantChunkCollection)
	figureVectors := qdrant.NewFigureClient(cfg.QdrantURL, cfg.QdrantFigureCollection)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewComposite(pdfdoc.NewExtractor(storage), plaintext.NewExtractor(storage))

	tuning := searchTuning(cfg)
	strategies := []usecase.RetrievalStrategy{
		usecase.NewDenseStrategy(embedder, chunkVectors, figureVectors, tuning.DenseMinHits, tuning.DenseMinScore),
		usecase.NewLexicalStrategy(chunks),
		usecase.NewSubstringStrategy(chunks),
	}

	searchUC := usecase.NewSearchUseCase(strategies, reranker, manuals, tuning)
	rundownUC := usecase.NewRundownUseCase(searchUC, usecase.RundownTuning{
		MaxSections:  cfg.RundownMaxSections,
		GistChars:    cfg.RundownGistChars,
		MaxCitations: cfg.RundownMaxCitations,
	})
	mergeUC := usecase.NewMergeUseCase(manuals, chunks, figures, embedder, figureVectors, []ports.QuestionAnswerStore{qaPairs, legacyQA})
	ingestUC := usecase.NewIngestManualUseCase(manuals, storage, queue)
	processUC := usecase.NewProcessManualUseCase(manuals, extract, chunker, embedder, chunkVectors, chunks, figures, figureVectors)
	qaImportUC := usecase.NewQAImportUseCase(manuals, qaPairs)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Manuals: manuals,
		Tenants: tenants,

		SearchUC:   searchUC,
		RundownUC:  rundownUC,
		MergeUC:    mergeUC,
		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		QAImportUC: qaImportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func searchTuning(cfg config.Config) usecase.SearchTuning {
	return usecase.SearchTuning{
		DefaultTopK:       cfg.SearchDefaultTopK,
		DenseMinHits:      cfg.DenseMinHits,
		DenseMinScore:     cfg.DenseMinScore,
		RerankTopN:        cfg.RerankTopN,
		RerankMaxChars:    cfg.RerankMaxChars,
		FigureTextPenalty: cfg.FigureTextPenalty,
		FigureBoost:       cfg.FigureBoost,
		AnchorPageBoost:   cfg.AnchorPageBoost,
		VisualIntentBoost: cfg.VisualIntentBoost,
		AnchorTextTopN:    cfg.AnchorTextTopN,
		MMRLambda:         cfg.MMRLambda,
		MMRTargetCount:    cfg.MMRTargetCount,
		TextResultCap:     cfg.TextResultCap,
		FigureResultCap:   cfg.FigureResultCap,
	}
}
