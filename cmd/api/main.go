package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sola-scriptura-search-api/internal/cache"
	"github.com/sola-scriptura-search-api/internal/config"
	"github.com/sola-scriptura-search-api/internal/directmatch"
	"github.com/sola-scriptura-search-api/internal/embed"
	"github.com/sola-scriptura-search-api/internal/expand"
	"github.com/sola-scriptura-search-api/internal/graph"
	"github.com/sola-scriptura-search-api/internal/graphstore"
	"github.com/sola-scriptura-search-api/internal/handlers"
	"github.com/sola-scriptura-search-api/internal/llm"
	"github.com/sola-scriptura-search-api/internal/middleware"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/orchestrator"
	"github.com/sola-scriptura-search-api/internal/relational"
	"github.com/sola-scriptura-search-api/internal/rerank"
	"github.com/sola-scriptura-search-api/internal/semantic"
	"github.com/sola-scriptura-search-api/internal/textindex"
	"github.com/sola-scriptura-search-api/internal/translate"
	"github.com/sola-scriptura-search-api/internal/vectorstore"
	"github.com/sola-scriptura-search-api/pkg/schema/db"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	cfg := config.GetConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware())

	ctx := context.Background()

	// PostgreSQL backs relational source resolution and (optionally) the
	// pgvector backend. It is not required for an hnsw/dev deployment, so a
	// missing POSTGRES_URI degrades those two collaborators instead of
	// aborting startup.
	var pgInitErr error
	if cfg.PostgresURI != "" {
		pgInitErr = db.InitPostgres(ctx)
		if pgInitErr != nil {
			log.Warn().Err(pgInitErr).Msg("postgres unavailable, relational source resolution disabled")
		}
	} else {
		log.Info().Msg("POSTGRES_URI not set, relational source resolution disabled")
	}
	vecStore, vertexVecCloser := buildVectorStore(ctx, cfg)

	embedder := buildEmbedder(ctx, cfg)

	durable, err := cache.OpenDurable(cfg.DurableCachePath)
	if err != nil {
		log.Warn().Err(err).Msg("durable cache unavailable, expansion/enrichment tiers disabled")
		durable = nil
	}
	tiers, err := cache.NewTiers(durable, cfg.EmbeddingCacheSize, cfg.TranslationCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache tiers")
	}

	var cachedEmbedder embed.Embedder
	if embedder != nil {
		cachedEmbedder = embed.NewCachedEmbedder(embedder, tiers.Embeddings, tiers.Locks)
	}

	var semanticSearcher *semantic.Searcher
	if cachedEmbedder != nil && vecStore != nil {
		semanticSearcher = semantic.New(cachedEmbedder, vecStore)
	} else {
		log.Info().Msg("embedder or vector store unavailable, semantic search disabled")
	}

	// The expander and reranker share one provider behind a combined
	// in-flight cap so together they never exceed the LLM endpoint's
	// concurrency budget.
	chatProvider := llm.Limit(buildChatProvider(ctx, cfg), cfg.LLMConcurrencyCap)

	var expander *expand.Expander
	var reranker *rerank.Reranker
	if chatProvider != nil {
		expander = expand.New(chatProvider, tiers, cfg.ExpansionPromptVersion, cfg.ExpansionTimeout)
		reranker = rerank.New(chatProvider)
	} else {
		log.Info().Msg("no LLM provider configured, query expansion and reranking disabled")
	}

	indexSet, textIndexes := buildTextIndexes(cfg)

	graphResolver := buildGraphResolver(ctx, cfg)

	var translations *translate.Service
	if pgDB := db.GetPostgres(); pgDB != nil {
		translations = translate.New(relational.New(pgDB), tiers.Translations)
	}

	orch := orchestrator.New(orchestrator.Config{
		TextIndexes:                   textIndexes,
		Semantic:                      semanticSearcher,
		Expander:                      expander,
		Reranker:                      reranker,
		Graph:                         graphResolver,
		Translations:                  translations,
		StandardDeadline:              cfg.StandardModeDeadline,
		RefineDeadline:                cfg.RefineModeDeadline,
		RefineConcurrency:             cfg.RefineConcurrencyCap,
		DefaultLimit:                  cfg.DefaultLimit,
		DefaultSimilarityCutoff:       cfg.DefaultSimilarityCutoff,
		DefaultRefineSimilarityCutoff: cfg.DefaultRefineSimilarityCutoff,
		DefaultPreRerankLimit:         cfg.DefaultPreRerankLimit,
		DefaultPostRerankLimit:        cfg.DefaultPostRerankLimit,
		ExpandedQueryWeight:           cfg.ExpandedQueryWeight,
	})

	// Forces the direct-match dictionary to build once at startup rather
	// than on the first request.
	directmatch.Get()

	api := e.Group(cfg.APIPrefix)

	vectorBackend := ""
	if semanticSearcher != nil {
		vectorBackend = cfg.VectorBackend
	}
	healthHandler := handlers.NewHealthHandler(textIndexes, graphResolver != nil, vectorBackend)
	healthHandler.RegisterRoutes(api)

	searchHandler := handlers.NewSearchHandler(orch, cfg)
	searchHandler.RegisterRoutes(api)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info().Str("addr", addr).Str("version", cfg.APIVersion).Msgf("starting %s", cfg.APITitle)
		if err := e.Start(addr); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down server")
	}
	if err := db.ClosePostgres(); err != nil {
		log.Error().Err(err).Msg("error closing postgresql")
	}
	if vertexVecCloser != nil {
		if err := vertexVecCloser(); err != nil {
			log.Error().Err(err).Msg("error closing vertex ai vector client")
		}
	}
	if err := indexSet.Close(); err != nil {
		log.Error().Err(err).Msg("error closing text indexes")
	}
	if durable != nil {
		if err := durable.Close(); err != nil {
			log.Error().Err(err).Msg("error closing durable cache")
		}
	}
	if chatProvider != nil {
		if err := chatProvider.Close(); err != nil {
			log.Error().Err(err).Msg("error closing llm provider")
		}
	}
	log.Info().Msg("server stopped")
}

// buildVectorStore selects one of the three ANN backends per
// cfg.VectorBackend, degrading to nil (semantic search disabled) rather
// than aborting startup when the chosen backend's prerequisites are
// missing.
func buildVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, func() error) {
	switch cfg.VectorBackend {
	case "vertex":
		pgDB := db.GetPostgres()
		vcfg := vectorstore.VertexConfig{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
			Collections: map[string]vectorstore.VertexCollection{
				string(model.CorpusQuran): {
					IndexEndpointID: cfg.VertexQuranIndexEndpointID,
					DeployedIndexID: cfg.VertexQuranDeployedIndexID,
				},
				string(model.CorpusHadith): {
					IndexEndpointID: cfg.VertexHadithIndexEndpointID,
					DeployedIndexID: cfg.VertexHadithDeployedIndexID,
				},
				string(model.CorpusBook): {
					IndexEndpointID: cfg.VertexBookIndexEndpointID,
					DeployedIndexID: cfg.VertexBookDeployedIndexID,
				},
			},
		}
		store, err := vectorstore.NewVertexStore(ctx, vcfg, pgDB)
		if err != nil {
			log.Warn().Err(err).Msg("vertex vector store unavailable")
			return nil, nil
		}
		return store, store.Close
	case "pgvector":
		pgDB := db.GetPostgres()
		if pgDB == nil {
			log.Warn().Msg("pgvector backend selected but postgres is not configured")
			return nil, nil
		}
		return vectorstore.NewPgvectorStore(pgDB), nil
	default:
		return vectorstore.NewHNSWStore(cfg.HNSWDimensions), nil
	}
}

// buildEmbedder selects the embedding provider per cfg.EmbeddingProvider,
// returning nil (semantic search disabled) if the chosen provider fails to
// initialize.
func buildEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:  cfg.OllamaHost,
			Model: cfg.OllamaEmbedModel,
		})
	default:
		e, err := embed.NewVertexEmbedder(ctx, embed.VertexConfig{
			ProjectID: cfg.VertexProjectID,
			Location:  cfg.VertexLocation,
			Model:     cfg.VertexEmbedModel,
		})
		if err != nil {
			log.Warn().Err(err).Msg("vertex embedder unavailable")
			return nil
		}
		return e
	}
}

// buildChatProvider selects the LLM provider shared by the query expander
// and reranker per cfg.LLMProvider.
func buildChatProvider(ctx context.Context, cfg *config.Config) llm.Provider {
	switch cfg.LLMProvider {
	case "vertex":
		p, err := llm.NewVertexChatProvider(ctx, cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexChatModel)
		if err != nil {
			log.Warn().Err(err).Msg("vertex chat provider unavailable")
			return nil
		}
		return p
	default:
		return llm.NewOllamaProvider(llm.OllamaConfig{
			Host:  cfg.OllamaChatHost,
			Model: cfg.OllamaChatModel,
		})
	}
}

// buildTextIndexes opens one Bleve index per corpus under cfg.TextIndexDir
// (in-memory indexes when unset) and exposes them both as the Set used for
// shutdown and as the per-corpus map the orchestrator consumes.
func buildTextIndexes(cfg *config.Config) (*textindex.Set, map[model.Corpus]*textindex.Index) {
	set, err := textindex.OpenSet(cfg.TextIndexDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open text indexes")
	}
	return set, map[model.Corpus]*textindex.Index{
		model.CorpusQuran:  set.Quran,
		model.CorpusHadith: set.Hadith,
		model.CorpusBook:   set.Book,
	}
}

// buildGraphResolver connects the FalkorDB knowledge-graph store and pairs
// it with a relational store over pgDB, degrading to nil (graph
// augmentation disabled) on any connection failure.
func buildGraphResolver(ctx context.Context, cfg *config.Config) *graph.Resolver {
	store := graphstore.New(graphstore.Config{
		Host:      cfg.GraphHost,
		Port:      cfg.GraphPort,
		Password:  cfg.GraphPassword,
		GraphName: cfg.GraphName,
		PoolSize:  cfg.GraphPoolSize,
	})
	if err := store.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("graph store unavailable, knowledge-graph augmentation disabled")
		return nil
	}
	if err := store.EnsureFullTextIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("graph full-text index setup failed")
	}

	var rel *relational.Store
	if db := db.GetPostgres(); db != nil {
		rel = relational.New(db)
	}
	return graph.New(store, rel)
}
