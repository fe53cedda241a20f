package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pcstore/internal/config"
	"pcstore/internal/handler"
	"pcstore/internal/logger"
	"pcstore/internal/metrics"
	"pcstore/internal/model"
	"pcstore/internal/repository"
	"pcstore/internal/resilience"
	"pcstore/internal/service"
	"pcstore/internal/taxonomy"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(cfg.Logging, nil)
	l.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("PC store assistant starting")

	gin.SetMode(cfg.Server.GinMode)

	tax, err := taxonomy.Load(cfg.Assistant.TaxonomyFile)
	if err != nil {
		l.Fatal().Err(err).Str("file", cfg.Assistant.TaxonomyFile).Msg("failed to load taxonomy")
	}

	ctx := context.Background()

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(
		ctx,
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()
	l.Info().Msg("connected to PostgreSQL database")

	if cfg.PostgreSQL.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			l.Fatal().Err(err).Msg("failed to apply schema")
		}
		if err := repo.UpsertCategories(ctx, categoriesFromTaxonomy(tax)); err != nil {
			l.Fatal().Err(err).Msg("failed to seed categories")
		}
		l.Info().Int("categories", len(tax.Entries())).Msg("schema and categories up to date")
	}

	m := metrics.New(cfg.Logging.ServiceName)

	models, err := newModels(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize language models")
	}
	defer models.close()

	// Initialize services
	builder, err := service.NewQueryBuilder(tax, cfg.Assistant.DefaultLimit, cfg.Assistant.PerSlotLimit)
	if err != nil {
		l.Fatal().Err(err).Msg("taxonomy is missing required keys")
	}
	ranker := service.NewRanker(
		cfg.Ranking.WeightTerms,
		cfg.Ranking.WeightBias,
		cfg.Ranking.WeightPrice,
	)
	retriever := service.NewCascadingRetriever(repo, ranker, m, service.RetrieverOptions{
		LookupTimeout: cfg.Assistant.LookupTimeout,
		ScanCap:       cfg.Assistant.ScanCap,
		Concurrency:   cfg.Assistant.SlotConcurrency,
	})
	assistant := service.NewAssistantService(service.AssistantDeps{
		Store:     repo,
		Taxonomy:  tax,
		Builder:   builder,
		Retriever: retriever,
		Formatter: service.NewResultFormatter(tax),
		Extractor: models.extractor,
		Generator: models.generator,
		Metrics:   m,
	}, service.AssistantOptions{
		DefaultLimit:    cfg.Assistant.DefaultLimit,
		ExtractTimeout:  cfg.Assistant.ExtractTimeout,
		GenerateTimeout: cfg.Assistant.GenerateTimeout,
	})

	// Initialize handlers
	assistantHandler := handler.NewAssistantHandler(assistant)
	feedbackHandler := handler.NewFeedbackHandler(assistant)

	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger(l), handler.Metrics(m))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		status, dbStatus := http.StatusOK, "ok"
		if err := repo.Ping(c.Request.Context()); err != nil {
			status, dbStatus = http.StatusServiceUnavailable, err.Error()
		}
		c.JSON(status, gin.H{
			"status":     http.StatusText(status),
			"service":    cfg.Logging.ServiceName,
			"database":   dbStatus,
			"extractor":  cfg.Assistant.ExtractorProvider,
			"generator":  cfg.Assistant.GeneratorProvider,
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	apiV1.Use(handler.RateLimit(cfg.RateLimit))
	{
		apiV1.POST("/assistant", assistantHandler.Recommend)
		apiV1.POST("/assistant/stream", assistantHandler.RecommendStream)
		apiV1.GET("/products/:id", assistantHandler.GetProduct)
		apiV1.GET("/taxonomy", assistantHandler.Taxonomy)
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server shutdown")
	}
	assistant.Wait()
	l.Info().Msg("server stopped")
}

// languageModels holds the configured extractor and generator and the
// clients behind them
type languageModels struct {
	extractor service.PreferenceExtractor
	generator service.ResponseGenerator
	gemini    *service.GeminiClient
}

func (lm *languageModels) close() {
	if lm.gemini != nil {
		lm.gemini.Close()
	}
}

func newModels(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*languageModels, error) {
	lm := &languageModels{}

	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI)
		l.Info().
			Str("api_base", cfg.OpenAI.APIBase).
			Str("chat_model", cfg.OpenAI.ChatModel).
			Float64("temperature", cfg.OpenAI.ChatTemperature).
			Int("max_tokens", cfg.OpenAI.ChatMaxTokens).
			Msg("OpenAI-compatible client initialized")
	}
	if cfg.Gemini.Enabled && (cfg.Assistant.ExtractorProvider == config.ProviderGemini || cfg.Assistant.GeneratorProvider == config.ProviderGemini) {
		client, err := service.NewGeminiClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, err
		}
		lm.gemini = client
		l.Info().Str("model", cfg.Gemini.Model).Msg("Gemini client initialized")
	}

	switch cfg.Assistant.ExtractorProvider {
	case config.ProviderOpenAI:
		lm.extractor = service.NewGuardedExtractor(openaiClient, resilience.NewBreaker("extractor-openai", cfg.Breaker))
	case config.ProviderGemini:
		lm.extractor = service.NewGuardedExtractor(lm.gemini, resilience.NewBreaker("extractor-gemini", cfg.Breaker))
	default:
		l.Warn().Msg("no preference extractor configured, preferences come from the message text only")
		lm.extractor = service.NoExtractor{}
	}

	switch cfg.Assistant.GeneratorProvider {
	case config.ProviderOpenAI:
		lm.generator = service.NewGuardedGenerator(openaiClient, resilience.NewBreaker("generator-openai", cfg.Breaker))
	case config.ProviderGemini:
		lm.generator = service.NewGuardedGenerator(lm.gemini, resilience.NewBreaker("generator-gemini", cfg.Breaker))
	default:
		l.Warn().Msg("no response generator configured, replies are the formatted product list")
		lm.generator = service.ListGenerator{}
	}

	return lm, nil
}

// categoriesFromTaxonomy keeps file order so parents are written before children
func categoriesFromTaxonomy(tax *taxonomy.Map) []model.Category {
	entries := tax.Entries()
	categories := make([]model.Category, 0, len(entries))
	for _, e := range entries {
		c := model.Category{ID: e.CategoryID, Name: e.Name, Slug: e.Key}
		if e.ParentID != "" {
			parent := e.ParentID
			c.ParentID = &parent
		}
		categories = append(categories, c)
	}
	return categories
}
