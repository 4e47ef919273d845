package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/bootstrap"
	"banking-chatbot-backend/internal/config"
	"banking-chatbot-backend/internal/db"
	"banking-chatbot-backend/internal/enrich"
	"banking-chatbot-backend/internal/metrics"
	"banking-chatbot-backend/internal/pipeline"
	"banking-chatbot-backend/internal/server"
	"banking-chatbot-backend/internal/store"
	"banking-chatbot-backend/internal/watson"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.LogFormat, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// bank opens the banking collaborator: PostgreSQL when DB_URL is set,
// otherwise the in-memory dataset.
func bank(ctx context.Context, cfg config.Config, variant banking.Variant, logger *zap.Logger) (banking.Services, func(context.Context) error, func(), error) {
	var (
		ds  *store.Dataset
		err error
	)
	if cfg.DataFile != "" {
		ds, err = store.LoadDatasetFile(cfg.DataFile)
	} else {
		ds, err = store.LoadDataset(variant.Dataset)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		logger.Info("serving bundled banking dataset", zap.String("variant", variant.Name))
		return store.NewMemoryStore(ds), nil, func() {}, nil
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.RunMigrations(ctx, db.Migrations()); err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	pg := store.NewDatabaseStore(database)
	if err := pg.Seed(ctx, ds); err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	logger.Info("serving banking data from database")
	return pg, database.HealthCheck, func() { _ = database.Close() }, nil
}

func newEnricher(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*enrich.Aggregator, error) {
	var (
		tone     enrich.ToneScorer
		entities enrich.EntityExtractor
	)
	switch cfg.EnrichmentProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, enrichment disabled")
			break
		}
		llm, err := enrich.LoadLLMAnalyzer(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		tone, entities = llm, llm
	case "watson", "":
		if cfg.ToneAnalyzer.APIKey != "" {
			t, err := watson.NewToneAnalyzer(cfg.ToneAnalyzer.URL, watson.NewHTTPClient(cfg.ToneAnalyzer.APIKey, cfg.IAMURL, cfg.WatsonTimeout))
			if err != nil {
				return nil, err
			}
			tone = t
		}
		if cfg.NLU.APIKey != "" {
			n, err := watson.NewNLU(cfg.NLU.URL, watson.NewHTTPClient(cfg.NLU.APIKey, cfg.IAMURL, cfg.WatsonTimeout))
			if err != nil {
				return nil, err
			}
			entities = n
		}
	default:
		return nil, fmt.Errorf("unknown enrichment provider %q", cfg.EnrichmentProvider)
	}
	return enrich.NewAggregator(tone, entities, logger, m), nil
}

func newSetup(cfg config.Config, assistant *watson.Assistant, discovery *watson.Discovery, logger *zap.Logger) *bootstrap.Setup {
	var collections bootstrap.CollectionAPI
	if discovery != nil {
		collections = discovery
	}
	return bootstrap.New(assistant, collections, bootstrap.Config{
		DefaultName:     config.DefaultName,
		SkillID:         cfg.SkillID,
		WorkspaceName:   cfg.WorkspaceName,
		WorkspaceFile:   cfg.WorkspaceFile,
		EnvironmentID:   cfg.DiscoveryEnvironmentID,
		EnvironmentName: cfg.DiscoveryEnvironmentName,
		CollectionID:    cfg.DiscoveryCollectionID,
		CollectionName:  cfg.DiscoveryCollectionName,
		DocsDir:         cfg.DiscoveryDocsDir,
	}, logger)
}

func watsonServices(cfg config.Config) (*watson.Assistant, *watson.Discovery, error) {
	assistant, err := watson.NewAssistant(cfg.Assistant.URL, watson.NewHTTPClient(cfg.Assistant.APIKey, cfg.IAMURL, cfg.WatsonTimeout))
	if err != nil {
		return nil, nil, err
	}
	if !cfg.DiscoveryEnabled {
		return assistant, nil, nil
	}
	discovery, err := watson.NewDiscovery(cfg.Discovery.URL, watson.NewHTTPClient(cfg.Discovery.APIKey, cfg.IAMURL, cfg.WatsonTimeout))
	if err != nil {
		return nil, nil, err
	}
	return assistant, discovery, nil
}

// setupFailed stops the process when startup setup fails. Cancellation
// means shutdown is already under way and is left to the server.
func setupFailed(logger *zap.Logger) func(error) {
	return func(err error) {
		if errors.Is(err, context.Canceled) {
			logger.Info("startup setup interrupted", zap.Error(err))
			return
		}
		logger.Fatal("startup setup failed", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	variant, err := banking.LookupVariant(cfg.Variant)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bankSvc, dbHealth, closeBank, err := bank(ctx, cfg, variant, logger)
	if err != nil {
		return fmt.Errorf("banking data: %w", err)
	}
	defer closeBank()

	enricher, err := newEnricher(cfg, logger, m)
	if err != nil {
		return err
	}

	assistant, discovery, err := watsonServices(cfg)
	if err != nil {
		return err
	}
	boot := newSetup(cfg, assistant, discovery, logger)
	boot.Start(ctx, setupFailed(logger))

	var query bootstrap.QueryAPI
	if discovery != nil {
		query = discovery
	}
	search := bootstrap.NewDiscoverySearcher(boot.Runtime(), query)
	dispatcher := pipeline.NewDispatcher(assistant, bankSvc, search, variant, cfg.CustomerID, logger, m)
	chat := pipeline.New(boot.Runtime(), assistant, enricher, bankSvc, dispatcher, cfg.CustomerID, logger)

	s := server.NewServer(cfg, server.Deps{
		Chat:      chat,
		Readiness: boot.Runtime(),
		Search:    search,
		DBHealth:  dbHealth,
		Metrics:   m,
		Gatherer:  reg,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("banking chatbot listening", zap.String("addr", srv.Addr), zap.String("variant", variant.Name))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// setup resolves the Watson resources synchronously and prints their
// identifiers so they can be pinned with SKILL_ID and DISCOVERY_*_ID.
func setup(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	assistant, discovery, err := watsonServices(cfg)
	if err != nil {
		return err
	}
	s := newSetup(cfg, assistant, discovery, logger)
	if err := s.Run(ctx); err != nil {
		return err
	}

	rt := s.Runtime()
	if id, ok := rt.WorkspaceID(); ok {
		fmt.Fprintf(out, "SKILL_ID=%s\n", id)
	}
	if target, ok := rt.Discovery(); ok {
		fmt.Fprintf(out, "DISCOVERY_ENVIRONMENT_ID=%s\n", target.EnvironmentID)
		fmt.Fprintf(out, "DISCOVERY_COLLECTION_ID=%s\n", target.CollectionID)
	}
	return nil
}
