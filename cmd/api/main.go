package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/contextstore"
	"mediagen/internal/engine"
	"mediagen/internal/gateway"
	"mediagen/internal/http/handlers"
	httpapi "mediagen/internal/http/httpapi"
	"mediagen/internal/infra"
	"mediagen/internal/ingest"
	"mediagen/internal/providers"
	"mediagen/internal/resolver"
	"mediagen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	clock := clockwork.NewRealClock()

	registry, err := loadRegistry(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load provider registry")
	}
	impls, err := gateway.BuildProviders(registry, gateway.Credentials{
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		DashScopeAPIKey:  cfg.DashScopeAPIKey,
		DashScopeBaseURL: cfg.DashScopeBaseURL,
	}, clock, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build providers")
	}
	gw, err := gateway.New(gateway.Options{Registry: registry, Providers: impls, Clock: clock, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	var (
		contexts handlers.ContextStore = contextstore.NewMemory(nil)
		recorder engine.Recorder
		history  handlers.History
	)
	if cfg.HasDatabase() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)
		jobs := repo.NewGenerationRepository(runner)
		if err := jobs.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare schema")
		}
		contexts = contextstore.NewStore(runner)
		recorder = jobs
		history = jobs
	} else {
		logger.Warn().Msg("DATABASE_URL not set; job history and user context are kept in memory")
	}

	var sources engine.SourceProvider = ingest.Disabled{}
	if cfg.IngestBaseURL != "" {
		client, err := ingest.NewClient(ingest.Options{BaseURL: cfg.IngestBaseURL, APIKey: cfg.IngestAPIKey, Logger: &logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build ingest client")
		}
		sources = client
	}

	eng, err := engine.New(engine.Options{
		Gateway:   gw,
		Resolver:  resolver.New(gw, store, &logger),
		Sources:   sources,
		Contexts:  contexts,
		Recorder:  recorder,
		Clock:     clock,
		Logger:    &logger,
		Retention: cfg.JobRetention,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build engine")
	}
	if err := eng.StartJanitor(cfg.JanitorSchedule); err != nil {
		logger.Fatal().Err(err).Msg("failed to start janitor")
	}
	defer eng.Close()

	app := handlers.NewApp(eng, registry, history, &logger)
	app.Contexts = contexts
	router := httpapi.NewRouter(app, httpapi.RouterOptions{Logger: &logger, GenerationsPerMinute: cfg.RateLimitPerMin})
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().Msgf("API listening on :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}

func loadRegistry(cfg *infra.Config) (*providers.Registry, error) {
	if cfg.ProvidersFile != "" {
		return providers.LoadFile(cfg.ProvidersFile)
	}
	return providers.NewRegistry(providers.DefaultDescriptors(cfg.SyntheticFallback))
}
