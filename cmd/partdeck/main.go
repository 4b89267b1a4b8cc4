package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/partdeck/partdeck/internal/chat"
	partdeckconfig "github.com/partdeck/partdeck/internal/config"
	"github.com/partdeck/partdeck/internal/index"
	"github.com/partdeck/partdeck/internal/retrieval"
	"github.com/partdeck/partdeck/pkg/config"
	"github.com/partdeck/partdeck/pkg/database"
	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
	"github.com/partdeck/partdeck/pkg/monitoring"
	"github.com/partdeck/partdeck/pkg/server"
	"github.com/partdeck/partdeck/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("partdeck")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting PartDeck (appliance parts support assistant)")

	cfg := partdeckconfig.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("partdeck", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("partdeck", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"LLM_API_KEY":  cfg.LLM.APIKey,
	}))

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create LLM provider")
	}

	embedder, err := llm.NewEmbeddingClient(cfg.Embedding)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create embedding client")
	}

	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		probeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		dimensions, err = llm.ProbeEmbeddingDimensions(probeCtx, embedder)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to probe embedding dimensions")
		}
		logger.WithField("dimensions", dimensions).Info("Probed embedding dimensions")
	}

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelSchema()
	tables := []string{cfg.PartsTable, cfg.RepairsTable, cfg.SupportTable}
	for _, table := range tables {
		if err := index.EnsureSchema(schemaCtx, db, table, dimensions); err != nil {
			logger.WithError(err).WithField("table", table).Fatal("Failed to ensure vector schema")
		}
		rebuilt, err := index.EnsureEmbeddingDimensions(schemaCtx, db, table, dimensions)
		if err != nil {
			logger.WithError(err).WithField("table", table).Fatal("Failed to verify embedding dimensions")
		}
		if rebuilt {
			logger.WithField("table", table).Warn("Embedding dimensions changed, table was rebuilt and needs reingestion")
		}
	}

	partsIndex, err := index.NewPGIndex(db, cfg.PartsTable)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open parts index")
	}
	repairsIndex, err := index.NewPGIndex(db, cfg.RepairsTable)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open repairs index")
	}
	supportIndex, err := index.NewPGIndex(db, cfg.SupportTable)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open support index")
	}

	parts := retrieval.NewPartsRetriever(partsIndex, embedder, cfg.PartsTopK, logger)
	repairs := retrieval.NewRepairsRetriever(repairsIndex, embedder, cfg.RepairsTopK, logger)
	support := retrieval.NewSupportRetriever(supportIndex, embedder, cfg.SupportTopK, logger)

	var store chat.Store
	switch cfg.ConversationBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(client))
		store = chat.NewRedisStore(client)
		logger.Info("Using Redis conversation store")
	default:
		store = chat.NewMemoryStore()
		logger.Info("Using in-memory conversation store")
	}

	orchestrator := chat.NewOrchestrator(chat.OrchestratorConfig{
		Provider:  provider,
		Gate:      chat.NewGate(provider, logger),
		Validator: chat.NewValidator(provider, logger),
		Store:     store,
		Tools: map[string]chat.SearchFunc{
			chat.ToolPartsInfo:   parts.Search,
			chat.ToolRepairInfo:  repairs.Search,
			chat.ToolSupportInfo: support.Search,
		},
		Logger: logger,
	})

	handler := chat.NewHandler(orchestrator, store, logger)

	router := server.SetupServiceRouter(logger, "partdeck", healthChecker, metricsCollector)
	chat.RegisterRoutes(router, handler)

	serverCfg := server.DefaultConfig("partdeck", cfg.Port)
	if err := server.Start(serverCfg, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
