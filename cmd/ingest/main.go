package main

import (
	"context"
	"flag"
	"time"

	partdeckconfig "github.com/partdeck/partdeck/internal/config"
	"github.com/partdeck/partdeck/internal/index"
	"github.com/partdeck/partdeck/internal/ingest"
	"github.com/partdeck/partdeck/pkg/config"
	"github.com/partdeck/partdeck/pkg/database"
	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

func main() {
	logger := logging.NewLoggerWithService("partdeck-ingest")
	config.LoadEnv(logger)

	partsPath := flag.String("parts", "", "path to the parts catalog CSV")
	repairsPath := flag.String("repairs", "", "path to the repairs CSV")
	supportPath := flag.String("support", "", "path to the support policies JSON")
	flag.Parse()

	if *partsPath == "" && *repairsPath == "" && *supportPath == "" {
		logger.Fatal("Nothing to ingest, pass -parts, -repairs, or -support")
	}

	cfg := partdeckconfig.LoadConfig()

	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	embedder, err := llm.NewEmbeddingClient(cfg.Embedding)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create embedding client")
	}

	ctx := context.Background()

	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		dimensions, err = llm.ProbeEmbeddingDimensions(probeCtx, embedder)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to probe embedding dimensions")
		}
	}

	if *partsPath != "" {
		parts, err := ingest.LoadParts(*partsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load parts catalog")
		}
		run(ctx, logger, db, embedder, cfg.PartsTable, dimensions, "parts", len(parts), func(g *ingest.Ingester) error {
			return g.IngestParts(ctx, parts)
		})
	}

	if *repairsPath != "" {
		repairs, err := ingest.LoadRepairs(*repairsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load repairs")
		}
		run(ctx, logger, db, embedder, cfg.RepairsTable, dimensions, "repairs", len(repairs), func(g *ingest.Ingester) error {
			return g.IngestRepairs(ctx, repairs)
		})
	}

	if *supportPath != "" {
		policies, err := ingest.LoadSupport(*supportPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load support policies")
		}
		run(ctx, logger, db, embedder, cfg.SupportTable, dimensions, "support", len(policies), func(g *ingest.Ingester) error {
			return g.IngestSupport(ctx, policies)
		})
	}
}

func run(ctx context.Context, logger logging.Logger, db database.PostgresConn, embedder llm.EmbeddingClient, table string, dimensions int, domain string, count int, fn func(*ingest.Ingester) error) {
	if err := index.EnsureSchema(ctx, db, table, dimensions); err != nil {
		logger.WithError(err).WithField("table", table).Fatal("Failed to ensure vector schema")
	}
	rebuilt, err := index.EnsureEmbeddingDimensions(ctx, db, table, dimensions)
	if err != nil {
		logger.WithError(err).WithField("table", table).Fatal("Failed to verify embedding dimensions")
	}
	if rebuilt {
		logger.WithField("table", table).Warn("Embedding dimensions changed, table was rebuilt")
	}

	idx, err := index.NewPGIndex(db, table)
	if err != nil {
		logger.WithError(err).WithField("table", table).Fatal("Failed to open index")
	}

	logger.WithFields(logging.Fields{"domain": domain, "records": count}).Info("Ingesting")
	if err := fn(ingest.NewIngester(idx, embedder, logger)); err != nil {
		logger.WithError(err).WithField("domain", domain).Fatal("Ingestion failed")
	}
	logger.WithField("domain", domain).Info("Ingestion complete")
}
