// MarketLens analyze - runs prediction-market records through the LLM
// classification pipeline and writes checkpointed, aggregated results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/leeaandrob/marketlens/internal/analyzer"
	"github.com/leeaandrob/marketlens/internal/config"
	"github.com/leeaandrob/marketlens/internal/domain"
	"github.com/leeaandrob/marketlens/internal/ingest"
	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/leeaandrob/marketlens/internal/openrouter"
	"github.com/leeaandrob/marketlens/internal/prompt"
	"github.com/leeaandrob/marketlens/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	inputPath := flag.String("input", "", "path to the refined markets JSON document")
	batchSize := flag.Int("batch", 0, "markets per batch (overrides BATCH_SIZE)")
	outDir := flag.String("out", "", "output directory (overrides OUTPUT_DIR)")
	persist := flag.Bool("persist", false, "also persist results to MongoDB")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		log.Fatal().Msg("-input is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	log.Info().
		Str("input", *inputPath).
		Int("batch_size", cfg.BatchSize).
		Str("model", cfg.OpenRouterModel).
		Msg("MarketLens - starting analysis run")

	doc, err := ingest.Load(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load input document")
	}

	records := doc.Records()
	if len(records) == 0 {
		log.Fatal().Msg("Input document contains no markets")
	}

	llm := openrouter.NewClient(openrouter.Config{
		APIKey:   cfg.OpenRouterAPIKey,
		Endpoint: cfg.OpenRouterEndpoint,
		Model:    cfg.OpenRouterModel,
	})

	checkpoints, err := analyzer.NewFileCheckpointer(cfg.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize checkpointing")
	}

	dispatcher := analyzer.NewDispatcher(llm, prompt.NewBuilder(), checkpoints, analyzer.Config{
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
	})

	// Let the current batch finish and checkpoint before stopping.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Stopping after current batch")
		cancel()
	}()

	results, runErr := dispatcher.Run(ctx, records)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		// Graceful stop: everything processed so far is checkpointed,
		// so the derived outputs are still worth writing.
		log.Warn().Int("processed", len(results)).Msg("Analysis run stopped early")
	default:
		log.Fatal().Err(runErr).Msg("Analysis run failed")
	}

	finalPath, err := checkpoints.WriteFinal(results)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write final results")
	}

	writeDomainViews(cfg.OutputDir, results)
	writeHeadlines(cfg.OutputDir, results)

	if *persist {
		persistResults(cfg, results)
	}

	succeeded := 0
	for _, r := range results {
		if r.Analysis != nil {
			succeeded++
		}
	}
	log.Info().
		Int("markets", len(results)).
		Int("with_analysis", succeeded).
		Str("final", finalPath).
		Msg("Analysis run complete")
}

// writeDomainViews aggregates and saves the ranked view for each domain.
func writeDomainViews(dir string, results []models.AnalyzedMarket) {
	for _, name := range domain.Order {
		view, err := domain.Aggregate(name, "", results)
		if err != nil {
			log.Error().Err(err).Str("domain", name).Msg("Aggregation failed")
			continue
		}

		path := filepath.Join(dir, "domain_"+name+".json")
		if err := writeJSON(path, view); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to write domain view")
			continue
		}
		log.Info().
			Str("domain", name).
			Int("markets", view.MarketCount).
			Str("path", path).
			Msg("Domain view saved")
	}
}

// writeHeadlines saves the high-relevance categorization.
func writeHeadlines(dir string, results []models.AnalyzedMarket) {
	path := filepath.Join(dir, "categorized_markets.json")
	if err := writeJSON(path, domain.Categorize(results)); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write categorized markets")
		return
	}
	log.Info().Str("path", path).Msg("Categorized markets saved")
}

func persistResults(cfg *config.Config, results []models.AnalyzedMarket) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to MongoDB, skipping persistence")
		return
	}
	defer store.Close(ctx)

	if err := store.SaveRun(ctx, results); err != nil {
		log.Error().Err(err).Msg("Failed to persist results")
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
