// MarketLens domains - rebuilds the per-domain views and the headline
// categorization from an existing consolidated results file.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/leeaandrob/marketlens/internal/domain"
	"github.com/leeaandrob/marketlens/internal/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	inputPath := flag.String("input", "", "path to a consolidated analysis results file")
	outDir := flag.String("out", ".", "output directory")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		log.Fatal().Msg("-input is required")
	}

	doc, err := ingest.LoadAnalyzed(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load results file")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	for _, name := range domain.Order {
		view, err := domain.Aggregate(name, doc.Timestamp, doc.Results)
		if err != nil {
			log.Error().Err(err).Str("domain", name).Msg("Aggregation failed")
			continue
		}

		path := filepath.Join(*outDir, "domain_"+name+".json")
		if err := writeJSON(path, view); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to write domain view")
		}
		log.Info().
			Str("domain", name).
			Int("markets", view.MarketCount).
			Str("path", path).
			Msg("Domain view saved")
	}

	path := filepath.Join(*outDir, "categorized_markets.json")
	if err := writeJSON(path, domain.Categorize(doc.Results)); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write categorized markets")
	}
	log.Info().Str("path", path).Msg("Categorized markets saved")
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
