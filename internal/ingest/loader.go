// Package ingest loads the market documents the pipeline consumes:
// refined market listings on the way in, consolidated analysis results
// on the way back. Both loaders give a malformed document one repair
// attempt before failing.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/rs/zerolog/log"
)

// Document is the input envelope. Upstream tooling writes the record
// list under either "markets" or "results".
type Document struct {
	Timestamp    string                `json:"timestamp"`
	TotalMarkets int                   `json:"total_markets"`
	Markets      []models.MarketRecord `json:"markets"`
	Results      []models.MarketRecord `json:"results"`
}

// Records returns whichever record list the document carries.
func (d *Document) Records() []models.MarketRecord {
	if len(d.Markets) > 0 {
		return d.Markets
	}
	return d.Results
}

// Load reads and parses an input market document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var doc Document
	if err := unmarshalWithRepair(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("markets", len(doc.Records())).
		Msg("Loaded market document")

	return &doc, nil
}

// ResultsDocument is the consolidated analysis envelope written by the
// dispatcher's checkpointer.
type ResultsDocument struct {
	Timestamp    string                  `json:"timestamp"`
	TotalMarkets int                     `json:"total_markets"`
	Results      []models.AnalyzedMarket `json:"results"`
}

// LoadAnalyzed reads a consolidated results file.
func LoadAnalyzed(path string) (*ResultsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var doc ResultsDocument
	if err := unmarshalWithRepair(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("results", len(doc.Results)).
		Msg("Loaded analysis results")

	return &doc, nil
}

// unmarshalWithRepair parses data, and on a syntax error makes exactly
// one recovery attempt: truncate to the last complete top-level closing
// sequence and re-close the envelope. Interrupted runs leave files cut
// mid-record; this salvages everything before the cut.
func unmarshalWithRepair(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		idx := bytes.LastIndex(data, []byte("}]}"))
		if idx == -1 {
			return err
		}

		log.Warn().Err(err).Msg("Input document malformed, attempting truncation repair")

		// Results files cut after a record's market_details still need
		// the record, list, and envelope closed; market listings cut
		// after a whole record only need the list and envelope.
		truncated := data[:idx+3]
		for _, closer := range []string{"}]}", "]}"} {
			repaired := append([]byte{}, truncated...)
			repaired = append(repaired, closer...)
			if err := json.Unmarshal(repaired, v); err == nil {
				return nil
			}
		}
		return err
	}
	return nil
}
