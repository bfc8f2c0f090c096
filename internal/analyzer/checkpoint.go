package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/rs/zerolog/log"
)

// RunSnapshot is the envelope written for checkpoints and the final
// consolidated file.
type RunSnapshot struct {
	Timestamp    string                  `json:"timestamp"`
	TotalMarkets int                     `json:"total_markets"`
	Results      []models.AnalyzedMarket `json:"results"`
}

// FileCheckpointer persists run state as JSON files in a directory. Each
// batch gets its own file suffixed with the batch counter; the stamp is
// fixed per run so all files of one run sort together.
type FileCheckpointer struct {
	dir   string
	stamp string
}

// NewFileCheckpointer creates a checkpointer writing into dir, creating
// it if needed.
func NewFileCheckpointer(dir string) (*FileCheckpointer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileCheckpointer{
		dir:   dir,
		stamp: time.Now().Format("20060102_150405"),
	}, nil
}

// Save writes the accumulated results as the checkpoint for a batch.
func (c *FileCheckpointer) Save(results []models.AnalyzedMarket, batch int) error {
	path := filepath.Join(c.dir, fmt.Sprintf("market_analysis_%s_batch_%d.json", c.stamp, batch))
	if err := writeSnapshot(path, results); err != nil {
		return err
	}
	log.Debug().Str("path", path).Int("markets", len(results)).Msg("Checkpoint saved")
	return nil
}

// WriteFinal writes the consolidated results file for the run and
// returns its path.
func (c *FileCheckpointer) WriteFinal(results []models.AnalyzedMarket) (string, error) {
	path := filepath.Join(c.dir, fmt.Sprintf("market_analysis_final_%s.json", c.stamp))
	if err := writeSnapshot(path, results); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("markets", len(results)).Msg("Final results saved")
	return path, nil
}

func writeSnapshot(path string, results []models.AnalyzedMarket) error {
	snapshot := RunSnapshot{
		Timestamp:    time.Now().Format(time.RFC3339),
		TotalMarkets: len(results),
		Results:      results,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
