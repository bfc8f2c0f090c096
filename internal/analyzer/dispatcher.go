// Package analyzer runs market records through the remote LLM endpoint
// in bounded concurrent batches. Requests inside a batch are isolated
// from each other; a failed record is marked and kept, never raised.
// Progress is checkpointed after every batch so a crash loses at most
// the batch that was in flight.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/leeaandrob/marketlens/internal/prompt"
	"github.com/leeaandrob/marketlens/internal/repair"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client is the remote analysis endpoint.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Checkpointer persists the accumulated run state after each batch.
// Save receives the full append-only sequence processed so far.
type Checkpointer interface {
	Save(results []models.AnalyzedMarket, batch int) error
}

// Config holds dispatcher settings.
type Config struct {
	// BatchSize bounds how many requests are in flight at once.
	BatchSize int

	// BatchDelay is the pause between successive batches, a courtesy to
	// the remote rate limiter rather than a correctness requirement.
	BatchDelay time.Duration

	// Logger is the diagnostics sink. Defaults to the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns default dispatcher settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:  100,
		BatchDelay: 500 * time.Millisecond,
	}
}

// Dispatcher fans analysis requests out against the remote endpoint.
type Dispatcher struct {
	llm         Client
	builder     *prompt.Builder
	checkpoints Checkpointer
	config      Config
	log         zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil builder falls back to the
// default prompt builder.
func NewDispatcher(llm Client, builder *prompt.Builder, checkpoints Checkpointer, config Config) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if builder == nil {
		builder = prompt.NewBuilder()
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Dispatcher{
		llm:         llm,
		builder:     builder,
		checkpoints: checkpoints,
		config:      config,
		log:         logger,
	}
}

// Run analyzes records in input order, batch by batch. Every input
// record yields exactly one AnalyzedMarket in the returned sequence.
// Only a checkpoint persistence failure aborts the run; cancellation is
// honored between batches, after the current batch has checkpointed.
func (d *Dispatcher) Run(ctx context.Context, records []models.MarketRecord) ([]models.AnalyzedMarket, error) {
	total := len(records)
	batches := (total + d.config.BatchSize - 1) / d.config.BatchSize
	results := make([]models.AnalyzedMarket, 0, total)

	for start, batchNum := 0, 1; start < total; start, batchNum = start+d.config.BatchSize, batchNum+1 {
		end := start + d.config.BatchSize
		if end > total {
			end = total
		}

		d.log.Info().
			Int("batch", batchNum).
			Int("total_batches", batches).
			Int("size", end-start).
			Msg("Processing batch")

		results = append(results, d.processBatch(ctx, records[start:end])...)

		if err := d.checkpoints.Save(results, batchNum); err != nil {
			return results, fmt.Errorf("failed to persist checkpoint for batch %d: %w", batchNum, err)
		}

		d.log.Info().
			Int("batch", batchNum).
			Int("processed", len(results)).
			Msg("Batch checkpointed")

		if end >= total {
			break
		}

		if err := d.waitBetweenBatches(ctx); err != nil {
			return results, err
		}
	}

	return results, nil
}

// waitBetweenBatches applies the rate-limit delay. The unit of
// interruption is the batch boundary, so cancellation is only observed
// here.
func (d *Dispatcher) waitBetweenBatches(ctx context.Context) error {
	if d.config.BatchDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.config.BatchDelay):
		return nil
	}
}

// processBatch issues one request per record concurrently. Each
// goroutine writes only its own result slot, so no locking is needed.
// Requests run on a context detached from the stop signal: a cancel
// arriving mid-batch must not fail records that were already in flight,
// it only stops the run at the next batch boundary.
func (d *Dispatcher) processBatch(ctx context.Context, batch []models.MarketRecord) []models.AnalyzedMarket {
	out := make([]models.AnalyzedMarket, len(batch))
	reqCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = d.analyzeOne(reqCtx, batch[i])
		}(i)
	}
	wg.Wait()

	return out
}

// analyzeOne runs the full prompt → completion → repair path for one
// record. All failure classes collapse into provenance on the result.
func (d *Dispatcher) analyzeOne(ctx context.Context, record models.MarketRecord) models.AnalyzedMarket {
	analyzed := models.AnalyzedMarket{
		Market:     record,
		Attempts:   1,
		AnalyzedAt: time.Now().UTC(),
	}

	content, err := d.llm.Analyze(ctx, d.builder.Build(record))
	if err != nil {
		d.log.Warn().Err(err).Str("ticker", record.Ticker).Msg("Analysis request failed")
		analyzed.FailureReason = err.Error()
		return analyzed
	}

	analysis, err := repair.Repair(content)
	if err != nil {
		d.log.Warn().Err(err).Str("ticker", record.Ticker).Msg("Unrecoverable analysis content")
		analyzed.FailureReason = fmt.Sprintf("unrecoverable analysis content: %v", err)
		return analyzed
	}

	analyzed.Analysis = analysis
	d.log.Debug().Str("ticker", record.Ticker).Msg("Market analyzed")
	return analyzed
}
