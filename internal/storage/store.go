// Package storage provides MongoDB persistence for analyzed markets.
package storage

import (
	"context"
	"fmt"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the analysis collections.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	analyses *mongo.Collection
}

// NewStore creates a new storage connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := &Store{
		client:   client,
		db:       db,
		analyses: db.Collection("analyses"),
	}

	if err := store.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// createIndexes creates necessary indexes for efficient queries.
func (s *Store) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "market_details.ticker", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "analyzed_at", Value: -1}}},
	}

	// One relevance index per domain so domain views stay covered.
	for _, key := range models.RequiredDomainKeys {
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: "analysis." + key + ".relevance", Value: -1}},
		})
	}

	_, err := s.analyses.Indexes().CreateMany(ctx, indexes)
	return err
}

// UpsertAnalyzedMarket saves or updates one analyzed market, keyed by
// ticker.
func (s *Store) UpsertAnalyzedMarket(ctx context.Context, analyzed *models.AnalyzedMarket) error {
	filter := bson.M{"market_details.ticker": analyzed.Market.Ticker}
	update := bson.M{"$set": analyzed}

	_, err := s.analyses.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert analysis for %s: %w", analyzed.Market.Ticker, err)
	}
	return nil
}

// SaveRun persists a full run of analyzed markets.
func (s *Store) SaveRun(ctx context.Context, results []models.AnalyzedMarket) error {
	for i := range results {
		if err := s.UpsertAnalyzedMarket(ctx, &results[i]); err != nil {
			return err
		}
	}

	log.Info().Int("markets", len(results)).Msg("Run persisted")
	return nil
}

// DomainMarkets returns analyzed markets whose verdict for the given
// assessment key has impact and meets the relevance floor, most relevant
// first.
func (s *Store) DomainMarkets(ctx context.Context, domainKey string, minRelevance float64) ([]models.AnalyzedMarket, error) {
	filter := bson.M{
		"analysis." + domainKey + ".impact":    true,
		"analysis." + domainKey + ".relevance": bson.M{"$gte": minRelevance},
	}

	opts := options.Find().SetSort(bson.D{{Key: "analysis." + domainKey + ".relevance", Value: -1}})

	cursor, err := s.analyses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain markets: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.AnalyzedMarket
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode domain markets: %w", err)
	}
	return results, nil
}

// AllAnalyzed returns every stored analyzed market, newest first.
func (s *Store) AllAnalyzed(ctx context.Context) ([]models.AnalyzedMarket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "analyzed_at", Value: -1}})

	cursor, err := s.analyses.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.AnalyzedMarket
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return results, nil
}

// Stats summarizes what the store holds.
type Stats struct {
	TotalAnalyzed int64 `json:"total_analyzed"`
	WithAnalysis  int64 `json:"with_analysis"`
	Failed        int64 `json:"failed"`
}

// GetStats returns store-level counters.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	total, err := s.analyses.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	withAnalysis, err := s.analyses.CountDocuments(ctx, bson.M{"analysis": bson.M{"$ne": nil}})
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalAnalyzed: total,
		WithAnalysis:  withAnalysis,
		Failed:        total - withAnalysis,
	}, nil
}
