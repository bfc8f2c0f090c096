package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBuilder() *Builder {
	return &Builder{Now: func() time.Time {
		return time.Date(2025, time.February, 4, 12, 0, 0, 0, time.UTC)
	}}
}

func priceRecord() models.MarketRecord {
	return models.MarketRecord{
		Ticker:     "bitcoin-price-june",
		Liquidity:  250000.5,
		Volume:     1234567.89,
		Volume24hr: 98765.43,
		Details: []models.MarketDetail{
			{
				Question:      "Will Bitcoin reach $120,000 by June 30?",
				EndDate:       "2025-06-30",
				Outcomes:      models.JSONStringArray{"Yes", "No"},
				OutcomePrices: models.JSONStringArray{"0.25", "0.75"},
			},
			{
				Question:      "Will Bitcoin dip to $50,000 by June 30?",
				Outcomes:      models.JSONStringArray{"Yes", "No"},
				OutcomePrices: models.JSONStringArray{"0.10", "0.90"},
			},
			{
				Question:      "Will Bitcoin reach $90,000 by June 30?",
				Outcomes:      models.JSONStringArray{"Yes", "No"},
				OutcomePrices: models.JSONStringArray{"0.60", "0.40"},
			},
		},
	}
}

func questionRecord() models.MarketRecord {
	return models.MarketRecord{
		Ticker:     "fed-decision-march",
		Liquidity:  50000,
		Volume:     75000,
		Volume24hr: 1500,
		Details: []models.MarketDetail{
			{
				Question:      "Will the Fed cut rates in March?",
				EndDate:       "2025-03-19",
				Outcomes:      models.JSONStringArray{"Yes", "No"},
				OutcomePrices: models.JSONStringArray{"0.62", "0.38"},
			},
			{
				Question:      "Will the Fed hold rates in March?",
				Outcomes:      models.JSONStringArray{"Yes", "No"},
				OutcomePrices: models.JSONStringArray{"0.35", "0.65"},
			},
		},
	}
}

func TestBuildPriceLadder(t *testing.T) {
	got := fixedBuilder().Build(priceRecord())

	assert.True(t, strings.HasPrefix(got, "Market: bitcoin-price-june\n"))
	assert.Contains(t, got, "Market Analysis (February 4, 2025)")
	assert.Contains(t, got, "- Total Volume: $1,234,567.89")
	assert.Contains(t, got, "- Total Liquidity: $250,000.50")
	assert.Contains(t, got, "- 24hr Volume: $98,765.43")
	assert.Contains(t, got, "- Market End Date: 2025-06-30")

	assert.Contains(t, got, "- $50,000: dip to (10.0% probability)")
	assert.Contains(t, got, "- $90,000: reach (60.0% probability)")
	assert.Contains(t, got, "- $120,000: reach (25.0% probability)")

	// Thresholds are listed ascending regardless of input order.
	low := strings.Index(got, "$50,000:")
	mid := strings.Index(got, "$90,000:")
	high := strings.Index(got, "$120,000:")
	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
}

func TestBuildQuestionList(t *testing.T) {
	got := fixedBuilder().Build(questionRecord())

	assert.True(t, strings.HasPrefix(got, "Market: fed-decision-march\n"))
	assert.Contains(t, got, "Questions:")
	assert.Contains(t, got, "- Will the Fed cut rates in March? (62.0% probability)")
	assert.Contains(t, got, "- Will the Fed hold rates in March? (35.0% probability)")
	assert.NotContains(t, got, "Price Targets:")
}

func TestBuildEndsWithAssessmentInstructions(t *testing.T) {
	for _, record := range []models.MarketRecord{priceRecord(), questionRecord()} {
		got := fixedBuilder().Build(record)
		assert.Contains(t, got, "Respond STRICTLY in this JSON format:")
		for _, key := range models.RequiredDomainKeys {
			assert.Contains(t, got, `"`+key+`"`)
		}
		assert.Contains(t, got, `"market_metadata"`)
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := fixedBuilder()
	record := priceRecord()
	require.Equal(t, b.Build(record), b.Build(record))
}

func TestBuildDoesNotReorderInput(t *testing.T) {
	record := priceRecord()
	original := make([]string, len(record.Details))
	for i, d := range record.Details {
		original[i] = d.Question
	}

	fixedBuilder().Build(record)

	for i, d := range record.Details {
		assert.Equal(t, original[i], d.Question)
	}
}

func TestBuildNoDetails(t *testing.T) {
	got := fixedBuilder().Build(models.MarketRecord{Ticker: "empty-market"})
	assert.Contains(t, got, "No market details available")
}

func TestBuildMissingTicker(t *testing.T) {
	record := questionRecord()
	record.Ticker = ""
	got := fixedBuilder().Build(record)
	assert.True(t, strings.HasPrefix(got, "Market: unknown\n"))
}

func TestIsPriceMarket(t *testing.T) {
	assert.True(t, isPriceMarket("Will Bitcoin reach $120,000?"))
	assert.True(t, isPriceMarket("Will ETH dip to $2,000?"))
	assert.False(t, isPriceMarket("Will Bitcoin reach a new high?"))
	assert.False(t, isPriceMarket("Will the budget exceed $1T?"))
}

func TestExtractPrice(t *testing.T) {
	assert.Equal(t, 120000.0, extractPrice("Will Bitcoin reach $120,000 by June?"))
	assert.Equal(t, 2000.5, extractPrice("Will ETH dip to $2,000.5 this year?"))
	assert.Equal(t, 0.0, extractPrice("no threshold here"))
	assert.Equal(t, 0.0, extractPrice("trailing symbol $"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234,567.89", formatAmount(1234567.89))
	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "999.99", formatAmount(999.99))
	assert.Equal(t, "-12,000.00", formatAmount(-12000))
}
