// Package domain folds analyzed markets into ranked per-domain views and
// a high-relevance headline categorization.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/rs/zerolog/log"
)

// Two distinct admission thresholds survive from the original pipeline:
// domain views admit at 6, the headline categorization at 9. The gap is
// intentional and undocumented upstream, so both stay named rather than
// unified.
const (
	AdmissionThreshold float64 = 6
	HeadlineThreshold  float64 = 9
)

// Names maps the short domain names callers use onto assessment keys.
var Names = map[string]string{
	"economic":      models.KeyEconomicIndicators,
	"geopolitical":  models.KeyGeopoliticalEvents,
	"regulatory":    models.KeyRegulatoryChanges,
	"technological": models.KeyTechnologicalDevelopments,
}

// Order lists the short domain names in canonical order.
var Order = []string{"economic", "geopolitical", "regulatory", "technological"}

// QuestionProbabilities carries one outcome question with its implied
// probabilities as percentages.
type QuestionProbabilities struct {
	Question      string               `json:"question"`
	Probabilities []OutcomeProbability `json:"probabilities"`
}

// OutcomeProbability is one outcome label and its probability (0-100).
type OutcomeProbability struct {
	Outcome     string  `json:"outcome"`
	Probability float64 `json:"probability"`
}

// RankedMarket is one admitted market inside a domain view.
type RankedMarket struct {
	Ticker         string                  `json:"ticker"`
	RelevanceScore float64                 `json:"relevance_score"`
	Reasoning      string                  `json:"reasoning,omitempty"`
	Liquidity      float64                 `json:"liquidity"`
	Volume         float64                 `json:"volume"`
	StartDate      string                  `json:"start_date,omitempty"`
	EndDate        string                  `json:"end_date,omitempty"`
	Probabilities  []QuestionProbabilities `json:"probabilities"`
	Analysis       *RankedAnalysis         `json:"analysis,omitempty"`
}

// RankedAnalysis pairs the admitted domain's verdict with the full
// assessment it came from.
type RankedAnalysis struct {
	Domain       *models.DomainScore      `json:"domain"`
	FullAnalysis *models.DomainAssessment `json:"full_analysis"`
}

// View is the ranked result for one domain.
type View struct {
	Timestamp   string         `json:"timestamp"`
	Domain      string         `json:"domain"`
	MarketCount int            `json:"market_count"`
	Markets     []RankedMarket `json:"markets"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// Aggregate selects and ranks the markets relevant to one domain. An
// unknown domain name returns an error-status view and a non-nil error
// so callers can tell "bad domain" apart from "no qualifying markets".
// The view carries the source document's timestamp when one is given;
// empty falls back to the aggregation time.
func Aggregate(name, timestamp string, analyzed []models.AnalyzedMarket) (View, error) {
	if timestamp == "" {
		timestamp = time.Now().Format(time.RFC3339)
	}

	key, ok := Names[name]
	if !ok {
		log.Error().Str("domain", name).Msg("Invalid domain requested")
		return View{
			Timestamp: timestamp,
			Domain:    name,
			Markets:   []RankedMarket{},
			Status:    "error",
			Error:     fmt.Sprintf("invalid domain or no data available for %s", name),
		}, fmt.Errorf("unknown domain %q", name)
	}

	var ranked []RankedMarket
	for _, market := range analyzed {
		score := market.Analysis.Domain(key)
		if score == nil || !score.Impact || score.Relevance < AdmissionThreshold {
			continue
		}

		entry := RankedMarket{
			Ticker:         market.Market.Ticker,
			RelevanceScore: score.Relevance,
			Reasoning:      score.Reasoning,
			Liquidity:      float64(market.Market.Liquidity),
			Volume:         float64(market.Market.Volume),
			StartDate:      market.Market.StartDate,
			EndDate:        market.Market.EndDate,
			Probabilities:  questionProbabilities(market.Market),
			Analysis: &RankedAnalysis{
				Domain:       score,
				FullAnalysis: market.Analysis,
			},
		}
		ranked = append(ranked, entry)
	}

	// Stable so ties keep input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if ranked == nil {
		ranked = []RankedMarket{}
	}

	return View{
		Timestamp:   timestamp,
		Domain:      name,
		MarketCount: len(ranked),
		Markets:     ranked,
		Status:      "success",
	}, nil
}

// Headline is one market admitted to the high-relevance categorization.
type Headline struct {
	Ticker     string                  `json:"ticker"`
	Relevance  float64                 `json:"relevance"`
	Reasoning  string                  `json:"reasoning"`
	Volume     float64                 `json:"volume"`
	Volume24hr float64                 `json:"volume_24hr"`
	Markets    []QuestionProbabilities `json:"markets"`
}

// Categorize builds the headline view: for every assessment key, the
// markets whose relevance meets the stricter headline threshold.
func Categorize(analyzed []models.AnalyzedMarket) map[string][]Headline {
	categories := make(map[string][]Headline, len(models.RequiredDomainKeys))
	for _, key := range models.RequiredDomainKeys {
		categories[key] = []Headline{}
	}

	for _, market := range analyzed {
		if market.Analysis == nil {
			continue
		}
		for _, key := range models.RequiredDomainKeys {
			score := market.Analysis.Domain(key)
			if score == nil || score.Relevance < HeadlineThreshold {
				continue
			}
			categories[key] = append(categories[key], Headline{
				Ticker:     market.Market.Ticker,
				Relevance:  score.Relevance,
				Reasoning:  score.Reasoning,
				Volume:     float64(market.Market.Volume),
				Volume24hr: float64(market.Market.Volume24hr),
				Markets:    questionProbabilities(market.Market),
			})
		}
	}

	return categories
}

// questionProbabilities flattens a record's outcome questions into
// percentage probabilities, pairing labels with the parallel price list.
func questionProbabilities(record models.MarketRecord) []QuestionProbabilities {
	out := make([]QuestionProbabilities, 0, len(record.Details))
	for _, detail := range record.Details {
		qp := QuestionProbabilities{Question: detail.Question}
		for i, outcome := range detail.Outcomes {
			if i >= len(detail.OutcomePrices) {
				break
			}
			price, err := strconv.ParseFloat(detail.OutcomePrices[i], 64)
			if err != nil {
				price = 0
			}
			qp.Probabilities = append(qp.Probabilities, OutcomeProbability{
				Outcome:     outcome,
				Probability: price * 100,
			})
		}
		out = append(out, qp)
	}
	return out
}
