// Package prompt builds analysis requests for market records. A prompt
// encodes the market's quantitative state in natural language and ends
// with a fixed instruction block asking for a four-domain JSON
// assessment; the repair engine is tuned against that block.
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leeaandrob/marketlens/internal/models"
)

// assessmentTemplate is the fixed suffix appended to every prompt. The
// schema example tells the model the exact shape the pipeline parses.
const assessmentTemplate = `
Assess the market's relevance to these key areas:
1. Economic indicators (CPI, interest rates, recessions)
2. Geopolitical events (elections, wars, sanctions)
3. Regulatory changes (crypto, financial markets)
4. Technological developments (AI, tech innovations)

For each area, provide:
- A yes/no assessment of potential impact
- A relevance score from 1-10
- Brief reasoning for your assessment

Respond STRICTLY in this JSON format:
{
    "economic_indicators": {
        "impact": true/false,
        "relevance": 1-10,
        "reasoning": "..."
    },
    "geopolitical_events": {
        "impact": true/false,
        "relevance": 1-10,
        "reasoning": "..."
    },
    "regulatory_changes": {
        "impact": true/false,
        "relevance": 1-10,
        "reasoning": "..."
    },
    "technological_developments": {
        "impact": true/false,
        "relevance": 1-10,
        "reasoning": "..."
    },
    "market_metadata": {
        "time_horizon": "short/medium/long",
        "confidence_score": 1-10,
        "potential_correlations": ["related_market_ids"],
        "update_frequency": "how often this should be reassessed"
    }
}`

// Builder turns market records into analysis prompts. Build is
// deterministic apart from the embedded date stamp, which comes from Now.
type Builder struct {
	// Now supplies the current-date stamp. Defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a prompt builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{Now: time.Now}
}

// Build formats one market record as an analysis prompt.
func (b *Builder) Build(record models.MarketRecord) string {
	var body string
	if len(record.Details) == 0 {
		body = "No market details available"
	} else if isPriceMarket(record.Details[0].Question) {
		body = b.priceLadder(record)
	} else {
		body = b.questionList(record)
	}

	return fmt.Sprintf("Market: %s\n%s\n%s", tickerOrUnknown(record), body, assessmentTemplate)
}

func tickerOrUnknown(record models.MarketRecord) string {
	if record.Ticker == "" {
		return "unknown"
	}
	return record.Ticker
}

// isPriceMarket reports whether a question encodes a numeric price
// threshold: a currency symbol plus a directional verb.
func isPriceMarket(question string) bool {
	if !strings.Contains(question, "$") {
		return false
	}
	lower := strings.ToLower(question)
	return strings.Contains(lower, "reach") || strings.Contains(lower, "dip")
}

// extractPrice pulls the numeric threshold out of a question like
// "Will Bitcoin reach $120,000 by June?". Zero when unparseable.
func extractPrice(question string) float64 {
	_, after, found := strings.Cut(question, "$")
	if !found {
		return 0
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return 0
	}
	return price
}

// priceLadder lists thresholds ascending with direction and probability.
func (b *Builder) priceLadder(record models.MarketRecord) string {
	details := make([]models.MarketDetail, len(record.Details))
	copy(details, record.Details)
	sort.SliceStable(details, func(i, j int) bool {
		return extractPrice(details[i].Question) < extractPrice(details[j].Question)
	})

	var options []string
	for _, detail := range details {
		if !isPriceMarket(detail.Question) {
			continue
		}
		_, after, _ := strings.Cut(detail.Question, "$")
		fields := strings.Fields(after)
		if len(fields) == 0 {
			continue
		}
		price := fields[0]
		direction := "reach"
		if strings.Contains(strings.ToLower(detail.Question), "dip") {
			direction = "dip to"
		}
		options = append(options, fmt.Sprintf("- $%s: %s (%.1f%% probability)",
			price, direction, detail.YesProbability()*100))
	}

	return fmt.Sprintf("Market Analysis (%s)\n\n%s\n\nPrice Targets:\n%s",
		b.dateStamp(), overview(record), strings.Join(options, "\n"))
}

// questionList lists each outcome question with its yes-probability.
func (b *Builder) questionList(record models.MarketRecord) string {
	var options []string
	for _, detail := range record.Details {
		options = append(options, fmt.Sprintf("- %s (%.1f%% probability)",
			detail.Question, detail.YesProbability()*100))
	}

	return fmt.Sprintf("Market Analysis (%s)\n\n%s\n\nQuestions:\n%s",
		b.dateStamp(), overview(record), strings.Join(options, "\n"))
}

func (b *Builder) dateStamp() string {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return now().Format("January 2, 2006")
}

// overview summarizes the market's aggregate quantitative state.
func overview(record models.MarketRecord) string {
	endDate := "Unknown"
	if len(record.Details) > 0 && record.Details[0].EndDate != "" {
		endDate = record.Details[0].EndDate
	}

	return fmt.Sprintf(`Market Overview:
- Total Volume: $%s
- Total Liquidity: $%s
- 24hr Volume: $%s
- Market End Date: %s`,
		formatAmount(float64(record.Volume)),
		formatAmount(float64(record.Liquidity)),
		formatAmount(float64(record.Volume24hr)),
		endDate)
}

// formatAmount renders a dollar amount with thousands separators.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ",") + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
