package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// JSONStringArray handles fields that come as JSON-encoded strings.
// Polymarket exports outcome lists both as real arrays and as strings
// containing a JSON array, depending on the endpoint that produced them.
type JSONStringArray []string

func (j *JSONStringArray) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as a regular array first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*j = arr
		return nil
	}

	// Try to unmarshal as a string containing a JSON array
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	if str == "" {
		*j = []string{}
		return nil
	}

	if err := json.Unmarshal([]byte(str), &arr); err != nil {
		return err
	}
	*j = arr
	return nil
}

// FlexFloat accepts a JSON number, a numeric string, or a formatted
// dollar string ("$1,234.56"). Anything unparseable decodes to zero so a
// single dirty field never rejects the whole record.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*f = 0
		return nil
	}

	str = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(str, "$"), ",", ""))
	if str == "" {
		*f = 0
		return nil
	}

	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(num)
	return nil
}

// MarketRecord is one prediction-market instrument as exported by the
// refine pass. The pipeline never mutates a record, it only annotates a
// copy with analysis results.
type MarketRecord struct {
	Ticker      string         `json:"ticker" bson:"ticker"`
	Slug        string         `json:"slug,omitempty" bson:"slug,omitempty"`
	StartDate   string         `json:"startDate,omitempty" bson:"start_date,omitempty"`
	EndDate     string         `json:"endDate,omitempty" bson:"end_date,omitempty"`
	Liquidity   FlexFloat      `json:"liquidity" bson:"liquidity"`
	Volume      FlexFloat      `json:"volume" bson:"volume"`
	Volume24hr  FlexFloat      `json:"volume24hr" bson:"volume_24hr"`
	Competitive float64        `json:"competitive,omitempty" bson:"competitive,omitempty"`
	Details     []MarketDetail `json:"markets_detail" bson:"markets_detail"`
}

// MarketDetail is one outcome question inside a market group.
type MarketDetail struct {
	ID            string          `json:"id,omitempty" bson:"id,omitempty"`
	Question      string          `json:"question" bson:"question"`
	ConditionID   string          `json:"conditionId,omitempty" bson:"condition_id,omitempty"`
	EndDate       string          `json:"endDate,omitempty" bson:"end_date,omitempty"`
	Description   string          `json:"description,omitempty" bson:"description,omitempty"`
	Liquidity     FlexFloat       `json:"liquidity,omitempty" bson:"liquidity,omitempty"`
	Outcomes      JSONStringArray `json:"outcomes" bson:"outcomes"`
	OutcomePrices JSONStringArray `json:"outcomePrices" bson:"outcome_prices"`
	Volume        FlexFloat       `json:"volume,omitempty" bson:"volume,omitempty"`
	Volume24hr    FlexFloat       `json:"volume24hr,omitempty" bson:"volume_24hr,omitempty"`
	ClobTokenIDs  JSONStringArray `json:"clobTokenIds,omitempty" bson:"clob_token_ids,omitempty"`
}

// YesProbability returns the first listed outcome price (0.0-1.0), which
// upstream convention treats as the implied yes-probability.
func (d MarketDetail) YesProbability() float64 {
	if len(d.OutcomePrices) == 0 {
		return 0
	}
	p, err := strconv.ParseFloat(d.OutcomePrices[0], 64)
	if err != nil {
		return 0
	}
	return p
}

// AnalyzedMarket is a MarketRecord annotated with the repaired LLM
// assessment and run provenance. Analysis stays nil when the remote call
// failed or the completion was unrecoverable; FailureReason says why.
type AnalyzedMarket struct {
	Market        MarketRecord      `json:"market_details" bson:"market_details"`
	Analysis      *DomainAssessment `json:"analysis,omitempty" bson:"analysis,omitempty"`
	Attempts      int               `json:"attempts" bson:"attempts"`
	FailureReason string            `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	AnalyzedAt    time.Time         `json:"analyzed_at" bson:"analyzed_at"`
}
