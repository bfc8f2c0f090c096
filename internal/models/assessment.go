package models

// Assessment keys the remote model is instructed to return. Every
// completion must contain all four before it is accepted as an analysis.
const (
	KeyEconomicIndicators        = "economic_indicators"
	KeyGeopoliticalEvents        = "geopolitical_events"
	KeyRegulatoryChanges         = "regulatory_changes"
	KeyTechnologicalDevelopments = "technological_developments"
)

// RequiredDomainKeys lists the four assessment keys in canonical order.
var RequiredDomainKeys = []string{
	KeyEconomicIndicators,
	KeyGeopoliticalEvents,
	KeyRegulatoryChanges,
	KeyTechnologicalDevelopments,
}

// DomainScore is the model's verdict for one analytical domain.
type DomainScore struct {
	Impact    bool    `json:"impact" bson:"impact"`
	Relevance float64 `json:"relevance" bson:"relevance"`
	Reasoning string  `json:"reasoning" bson:"reasoning"`
}

// DomainAssessment is the structured classification recovered from one
// completion. Pointers distinguish "key missing from the completion" from
// a zero-valued verdict.
type DomainAssessment struct {
	EconomicIndicators        *DomainScore           `json:"economic_indicators,omitempty" bson:"economic_indicators,omitempty"`
	GeopoliticalEvents        *DomainScore           `json:"geopolitical_events,omitempty" bson:"geopolitical_events,omitempty"`
	RegulatoryChanges         *DomainScore           `json:"regulatory_changes,omitempty" bson:"regulatory_changes,omitempty"`
	TechnologicalDevelopments *DomainScore           `json:"technological_developments,omitempty" bson:"technological_developments,omitempty"`
	MarketMetadata            map[string]interface{} `json:"market_metadata,omitempty" bson:"market_metadata,omitempty"`
}

// Domain returns the score for an assessment key, or nil when the key is
// unknown or the completion never carried it.
func (a *DomainAssessment) Domain(key string) *DomainScore {
	if a == nil {
		return nil
	}
	switch key {
	case KeyEconomicIndicators:
		return a.EconomicIndicators
	case KeyGeopoliticalEvents:
		return a.GeopoliticalEvents
	case KeyRegulatoryChanges:
		return a.RegulatoryChanges
	case KeyTechnologicalDevelopments:
		return a.TechnologicalDevelopments
	}
	return nil
}

// Complete reports whether all four domain verdicts are present.
func (a *DomainAssessment) Complete() bool {
	if a == nil {
		return false
	}
	for _, key := range RequiredDomainKeys {
		if a.Domain(key) == nil {
			return false
		}
	}
	return true
}
