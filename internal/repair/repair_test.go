package repair

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodAssessment = `{
  "economic_indicators": {"impact": true, "relevance": 9, "reasoning": "CPI link"},
  "geopolitical_events": {"impact": false, "relevance": 2, "reasoning": "none"},
  "regulatory_changes": {"impact": true, "relevance": 7, "reasoning": "crypto rules"},
  "technological_developments": {"impact": false, "relevance": 3, "reasoning": "minor"}
}`

func fence(content string) string {
	return "```json\n" + content + "\n```"
}

func TestRepairPlainJSON(t *testing.T) {
	assessment, err := Repair(goodAssessment)
	require.NoError(t, err)
	require.NotNil(t, assessment)

	require.NotNil(t, assessment.EconomicIndicators)
	assert.True(t, assessment.EconomicIndicators.Impact)
	assert.Equal(t, 9.0, assessment.EconomicIndicators.Relevance)
	assert.Equal(t, "CPI link", assessment.EconomicIndicators.Reasoning)
	assert.True(t, assessment.Complete())
}

func TestRepairFencedJSON(t *testing.T) {
	assessment, err := Repair(fence(goodAssessment))
	require.NoError(t, err)
	assert.True(t, assessment.Complete())
}

func TestRepairFenceWithSurroundingProse(t *testing.T) {
	raw := "Here is my assessment of the market:\n" + fence(goodAssessment) + "\nLet me know if you need more detail."

	assessment, err := Repair(raw)
	require.NoError(t, err)
	assert.True(t, assessment.Complete())
}

func TestRepairDoubledQuotesAndStrayNewline(t *testing.T) {
	content := strings.Replace(goodAssessment, `"CPI link"`, `""CPI link""`, 1)
	raw := "```json\n" + content + "\n\n```"

	assessment, err := Repair(raw)
	require.NoError(t, err)
	assert.Equal(t, 9.0, assessment.EconomicIndicators.Relevance)
	assert.Equal(t, "CPI link", assessment.EconomicIndicators.Reasoning)
}

func TestRepairTransposedFieldName(t *testing.T) {
	content := strings.Replace(goodAssessment, `"reasoning": "crypto rules"`, `"reascoreoning": "crypto rules"`, 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, "crypto rules", assessment.RegulatoryChanges.Reasoning)
}

func TestRepairEscapedNewlineInsideString(t *testing.T) {
	content := strings.Replace(goodAssessment, `"CPI link"`, `"CPI\nlink"`, 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, "CPIlink", assessment.EconomicIndicators.Reasoning)
}

func TestRepairLiteralNewlineInsideString(t *testing.T) {
	content := strings.Replace(goodAssessment, `"CPI link"`, "\"CPI\nlink\"", 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, "CPIlink", assessment.EconomicIndicators.Reasoning)
}

func TestRepairStripsNonASCII(t *testing.T) {
	content := "\ufeff" + strings.Replace(goodAssessment, `"CPI link"`, "\"CPI\u2192link\"", 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, "CPIlink", assessment.EconomicIndicators.Reasoning)
}

func TestRepairMissingValueSeparator(t *testing.T) {
	// A stray pair jammed after "reasoning" without a comma.
	content := strings.Replace(goodAssessment,
		`"reasoning": "CPI link"}`,
		`"reasoning": "CPI link" "note": "extra"}`, 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, "CPI link", assessment.EconomicIndicators.Reasoning)
}

func TestRepairMissingKeySeparator(t *testing.T) {
	content := strings.Replace(goodAssessment,
		`"economic_indicators": {`,
		`"economic_indicators" {`, 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	assert.Equal(t, 9.0, assessment.EconomicIndicators.Relevance)
}

func TestRepairUnterminatedStringStaysAbsent(t *testing.T) {
	// Cut mid-string: the closing quote gets restored but the braces are
	// still gone, so the candidate must stay absent rather than become a
	// partially fabricated object.
	idx := strings.Index(goodAssessment, `"minor"`)
	require.Greater(t, idx, 0)
	content := goodAssessment[:idx+len(`"minor`)]

	assessment, err := Repair(content)
	assert.Nil(t, assessment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "structural repair")
}

func TestRepairMissingClosingBraceReturnsAbsent(t *testing.T) {
	content := strings.Replace(goodAssessment,
		`"reasoning": "minor"}`,
		`"reasoning": "minor"`, 1)

	assessment, err := Repair(content)
	assert.Nil(t, assessment)
	assert.Error(t, err)
}

func TestRepairMissingDomainKeyReturnsAbsent(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(goodAssessment), &doc))
	delete(doc, models.KeyTechnologicalDevelopments)
	partial, err := json.Marshal(doc)
	require.NoError(t, err)

	assessment, err := Repair(fence(string(partial)))
	assert.Nil(t, assessment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.KeyTechnologicalDevelopments)
}

func TestRepairGarbageReturnsAbsent(t *testing.T) {
	assessment, err := Repair("I cannot assess this market without more context.")
	assert.Nil(t, assessment)
	assert.Error(t, err)
}

func TestRepairEmptyContent(t *testing.T) {
	assessment, err := Repair("")
	assert.Nil(t, assessment)
	assert.Error(t, err)
}

func TestRepairKeepsMarketMetadata(t *testing.T) {
	content := strings.Replace(goodAssessment,
		`"reasoning": "minor"}`,
		`"reasoning": "minor"},
  "market_metadata": {"time_horizon": "short", "confidence_score": 8}`, 1)

	assessment, err := Repair(content)
	require.NoError(t, err)
	require.NotNil(t, assessment.MarketMetadata)
	assert.Equal(t, "short", assessment.MarketMetadata["time_horizon"])
}

func TestRepairIdempotent(t *testing.T) {
	// Repair a dirty completion, serialize the result, wrap it in a
	// fresh fence, and repair again: the structures must match.
	dirty := "```json\n" + strings.Replace(goodAssessment, `"CPI link"`, `""CPI link""`, 1) + "\n\n```"

	first, err := Repair(dirty)
	require.NoError(t, err)

	serialized, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := Repair(fence(string(serialized)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
