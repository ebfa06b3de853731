package triage

import (
	"fmt"
	"testing"

	"asha-triage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAssessmentJSON = `{
	"urgencyLevel": "high",
	"riskScore": 0.75,
	"recommendedAction": "Visit PHC within 4 hours",
	"referToPhc": true,
	"confidenceScore": 0.85,
	"citedGuideline": "IPHS fever protocol",
	"reasoning": "Sustained high fever with rigors",
	"redFlags": ["persistent high fever"]
}`

func TestExtractResponse_ValidJSON(t *testing.T) {
	response, fallback := ExtractResponse(validAssessmentJSON)

	assert.False(t, fallback)
	assert.Equal(t, models.UrgencyHigh, response.UrgencyLevel)
	assert.Equal(t, 0.75, response.RiskScore)
	assert.True(t, response.ReferToPHC)
	assert.Equal(t, "IPHS fever protocol", response.CitedGuideline)
	assert.Equal(t, []string{"persistent high fever"}, response.RedFlags)
}

func TestExtractResponse_JSONSurroundedByProse(t *testing.T) {
	raw := "Based on the symptoms, here is my assessment:\n" + validAssessmentJSON + "\nPlease follow up."

	response, fallback := ExtractResponse(raw)

	assert.False(t, fallback)
	assert.Equal(t, models.UrgencyHigh, response.UrgencyLevel)
}

func TestExtractResponse_NoJSON(t *testing.T) {
	response, fallback := ExtractResponse("The patient should rest and drink fluids.")

	assert.True(t, fallback)
	assert.Equal(t, FallbackResponse(), response)
}

func TestExtractResponse_MalformedJSON(t *testing.T) {
	response, fallback := ExtractResponse(`{"urgencyLevel": "high", "riskScore": }`)

	assert.True(t, fallback)
	assert.Equal(t, FallbackResponse(), response)
}

func TestExtractResponse_RiskScoreBoundaries(t *testing.T) {
	build := func(score float64) string {
		return fmt.Sprintf(`{
			"urgencyLevel": "low",
			"riskScore": %v,
			"recommendedAction": "Home care",
			"referToPhc": false,
			"confidenceScore": 0.9,
			"citedGuideline": "General guidance"
		}`, score)
	}

	_, fallback := ExtractResponse(build(0.0))
	assert.False(t, fallback, "0.0 is a valid score")

	_, fallback = ExtractResponse(build(1.0))
	assert.False(t, fallback, "1.0 is a valid score")

	_, fallback = ExtractResponse(build(1.0001))
	assert.True(t, fallback, "scores above 1 must fall back")

	_, fallback = ExtractResponse(build(-0.1))
	assert.True(t, fallback, "negative scores must fall back")
}

func TestExtractResponse_InvalidUrgencyLevel(t *testing.T) {
	raw := `{
		"urgencyLevel": "critical",
		"riskScore": 0.5,
		"recommendedAction": "Visit PHC",
		"referToPhc": true,
		"confidenceScore": 0.8,
		"citedGuideline": "General guidance"
	}`

	_, fallback := ExtractResponse(raw)
	assert.True(t, fallback)
}

func TestExtractResponse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing riskScore", `{"urgencyLevel": "low", "recommendedAction": "Rest", "referToPhc": false, "confidenceScore": 0.8, "citedGuideline": "G"}`},
		{"missing referToPhc", `{"urgencyLevel": "low", "riskScore": 0.2, "recommendedAction": "Rest", "confidenceScore": 0.8, "citedGuideline": "G"}`},
		{"missing confidenceScore", `{"urgencyLevel": "low", "riskScore": 0.2, "recommendedAction": "Rest", "referToPhc": false, "citedGuideline": "G"}`},
		{"missing recommendedAction", `{"urgencyLevel": "low", "riskScore": 0.2, "referToPhc": false, "confidenceScore": 0.8, "citedGuideline": "G"}`},
		{"missing citedGuideline", `{"urgencyLevel": "low", "riskScore": 0.2, "recommendedAction": "Rest", "referToPhc": false, "confidenceScore": 0.8}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, fallback := ExtractResponse(tt.raw)
			assert.True(t, fallback)
			assert.Equal(t, FallbackResponse(), response)
		})
	}
}

func TestExtractResponse_ReferToPhcFalseIsNotMissing(t *testing.T) {
	// referToPhc=false 是合法值，不能和缺失混淆
	raw := `{
		"urgencyLevel": "low",
		"riskScore": 0.1,
		"recommendedAction": "Home care with fluids",
		"referToPhc": false,
		"confidenceScore": 0.9,
		"citedGuideline": "General guidance"
	}`

	response, fallback := ExtractResponse(raw)
	assert.False(t, fallback)
	assert.False(t, response.ReferToPHC)
}

func TestExtractResponse_NestedBraces(t *testing.T) {
	// 候选 JSON 取第一个 '{' 到最后一个 '}'，中间的嵌套对象不影响提取
	raw := `Assessment follows. {
		"urgencyLevel": "medium",
		"riskScore": 0.4,
		"recommendedAction": "Visit PHC within 48 hours",
		"referToPhc": true,
		"confidenceScore": 0.7,
		"citedGuideline": "General guidance",
		"redFlags": []
	}`

	response, fallback := ExtractResponse(raw)
	assert.False(t, fallback)
	assert.Equal(t, models.UrgencyMedium, response.UrgencyLevel)
}

func TestFallbackResponse_Canonical(t *testing.T) {
	response := FallbackResponse()

	require.Equal(t, models.UrgencyMedium, response.UrgencyLevel)
	assert.Equal(t, 0.5, response.RiskScore)
	assert.True(t, response.ReferToPHC)
	assert.Equal(t, 0.0, response.ConfidenceScore)
	assert.Equal(t, FallbackRecommendedAction, response.RecommendedAction)
	assert.Equal(t, FallbackCitedGuideline, response.CitedGuideline)
}
