package emergency

import (
	"testing"

	"asha-triage/internal/models"

	"github.com/stretchr/testify/assert"
)

func resultWith(level models.UrgencyLevel, riskScore float64, referToPHC bool) *models.TriageResult {
	return &models.TriageResult{
		TriageID: "triage-001",
		Response: models.TriageResponse{
			UrgencyLevel: level,
			RiskScore:    riskScore,
			ReferToPHC:   referToPHC,
		},
	}
}

func TestShouldEscalate(t *testing.T) {
	const threshold = 0.8

	tests := []struct {
		name     string
		result   *models.TriageResult
		expected bool
	}{
		{"emergency level always escalates", resultWith(models.UrgencyEmergency, 0.1, false), true},
		{"risk score at threshold escalates", resultWith(models.UrgencyLow, 0.8, false), true},
		{"risk score above threshold escalates", resultWith(models.UrgencyMedium, 0.95, false), true},
		{"risk score just below threshold does not", resultWith(models.UrgencyLow, 0.79, false), false},
		{"high with referral escalates", resultWith(models.UrgencyHigh, 0.5, true), true},
		{"high without referral does not", resultWith(models.UrgencyHigh, 0.5, false), false},
		{"medium with referral does not", resultWith(models.UrgencyMedium, 0.5, true), false},
		{"low nothing triggered", resultWith(models.UrgencyLow, 0.1, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldEscalate(tt.result, threshold))
		})
	}
}

func TestShouldEscalate_CustomThreshold(t *testing.T) {
	result := resultWith(models.UrgencyLow, 0.6, false)

	assert.False(t, ShouldEscalate(result, 0.8))
	assert.True(t, ShouldEscalate(result, 0.5))
}

func TestContainsEmergencyKeywords(t *testing.T) {
	assert.True(t, ContainsEmergencyKeywords("Patient has severe CHEST PAIN since morning"))
	assert.True(t, ContainsEmergencyKeywords("difficulty breathing and sweating"))
	assert.False(t, ContainsEmergencyKeywords("mild headache and runny nose"))
	assert.False(t, ContainsEmergencyKeywords(""))
}
