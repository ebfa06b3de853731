package emergency

import (
	"strings"

	"asha-triage/internal/models"
)

// ShouldEscalate 判断分诊结果是否需要紧急升级
// 三个独立触发条件按逻辑或组合（任一满足即升级）：
//  a. urgencyLevel == emergency（无条件升级，不受其他条件抑制）
//  b. riskScore >= threshold（模型打分高风险，即使标签不是 emergency）
//  c. referToPhc == true 且 urgencyLevel == high（明确转诊 + 高紧急度）
// 纯函数，无副作用
func ShouldEscalate(result *models.TriageResult, threshold float64) bool {
	response := result.Response

	if response.UrgencyLevel == models.UrgencyEmergency {
		return true
	}

	if response.RiskScore >= threshold {
		return true
	}

	if response.ReferToPHC && response.UrgencyLevel == models.UrgencyHigh {
		return true
	}

	return false
}

// emergencyKeywords 症状文本中的紧急关键词
var emergencyKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"unconscious",
	"severe bleeding",
	"stroke",
	"heart attack",
	"seizure",
	"poisoning",
	"severe burn",
	"head injury",
	"suicide",
	"overdose",
}

// ContainsEmergencyKeywords 检查症状文本是否包含紧急关键词
// 仅作为日志层面的早期预警信号，不参与升级决策
func ContainsEmergencyKeywords(symptoms string) bool {
	lower := strings.ToLower(symptoms)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
