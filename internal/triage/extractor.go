package triage

import (
	"encoding/json"
	"strings"

	"asha-triage/internal/models"
)

// 兜底响应的固定文案
// 兜底必须偏向保守（宁可过度分诊）：medium + 建议转诊 PHC
const (
	FallbackRecommendedAction = "Unable to complete assessment. Please consult with PHC doctor for evaluation."
	FallbackCitedGuideline    = "Fallback response due to parsing error"
	FallbackReasoning         = "System encountered an error processing the assessment"
)

// FallbackResponse 返回规范的兜底分诊响应
// urgencyLevel 必须是 medium，不允许其他默认值
func FallbackResponse() models.TriageResponse {
	return models.TriageResponse{
		UrgencyLevel:      models.UrgencyMedium,
		RiskScore:         0.5,
		RecommendedAction: FallbackRecommendedAction,
		ReferToPHC:        true,
		ConfidenceScore:   0.0,
		CitedGuideline:    FallbackCitedGuideline,
		Reasoning:         FallbackReasoning,
	}
}

// rawAssessment 生成输出的中间解析结构
// 数值和布尔字段用指针区分"缺失"和"零值"
type rawAssessment struct {
	UrgencyLevel      string   `json:"urgencyLevel"`
	RiskScore         *float64 `json:"riskScore"`
	RecommendedAction string   `json:"recommendedAction"`
	ReferToPHC        *bool    `json:"referToPhc"`
	ConfidenceScore   *float64 `json:"confidenceScore"`
	CitedGuideline    string   `json:"citedGuideline"`
	Reasoning         string   `json:"reasoning"`
	RedFlags          []string `json:"redFlags"`
}

// ExtractResponse 从生成输出中提取结构化分诊响应
// 永不失败：找不到 JSON、解析失败或 schema 校验失败时返回兜底响应
// 第二个返回值标记是否走了兜底路径（用于日志和指标，不影响调用方流程）
func ExtractResponse(raw string) (models.TriageResponse, bool) {
	// 取第一个 '{' 到最后一个 '}' 的子串作为候选 JSON
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return FallbackResponse(), true
	}

	var parsed rawAssessment
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return FallbackResponse(), true
	}

	// schema 校验：枚举成员、数值边界、必填字符串
	if !models.UrgencyLevel(parsed.UrgencyLevel).Valid() {
		return FallbackResponse(), true
	}
	if parsed.RiskScore == nil || *parsed.RiskScore < 0 || *parsed.RiskScore > 1 {
		return FallbackResponse(), true
	}
	if parsed.ConfidenceScore == nil || *parsed.ConfidenceScore < 0 || *parsed.ConfidenceScore > 1 {
		return FallbackResponse(), true
	}
	if parsed.RecommendedAction == "" {
		return FallbackResponse(), true
	}
	if parsed.ReferToPHC == nil {
		return FallbackResponse(), true
	}
	if parsed.CitedGuideline == "" {
		return FallbackResponse(), true
	}

	return models.TriageResponse{
		UrgencyLevel:      models.UrgencyLevel(parsed.UrgencyLevel),
		RiskScore:         *parsed.RiskScore,
		RecommendedAction: parsed.RecommendedAction,
		ReferToPHC:        *parsed.ReferToPHC,
		ConfidenceScore:   *parsed.ConfidenceScore,
		CitedGuideline:    parsed.CitedGuideline,
		Reasoning:         parsed.Reasoning,
		RedFlags:          parsed.RedFlags,
	}, false
}
