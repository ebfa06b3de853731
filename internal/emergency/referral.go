package emergency

import (
	"fmt"
	"strings"

	"asha-triage/internal/models"
)

// GenerateReferralNote 生成转诊单文本（供 PHC 医生阅读）
// 确定性输出：同一 TriageResult 生成的内容完全一致
// 生成时间取分诊结果元数据中的时间戳，不取当前时间
func GenerateReferralNote(result *models.TriageResult) string {
	request := result.Request
	response := result.Response

	age := "Not provided"
	if request.PatientAge != nil {
		age = fmt.Sprintf("%d", *request.PatientAge)
	}

	gender := "Not provided"
	if request.PatientGender != nil {
		gender = *request.PatientGender
	}

	district := "Unknown"
	state := "Unknown"
	if request.Location != nil {
		if request.Location.District != "" {
			district = request.Location.District
		}
		if request.Location.State != "" {
			state = request.Location.State
		}
	}

	redFlags := "None identified"
	if len(response.RedFlags) > 0 {
		redFlags = strings.Join(response.RedFlags, "\n")
	}

	reasoning := "See assessment above"
	if response.Reasoning != "" {
		reasoning = response.Reasoning
	}

	var b strings.Builder
	b.WriteString("EMERGENCY REFERRAL NOTE\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", result.Metadata.Timestamp)

	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "- Age: %s\n", age)
	fmt.Fprintf(&b, "- Gender: %s\n", gender)
	fmt.Fprintf(&b, "- Location: %s, %s\n\n", district, state)

	b.WriteString("PRESENTING SYMPTOMS:\n")
	fmt.Fprintf(&b, "%s\n\n", request.Symptoms)

	b.WriteString("TRIAGE ASSESSMENT:\n")
	fmt.Fprintf(&b, "- Urgency Level: %s\n", strings.ToUpper(string(response.UrgencyLevel)))
	fmt.Fprintf(&b, "- Risk Score: %.0f%%\n", response.RiskScore*100)
	fmt.Fprintf(&b, "- Confidence: %.0f%%\n\n", response.ConfidenceScore*100)

	b.WriteString("RECOMMENDED ACTION:\n")
	fmt.Fprintf(&b, "%s\n\n", response.RecommendedAction)

	b.WriteString("RED FLAGS:\n")
	fmt.Fprintf(&b, "%s\n\n", redFlags)

	b.WriteString("CLINICAL GUIDELINE REFERENCE:\n")
	fmt.Fprintf(&b, "%s\n\n", response.CitedGuideline)

	b.WriteString("REASONING:\n")
	fmt.Fprintf(&b, "%s\n\n", reasoning)

	b.WriteString("---\n")
	b.WriteString("This is an AI-generated triage assessment. Please conduct a thorough clinical evaluation.\n")
	fmt.Fprintf(&b, "ASHA Worker ID: %s\n", request.UserID)
	fmt.Fprintf(&b, "Triage ID: %s", result.TriageID)

	return b.String()
}
