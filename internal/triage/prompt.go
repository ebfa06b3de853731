package triage

import (
	"fmt"
	"strings"

	"asha-triage/internal/models"
)

// systemPrompt 系统级安全指令：只评估紧急程度，不诊断、不开药
const systemPrompt = `You are a medical triage AI assistant for rural healthcare in India. You help ASHA workers assess patient urgency levels.

STRICT RULES:
- Never diagnose conditions
- Never prescribe medications
- Never provide treatment plans
- Only assess urgency and recommend next steps
- Always output valid JSON in the specified format
- Use simple, clear language
- Be culturally sensitive to Indian rural context
- Cite medical protocols when available

Your goal is to help ASHA workers make informed decisions about patient care escalation.`

// SystemPrompt 返回系统级安全指令
func SystemPrompt() string {
	return systemPrompt
}

// BuildTriagePrompt 组装分诊提示词
// 纯函数：嵌入患者信息（缺失字段用显式占位）、原始症状文本、检索上下文
// 以及固定的输出 schema 和安全约束
func BuildTriagePrompt(req *models.TriageRequest, context string) string {
	age := "Not provided"
	if req.PatientAge != nil {
		age = fmt.Sprintf("%d", *req.PatientAge)
	}

	gender := "Not provided"
	if req.PatientGender != nil {
		gender = *req.PatientGender
	}

	district := "Unknown"
	state := "Unknown"
	if req.Location != nil {
		if req.Location.District != "" {
			district = req.Location.District
		}
		if req.Location.State != "" {
			state = req.Location.State
		}
	}

	var b strings.Builder
	b.WriteString(`You are an AI triage assistant for rural healthcare in India. Your role is to assess patient symptoms and provide triage guidance to ASHA workers.

CRITICAL SAFETY RULES:
1. DO NOT diagnose medical conditions
2. DO NOT prescribe medications or dosages
3. DO NOT provide treatment plans
4. ONLY assess urgency level and recommend next steps
5. Always recommend consulting a healthcare professional for medical decisions

Patient Information:
`)
	fmt.Fprintf(&b, "- Age: %s\n", age)
	fmt.Fprintf(&b, "- Gender: %s\n", gender)
	fmt.Fprintf(&b, "- Location: %s, %s\n", district, state)
	fmt.Fprintf(&b, "- Symptoms: %s\n\n", req.Symptoms)

	b.WriteString(context)

	b.WriteString(`

Based on the symptoms and retrieved medical protocols, provide a structured triage assessment in the following JSON format:

{
  "urgencyLevel": "low | medium | high | emergency",
  "riskScore": 0.0-1.0,
  "recommendedAction": "Clear action for ASHA worker",
  "referToPhc": true/false,
  "confidenceScore": 0.0-1.0,
  "citedGuideline": "Reference to protocol used",
  "reasoning": "Brief explanation of assessment",
  "redFlags": ["List any concerning symptoms"]
}

Urgency Level Guidelines:
- low: Non-urgent, can wait for regular appointment
- medium: Should be seen within 24-48 hours
- high: Should be seen within hours
- emergency: Immediate medical attention required

Respond ONLY with valid JSON. No additional text.`)

	return b.String()
}
