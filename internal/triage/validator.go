package triage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"asha-triage/internal/models"
)

const (
	// 症状文本长度边界（按字符计）
	// 过短无法判断，过长会放大提示词成本和延迟
	symptomsMinLength = 10
	symptomsMaxLength = 1000

	patientAgeMin = 0
	patientAgeMax = 120
)

// ParseTriageRequest 解析并校验原始请求体
// 失败时返回 *ValidationError，指出第一个违反的约束；绝不部分接受
func ParseTriageRequest(raw []byte) (*models.TriageRequest, error) {
	var req models.TriageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &ValidationError{Field: "body", Message: "request body is not valid JSON"}
	}

	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	return &req, nil
}

// ValidateRequest 按固定顺序校验请求字段
// 顺序：必填字段 → 症状长度 → 语言枚举 → 年龄范围 → 性别枚举 → 时间戳格式
func ValidateRequest(req *models.TriageRequest) error {
	// 1. 必填字段
	if req.UserID == "" {
		return &ValidationError{Field: "userId", Message: "userId is required"}
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		return &ValidationError{Field: "symptoms", Message: "symptoms is required"}
	}
	if req.Language == "" {
		return &ValidationError{Field: "language", Message: "language is required"}
	}
	if req.Timestamp == "" {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}

	// 2. 症状长度边界（修剪后按字符计数）
	symptoms := strings.TrimSpace(req.Symptoms)
	length := utf8.RuneCountInString(symptoms)
	if length < symptomsMinLength {
		return &ValidationError{
			Field:   "symptoms",
			Message: fmt.Sprintf("symptoms must be at least %d characters, got %d", symptomsMinLength, length),
		}
	}
	if length > symptomsMaxLength {
		return &ValidationError{
			Field:   "symptoms",
			Message: fmt.Sprintf("symptoms must be at most %d characters, got %d", symptomsMaxLength, length),
		}
	}

	// 3. 语言枚举
	if !models.IsSupportedLanguage(req.Language) {
		return &ValidationError{
			Field:   "language",
			Message: fmt.Sprintf("unsupported language %q, supported: %v", req.Language, models.SupportedLanguages),
		}
	}

	// 4. 年龄范围
	if req.PatientAge != nil {
		if *req.PatientAge < patientAgeMin || *req.PatientAge > patientAgeMax {
			return &ValidationError{
				Field:   "patientAge",
				Message: fmt.Sprintf("patientAge must be between %d and %d, got %d", patientAgeMin, patientAgeMax, *req.PatientAge),
			}
		}
	}

	// 5. 性别枚举
	if req.PatientGender != nil && !models.IsValidGender(*req.PatientGender) {
		return &ValidationError{
			Field:   "patientGender",
			Message: fmt.Sprintf("invalid patientGender %q, valid values: %v", *req.PatientGender, models.PatientGenders),
		}
	}

	// 6. 时间戳格式（ISO-8601）
	if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
		return &ValidationError{
			Field:   "timestamp",
			Message: fmt.Sprintf("timestamp must be an ISO-8601 instant: %v", err),
		}
	}

	return nil
}
