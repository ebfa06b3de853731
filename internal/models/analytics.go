package models

import "github.com/google/uuid"

// AnalyticsEventType 分析事件类型
type AnalyticsEventType string

const (
	AnalyticsEventTriage    AnalyticsEventType = "triage"
	AnalyticsEventEmergency AnalyticsEventType = "emergency"
	AnalyticsEventReferral  AnalyticsEventType = "referral"
)

// AnalyticsEvent 面向区级健康分析的匿名化事件
// 不变式：不包含 userId 等直接标识符；写入失败不得影响父操作
type AnalyticsEvent struct {
	EventID      string             `json:"eventId"`
	EventType    AnalyticsEventType `json:"eventType"`
	District     string             `json:"district"`
	State        string             `json:"state"`
	Symptoms     []string           `json:"symptoms"`
	UrgencyLevel UrgencyLevel       `json:"urgencyLevel"`
	Timestamp    string             `json:"timestamp"`
	Anonymized   bool               `json:"anonymized"`
}

// NewTriageAnalyticsEvent 从分诊结果派生匿名化分析事件
// 只复制症状文本、紧急程度和区/邦，绝不复制 userId
func NewTriageAnalyticsEvent(result *TriageResult, eventType AnalyticsEventType) AnalyticsEvent {
	district := "unknown"
	state := "unknown"
	if result.Request.Location != nil {
		if result.Request.Location.District != "" {
			district = result.Request.Location.District
		}
		if result.Request.Location.State != "" {
			state = result.Request.Location.State
		}
	}

	return AnalyticsEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		District:     district,
		State:        state,
		Symptoms:     []string{result.Request.Symptoms},
		UrgencyLevel: result.Response.UrgencyLevel,
		Timestamp:    result.Metadata.Timestamp,
		Anonymized:   true,
	}
}
