package models

// EmergencyStatus 紧急升级处理状态
type EmergencyStatus string

const (
	EmergencyStatusPending      EmergencyStatus = "pending"
	EmergencyStatusAcknowledged EmergencyStatus = "acknowledged"
	EmergencyStatusResolved     EmergencyStatus = "resolved"
)

// Valid 判断状态是否为合法枚举值
func (s EmergencyStatus) Valid() bool {
	switch s {
	case EmergencyStatusPending, EmergencyStatusAcknowledged, EmergencyStatusResolved:
		return true
	}
	return false
}

// CanTransitionTo 状态机：只允许向前流转
// pending → acknowledged → resolved（允许 pending 直接到 resolved）
// resolved 为终态，任何回退都不允许
func (s EmergencyStatus) CanTransitionTo(next EmergencyStatus) bool {
	switch s {
	case EmergencyStatusPending:
		return next == EmergencyStatusAcknowledged || next == EmergencyStatusResolved
	case EmergencyStatusAcknowledged:
		return next == EmergencyStatusResolved
	}
	return false
}

// PatientInfo 升级记录中的患者信息快照
type PatientInfo struct {
	Age      *int    `json:"age,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	Symptoms string  `json:"symptoms"`
}

// Coordinates 经纬度坐标
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EscalationLocation 升级记录中的位置信息
type EscalationLocation struct {
	District    string       `json:"district"`
	State       string       `json:"state"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// NearestPHC 最近的初级卫生中心（PHC）
type NearestPHC struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"` // 公里
	Contact  string  `json:"contact"`
}

// EmergencyEscalation 紧急升级记录
// 仅在升级策略触发时创建；TriageID 为回溯引用，不拥有分诊记录
type EmergencyEscalation struct {
	TriageID         string             `json:"triageId"`
	UrgencyLevel     UrgencyLevel       `json:"urgencyLevel"` // 固定为 emergency
	PatientInfo      PatientInfo        `json:"patientInfo"`
	Location         EscalationLocation `json:"location"`
	NearestPHC       NearestPHC         `json:"nearestPhc"`
	ReferralNote     string             `json:"referralNote"`
	Timestamp        string             `json:"timestamp"`
	NotificationSent bool               `json:"notificationSent"`
	Status           EmergencyStatus    `json:"status"`
}

// EmergencyCase 持久化后的紧急升级记录（带生成的 emergencyId）
type EmergencyCase struct {
	EmergencyID string `json:"emergencyId"`
	EmergencyEscalation
}
