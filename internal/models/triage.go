package models

// UrgencyLevel 分诊紧急程度（有序严重度等级）
// - low: 非紧急，可等待常规就诊
// - medium: 应在 24-48 小时内就诊
// - high: 应在数小时内就诊
// - emergency: 需要立即就医
type UrgencyLevel string

const (
	UrgencyLow       UrgencyLevel = "low"
	UrgencyMedium    UrgencyLevel = "medium"
	UrgencyHigh      UrgencyLevel = "high"
	UrgencyEmergency UrgencyLevel = "emergency"
)

// Valid 判断紧急程度是否为合法枚举值
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// SupportedLanguages 语音/文本接口支持的语言代码
var SupportedLanguages = []string{
	"hi-IN", "mr-IN", "ta-IN", "te-IN", "kn-IN", "bn-IN", "en-IN",
}

// IsSupportedLanguage 判断语言代码是否受支持
func IsSupportedLanguage(code string) bool {
	for _, lang := range SupportedLanguages {
		if code == lang {
			return true
		}
	}
	return false
}

// PatientGenders 患者性别枚举
var PatientGenders = []string{"male", "female", "other"}

// IsValidGender 判断性别是否为合法枚举值
func IsValidGender(gender string) bool {
	for _, g := range PatientGenders {
		if gender == g {
			return true
		}
	}
	return false
}

// Location 患者所在位置（区/邦 + 可选经纬度）
type Location struct {
	District  string   `json:"district"`
	State     string   `json:"state"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// TriageRequest 一次患者症状提交
// 提交后不可变；timestamp 由提交端设置，核心不做推断
type TriageRequest struct {
	UserID        string    `json:"userId"`
	Symptoms      string    `json:"symptoms"`
	Language      string    `json:"language"`
	PatientAge    *int      `json:"patientAge,omitempty"`
	PatientGender *string   `json:"patientGender,omitempty"`
	Location      *Location `json:"location,omitempty"`
	VoiceInput    bool      `json:"voiceInput"`
	Timestamp     string    `json:"timestamp"`
}

// RetrievedDocument 知识库检索返回的单个文档片段
type RetrievedDocument struct {
	DocumentID     string  `json:"documentId"`
	Title          string  `json:"title"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// RAGContext 单次请求的检索快照
// 不变式：TotalDocuments == len(RetrievedDocuments)；空列表是合法的降级路径
type RAGContext struct {
	Query              string              `json:"query"`
	RetrievedDocuments []RetrievedDocument `json:"retrievedDocuments"`
	TotalDocuments     int                 `json:"totalDocuments"`
	RetrievalTimeMs    int64               `json:"retrievalTimeMs"`
}

// TriageResponse 结构化分诊评估结果
// 除 Reasoning/RedFlags 外所有字段必填；解析失败时由提取器替换为兜底响应
type TriageResponse struct {
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel"`
	RiskScore         float64      `json:"riskScore"`
	RecommendedAction string       `json:"recommendedAction"`
	ReferToPHC        bool         `json:"referToPhc"`
	ConfidenceScore   float64      `json:"confidenceScore"`
	CitedGuideline    string       `json:"citedGuideline"`
	Reasoning         string       `json:"reasoning,omitempty"`
	RedFlags          []string     `json:"redFlags,omitempty"`
}

// TriageMetadata 单次分诊的处理元数据
type TriageMetadata struct {
	ProcessingTimeMs    int64  `json:"processingTimeMs"`
	TokensUsed          int    `json:"tokensUsed"`
	GuardrailsTriggered bool   `json:"guardrailsTriggered"`
	RetrievedDocuments  int    `json:"retrievedDocuments"`
	ModelVersion        string `json:"modelVersion"`
	Timestamp           string `json:"timestamp"`
}

// TriageResult 完整分诊记录（写入后不再修改）
// 紧急升级的状态流转保存在 EmergencyEscalation，不在此处
type TriageResult struct {
	TriageID string         `json:"triageId"`
	Request  TriageRequest  `json:"request"`
	Response TriageResponse `json:"response"`
	Metadata TriageMetadata `json:"metadata"`
}
